package monitor

import (
	"github.com/ogulcanaydogan/FareWatch/pkg/alerts"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"
)

// DropThreshold is the fraction of the last price a quote must fall strictly below.
const DropThreshold = 0.95

// Decision is the outcome of evaluating a fresh quote against an alert.
type Decision struct {
	Notify bool          `json:"notify"`
	Reason alerts.Reason `json:"reason,omitempty"`
}

// Decide reports whether the quote warrants a notification. The alert must carry the
// last price stored before this quote is recorded. Target hits win over drops.
func Decide(alert model.Alert, quote model.Quote) Decision {
	if alert.TargetPrice != nil && quote.Price <= *alert.TargetPrice {
		return Decision{Notify: true, Reason: alerts.ReasonTargetHit}
	}
	if alert.LastPrice != nil && quote.Price < *alert.LastPrice*DropThreshold {
		return Decision{Notify: true, Reason: alerts.ReasonDropThreshold}
	}
	return Decision{}
}
