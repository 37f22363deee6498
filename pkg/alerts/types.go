package alerts

import (
	"context"
	"fmt"
	"strings"
)

// Reason explains why a notification fired.
type Reason string

const (
	ReasonTargetHit     Reason = "target_hit"     // Price at or below the owner's target
	ReasonDropThreshold Reason = "drop_threshold" // Price fell more than 5% since the last check
)

// Notification is a price alert ready for delivery.
type Notification struct {
	AlertID       string   `json:"alert_id"`
	Target        string   `json:"target,omitempty"`
	Reason        Reason   `json:"reason"`
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	DepartureDate string   `json:"departure_date"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	PreviousPrice *float64 `json:"previous_price,omitempty"`
	TargetPrice   *float64 `json:"target_price,omitempty"`
	Carrier       string   `json:"carrier,omitempty"`
	Stops         int      `json:"stops"`
	BookingURL    string   `json:"booking_url,omitempty"`
	Message       string   `json:"message"`
}

// Notifier sends notifications to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. Implementations must be safe for concurrent use.
	Send(ctx context.Context, n Notification) error
}

// Headline is the one-line reason shown to the owner.
func (n Notification) Headline() string {
	switch n.Reason {
	case ReasonTargetHit:
		if n.TargetPrice != nil {
			return fmt.Sprintf("Hit your target of $%.2f!", *n.TargetPrice)
		}
		return "Hit your target!"
	case ReasonDropThreshold:
		if n.PreviousPrice != nil {
			return fmt.Sprintf("Dropped $%.2f since the last check!", *n.PreviousPrice-n.Price)
		}
		return "Dropped more than 5%!"
	default:
		return string(n.Reason)
	}
}

// FormatMessage renders the plain-text body used by chat notifiers.
func FormatMessage(n Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flight Alert! %s → %s on %s\n", n.Origin, n.Destination, n.DepartureDate)
	fmt.Fprintf(&b, "Price: $%.2f %s", n.Price, n.Currency)
	if n.Carrier != "" {
		fmt.Fprintf(&b, " (%s, %d stop(s))", n.Carrier, n.Stops)
	}
	b.WriteString("\n")
	b.WriteString(n.Headline())
	if n.BookingURL != "" {
		b.WriteString("\nBook: ")
		b.WriteString(n.BookingURL)
	}
	return b.String()
}
