package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
)

// ErrUnavailable means the provider had no usable price. Callers skip and retry on a later cycle.
var ErrUnavailable = errors.New("price unavailable")

// PriceFetcher looks up the cheapest one-way fare for a route and date.
type PriceFetcher interface {
	// Name returns the provider identifier (e.g., "serpapi", "static").
	Name() string

	// Fetch returns a quote, or an error wrapping ErrUnavailable for any provider failure.
	// Implementations must not retry and must be safe for concurrent use.
	Fetch(ctx context.Context, origin, destination model.AirportCode, date time.Time) (*model.Quote, error)
}

// unavailable wraps a provider failure so callers can match it with errors.Is.
func unavailable(provider string, origin, destination model.AirportCode, date time.Time, cause error) error {
	return fmt.Errorf("%s %s-%s %s: %w: %v", provider, origin, destination, model.FormatDate(date), ErrUnavailable, cause)
}

// BookingURL returns a Google Flights search link for the route and date.
func BookingURL(origin, destination model.AirportCode, date time.Time) string {
	q := url.Values{"q": {fmt.Sprintf("%s to %s %s", origin, destination, model.FormatDate(date))}}
	return "https://www.google.com/travel/flights?" + q.Encode()
}
