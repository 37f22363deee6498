package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// dateLayout is the calendar date format used on every external surface.
const dateLayout = "2006-01-02"

// AirportCode is an upper-case three letter IATA code.
type AirportCode string

// ParseAirportCode normalizes s and rejects anything that is not exactly three letters.
func ParseAirportCode(s string) (AirportCode, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", &ValidationError{Field: "airport", Reason: fmt.Sprintf("%q is not a 3-letter airport code", s)}
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return "", &ValidationError{Field: "airport", Reason: fmt.Sprintf("%q is not a 3-letter airport code", s)}
		}
	}
	return AirportCode(code), nil
}

// ParseAirportCodes parses a comma separated list such as "JFK,ewr".
// Duplicates are dropped, keeping first-seen order.
func ParseAirportCodes(list string) ([]AirportCode, error) {
	var codes []AirportCode
	seen := make(map[AirportCode]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		code, err := ParseAirportCode(part)
		if err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, &ValidationError{Field: "airport", Reason: "at least one airport code is required"}
	}
	return codes, nil
}

func (c AirportCode) String() string { return string(c) }

// Valid reports whether c is a stored-form code.
func (c AirportCode) Valid() bool {
	parsed, err := ParseAirportCode(string(c))
	return err == nil && parsed == c
}

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", s)}
	}
	return d, nil
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.UTC().Format(dateLayout)
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(DateOf(end).Sub(DateOf(start)).Hours() / 24)
}

// Owner maps an external chat-platform identity to an internal owner id.
type Owner struct {
	ID           string    `json:"id"`
	Platform     string    `json:"platform"`
	ExternalID   string    `json:"external_id"`
	NotifyTarget string    `json:"notify_target,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Alert is a tracked route, date and optional target price.
type Alert struct {
	ID            string      `json:"id"`
	OwnerID       string      `json:"owner_id"`
	NotifyTarget  string      `json:"notify_target,omitempty"`
	Origin        AirportCode `json:"origin"`
	Destination   AirportCode `json:"destination"`
	DepartureDate time.Time   `json:"departure_date"`
	TargetPrice   *float64    `json:"target_price,omitempty"`
	LastPrice     *float64    `json:"last_price,omitempty"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Validate checks the invariants every stored alert must hold.
func (a *Alert) Validate() error {
	if a.OwnerID == "" {
		return &ValidationError{Field: "owner", Reason: "owner id is required"}
	}
	if !a.Origin.Valid() {
		return &ValidationError{Field: "origin", Reason: fmt.Sprintf("%q is not a 3-letter airport code", a.Origin)}
	}
	if !a.Destination.Valid() {
		return &ValidationError{Field: "destination", Reason: fmt.Sprintf("%q is not a 3-letter airport code", a.Destination)}
	}
	if a.DepartureDate.IsZero() {
		return &ValidationError{Field: "date", Reason: "departure date is required"}
	}
	if a.TargetPrice != nil && !ValidPrice(*a.TargetPrice) {
		return &ValidationError{Field: "target_price", Reason: "target price must be a positive finite number"}
	}
	return nil
}

// ValidPrice reports whether v is usable as a price: finite and greater than zero.
func ValidPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// IsPast reports whether the departure date is strictly before today.
func (a *Alert) IsPast(today time.Time) bool {
	return DateOf(a.DepartureDate).Before(DateOf(today))
}

// ShortID returns the id prefix shown to users.
func (a *Alert) ShortID() string {
	if len(a.ID) <= 8 {
		return a.ID
	}
	return a.ID[:8]
}

// Route renders "JFK → LAX".
func (a *Alert) Route() string {
	return fmt.Sprintf("%s → %s", a.Origin, a.Destination)
}

// PriceObservation is one append-only price history entry.
type PriceObservation struct {
	ID         string    `json:"id"`
	AlertID    string    `json:"alert_id"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Quote is a normalized one-way fare returned by a price fetcher.
type Quote struct {
	Origin          AirportCode `json:"origin"`
	Destination     AirportCode `json:"destination"`
	Date            time.Time   `json:"date"`
	Price           float64     `json:"price"`
	Currency        string      `json:"currency"`
	Carrier         string      `json:"carrier,omitempty"`
	DepartureTime   string      `json:"departure_time,omitempty"`
	ArrivalTime     string      `json:"arrival_time,omitempty"`
	Stops           int         `json:"stops"`
	DurationMinutes int         `json:"duration_minutes,omitempty"`
	BookingURL      string      `json:"booking_url,omitempty"`
}

// Float returns a pointer to v, for optional price fields.
func Float(v float64) *float64 {
	return &v
}
