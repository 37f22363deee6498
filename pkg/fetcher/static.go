package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"gopkg.in/yaml.v3"
)

// StaticFare is one fixture entry. An empty Date applies to every date on the route.
type StaticFare struct {
	Origin          string  `yaml:"origin"`
	Destination     string  `yaml:"destination"`
	Date            string  `yaml:"date,omitempty"`
	Price           float64 `yaml:"price"`
	Carrier         string  `yaml:"carrier,omitempty"`
	DepartureTime   string  `yaml:"departure_time,omitempty"`
	ArrivalTime     string  `yaml:"arrival_time,omitempty"`
	Stops           int     `yaml:"stops,omitempty"`
	DurationMinutes int     `yaml:"duration_minutes,omitempty"`
}

// StaticConfig holds YAML-loaded fixture fares.
type StaticConfig struct {
	Currency string       `yaml:"currency"`
	Fares    []StaticFare `yaml:"fares"`
}

// Static serves fares from a fixture file. It is meant for demos and offline runs.
type Static struct {
	currency string
	fares    map[string]StaticFare
}

// NewStatic builds a fetcher from already parsed fixtures.
func NewStatic(cfg *StaticConfig) (*Static, error) {
	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}
	fares := make(map[string]StaticFare, len(cfg.Fares))
	for i, f := range cfg.Fares {
		origin, err := model.ParseAirportCode(f.Origin)
		if err != nil {
			return nil, fmt.Errorf("fare %d: %w", i, err)
		}
		dest, err := model.ParseAirportCode(f.Destination)
		if err != nil {
			return nil, fmt.Errorf("fare %d: %w", i, err)
		}
		if f.Price <= 0 {
			return nil, fmt.Errorf("fare %d: price must be positive", i)
		}
		date := ""
		if f.Date != "" {
			d, err := model.ParseDate(f.Date)
			if err != nil {
				return nil, fmt.Errorf("fare %d: %w", i, err)
			}
			date = model.FormatDate(d)
		}
		fares[fareKey(origin, dest, date)] = f
	}
	return &Static{currency: currency, fares: fares}, nil
}

// NewStaticFromFile loads fixtures from a YAML file.
func NewStaticFromFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fares file %s: %w", path, err)
	}

	var cfg StaticConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse fares file %s: %w", path, err)
	}
	if len(cfg.Fares) == 0 {
		return nil, fmt.Errorf("fares file %s: no fares defined", path)
	}
	return NewStatic(&cfg)
}

func (s *Static) Name() string { return "static" }

func (s *Static) Fetch(ctx context.Context, origin, destination model.AirportCode, date time.Time) (*model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(s.Name(), origin, destination, date, err)
	}

	f, ok := s.fares[fareKey(origin, destination, model.FormatDate(date))]
	if !ok {
		f, ok = s.fares[fareKey(origin, destination, "")]
	}
	if !ok {
		return nil, unavailable(s.Name(), origin, destination, date, errors.New("no fare on file"))
	}

	return &model.Quote{
		Origin:          origin,
		Destination:     destination,
		Date:            model.DateOf(date),
		Price:           f.Price,
		Currency:        s.currency,
		Carrier:         f.Carrier,
		DepartureTime:   f.DepartureTime,
		ArrivalTime:     f.ArrivalTime,
		Stops:           f.Stops,
		DurationMinutes: f.DurationMinutes,
		BookingURL:      BookingURL(origin, destination, date),
	}, nil
}

func fareKey(origin, destination model.AirportCode, date string) string {
	return strings.Join([]string{string(origin), string(destination), date}, "|")
}
