package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
)

// DefaultSerpAPIURL is the SerpApi search endpoint.
const DefaultSerpAPIURL = "https://serpapi.com/search"

// SerpAPI fetches Google Flights prices through SerpApi.
type SerpAPI struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
}

// NewSerpAPI creates a SerpApi client. An empty baseURL uses DefaultSerpAPIURL.
func NewSerpAPI(baseURL, apiKey, currency string, timeout time.Duration) *SerpAPI {
	if baseURL == "" {
		baseURL = DefaultSerpAPIURL
	}
	if currency == "" {
		currency = "USD"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SerpAPI{
		baseURL:  baseURL,
		apiKey:   apiKey,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Fetch(ctx context.Context, origin, destination model.AirportCode, date time.Time) (*model.Quote, error) {
	params := url.Values{
		"engine":        {"google_flights"},
		"departure_id":  {string(origin)},
		"arrival_id":    {string(destination)},
		"outbound_date": {model.FormatDate(date)},
		"currency":      {s.currency},
		"hl":            {"en"},
		"type":          {"2"}, // one-way
		"api_key":       {s.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, unavailable(s.Name(), origin, destination, date, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, unavailable(s.Name(), origin, destination, date, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, unavailable(s.Name(), origin, destination, date, fmt.Errorf("read body: %w", err))
	}

	var data serpResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, unavailable(s.Name(), origin, destination, date, fmt.Errorf("decode body (status %d): %w", resp.StatusCode, err))
	}
	if data.Error != "" {
		return nil, unavailable(s.Name(), origin, destination, date, errors.New(data.Error))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(s.Name(), origin, destination, date, fmt.Errorf("status %d", resp.StatusCode))
	}

	options := data.BestFlights
	if len(options) == 0 {
		options = data.OtherFlights
	}
	if len(options) == 0 || options[0].Price <= 0 {
		return nil, unavailable(s.Name(), origin, destination, date, errors.New("no flight data returned"))
	}

	best := options[0]
	quote := &model.Quote{
		Origin:          origin,
		Destination:     destination,
		Date:            model.DateOf(date),
		Price:           best.Price,
		Currency:        s.currency,
		DurationMinutes: best.TotalDuration,
		BookingURL:      BookingURL(origin, destination, date),
	}
	if n := len(best.Flights); n > 0 {
		quote.Carrier = best.Flights[0].Airline
		quote.DepartureTime = best.Flights[0].DepartureAirport.Time
		quote.ArrivalTime = best.Flights[n-1].ArrivalAirport.Time
		quote.Stops = n - 1
	}
	return quote, nil
}

type serpResponse struct {
	Error        string          `json:"error"`
	BestFlights  []serpItinerary `json:"best_flights"`
	OtherFlights []serpItinerary `json:"other_flights"`
}

type serpItinerary struct {
	Flights       []serpSegment `json:"flights"`
	TotalDuration int           `json:"total_duration"`
	Price         float64       `json:"price"`
}

type serpSegment struct {
	DepartureAirport serpAirport `json:"departure_airport"`
	ArrivalAirport   serpAirport `json:"arrival_airport"`
	Airline          string      `json:"airline"`
	FlightNumber     string      `json:"flight_number"`
}

type serpAirport struct {
	ID   string `json:"id"`
	Time string `json:"time"`
}
