package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/FareWatch/pkg/fetcher"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/storage"
)

const DefaultSearchConcurrency = 4

// TrackRequest asks to track one or more routes on a single date.
// Origins and Destinations are comma-separated airport code lists.
type TrackRequest struct {
	OwnerID      string   `json:"-"`
	NotifyTarget string   `json:"-"`
	Origins      string   `json:"origins"`
	Destinations string   `json:"destinations"`
	Date         string   `json:"date"`
	TargetPrice  *float64 `json:"target_price,omitempty"`
}

// TrackedAlert is a newly created alert and the quote fetched for it, if any.
type TrackedAlert struct {
	Alert model.Alert  `json:"alert"`
	Quote *model.Quote `json:"quote,omitempty"`
}

// SearchRequest asks for the cheapest fare across routes and a date range.
type SearchRequest struct {
	Origins      string `json:"origins"`
	Destinations string `json:"destinations"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

// SearchResult lists the quotes found, cheapest first.
type SearchResult struct {
	Routes      int           `json:"routes"`
	Unavailable int           `json:"unavailable"`
	Best        *model.Quote  `json:"best,omitempty"`
	Quotes      []model.Quote `json:"quotes"`
}

// AlertHistory is an alert with its recorded prices, oldest first.
type AlertHistory struct {
	Alert        model.Alert              `json:"alert"`
	Observations []model.PriceObservation `json:"observations"`
}

// Service is the entry point for owner-facing operations.
type Service struct {
	store       storage.Storage
	scheduler   *Scheduler
	searcher    fetcher.PriceFetcher
	concurrency int
	logger      *slog.Logger
}

// NewService creates a service. Search uses searcher when non-nil, else the scheduler's fetcher.
func NewService(store storage.Storage, scheduler *Scheduler, searcher fetcher.PriceFetcher, concurrency int, logger *slog.Logger) *Service {
	if searcher == nil {
		searcher = scheduler.fetcher
	}
	if concurrency <= 0 {
		concurrency = DefaultSearchConcurrency
	}
	return &Service{
		store:       store,
		scheduler:   scheduler,
		searcher:    searcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ResolveOwner maps an external identity to an owner, creating it on first contact.
func (s *Service) ResolveOwner(ctx context.Context, platform, externalID, notifyTarget string) (*model.Owner, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, &model.ValidationError{Field: "user", Reason: "external user id is required"}
	}
	owner, err := s.store.ResolveOwner(ctx, platform, externalID, notifyTarget)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	return owner, nil
}

// Track creates one alert per expanded route and seeds each with a fresh price when available.
func (s *Service) Track(ctx context.Context, req TrackRequest) ([]TrackedAlert, error) {
	origins, err := model.ParseAirportCodes(req.Origins)
	if err != nil {
		return nil, err
	}
	destinations, err := model.ParseAirportCodes(req.Destinations)
	if err != nil {
		return nil, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(model.DateOf(s.scheduler.clock.Now())) {
		return nil, &model.ValidationError{Field: "date", Reason: "departure date is in the past"}
	}
	if req.TargetPrice != nil && !model.ValidPrice(*req.TargetPrice) {
		return nil, &model.ValidationError{Field: "target_price", Reason: "target price must be a positive finite number"}
	}

	routes, err := ExpandTrack(origins, destinations, date)
	if err != nil {
		return nil, err
	}

	tracked := make([]TrackedAlert, 0, len(routes))
	for _, r := range routes {
		quote, err := s.scheduler.fetcher.Fetch(ctx, r.Origin, r.Destination, r.Date)
		if err != nil {
			s.logger.Warn("initial price unavailable", "origin", r.Origin, "destination", r.Destination, "error", err)
			quote = nil
		}

		now := s.scheduler.clock.Now()
		alert := model.Alert{
			ID:            uuid.New().String(),
			OwnerID:       req.OwnerID,
			NotifyTarget:  req.NotifyTarget,
			Origin:        r.Origin,
			Destination:   r.Destination,
			DepartureDate: r.Date,
			TargetPrice:   req.TargetPrice,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateAlert(ctx, &alert); err != nil {
			return tracked, fmt.Errorf("create alert %s: %w", alert.Route(), err)
		}

		if quote != nil {
			if _, err := s.store.RecordObservation(ctx, alert.ID, quote.Price, now); err != nil {
				return tracked, fmt.Errorf("record initial price: %w", err)
			}
			alert.LastPrice = model.Float(quote.Price)
		}

		s.logger.Info("alert created",
			"alert", alert.ShortID(),
			"owner", req.OwnerID,
			"route", alert.Route(),
			"date", model.FormatDate(alert.DepartureDate),
		)
		tracked = append(tracked, TrackedAlert{Alert: alert, Quote: quote})
	}
	return tracked, nil
}

// Search fetches every expanded route concurrently and ranks the quotes by price.
// Nothing is persisted.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	origins, err := model.ParseAirportCodes(req.Origins)
	if err != nil {
		return nil, err
	}
	destinations, err := model.ParseAirportCodes(req.Destinations)
	if err != nil {
		return nil, err
	}
	start, err := model.ParseDate(req.Start)
	if err != nil {
		return nil, err
	}
	end := start
	if req.End != "" {
		if end, err = model.ParseDate(req.End); err != nil {
			return nil, err
		}
	}
	if start.Before(model.DateOf(s.scheduler.clock.Now())) {
		return nil, &model.ValidationError{Field: "date", Reason: "start date is in the past"}
	}

	routes, err := ExpandSearch(origins, destinations, start, end)
	if err != nil {
		return nil, err
	}

	quotes := make([]*model.Quote, len(routes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, r := range routes {
		g.Go(func() error {
			q, err := s.searcher.Fetch(gctx, r.Origin, r.Destination, r.Date)
			if err != nil {
				s.logger.Debug("search quote unavailable", "origin", r.Origin, "destination", r.Destination, "date", model.FormatDate(r.Date), "error", err)
				return nil
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &SearchResult{Routes: len(routes), Quotes: make([]model.Quote, 0, len(routes))}
	for _, q := range quotes {
		if q == nil {
			result.Unavailable++
			continue
		}
		result.Quotes = append(result.Quotes, *q)
	}
	sort.SliceStable(result.Quotes, func(i, j int) bool {
		return result.Quotes[i].Price < result.Quotes[j].Price
	})
	if len(result.Quotes) > 0 {
		best := result.Quotes[0]
		result.Best = &best
	}
	return result, nil
}

// List returns the owner's active alerts, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]model.Alert, error) {
	list, err := s.store.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return list, nil
}

// Remove deactivates the owner's active alert identified by an id prefix.
func (s *Service) Remove(ctx context.Context, ownerID, prefix string) (*model.Alert, error) {
	alert, err := s.findByPrefix(ctx, ownerID, prefix)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Deactivate(ctx, alert.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("deactivate alert: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", prefix, model.ErrNotFound)
	}
	alert.Active = false
	s.logger.Info("alert removed", "alert", alert.ShortID(), "owner", ownerID)
	return alert, nil
}

// Check re-prices the owner's active alerts immediately.
func (s *Service) Check(ctx context.Context, ownerID string) (*SweepResult, error) {
	return s.scheduler.CheckOwner(ctx, ownerID)
}

// Sweep runs a full sweep outside the regular schedule.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	return s.scheduler.Sweep(ctx)
}

// History returns the price history of one of the owner's active alerts.
func (s *Service) History(ctx context.Context, ownerID, prefix string) (*AlertHistory, error) {
	alert, err := s.findByPrefix(ctx, ownerID, prefix)
	if err != nil {
		return nil, err
	}
	obs, err := s.store.ListObservations(ctx, alert.ID)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return &AlertHistory{Alert: *alert, Observations: obs}, nil
}

// findByPrefix resolves an id prefix among the owner's active alerts. An exact id always wins.
func (s *Service) findByPrefix(ctx context.Context, ownerID, prefix string) (*model.Alert, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, &model.ValidationError{Field: "id", Reason: "alert id is required"}
	}

	list, err := s.store.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	var matches []model.Alert
	for _, a := range list {
		if a.ID == prefix {
			return &a, nil
		}
		if strings.HasPrefix(a.ID, prefix) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("alert %s: %w", prefix, model.ErrNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("alert %s matches %d alerts: %w", prefix, len(matches), model.ErrAmbiguous)
	}
}
