package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/alerts"
	"github.com/ogulcanaydogan/FareWatch/pkg/clock"
	"github.com/ogulcanaydogan/FareWatch/pkg/fetcher"
	"github.com/ogulcanaydogan/FareWatch/pkg/metrics"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/storage"
)

const (
	DefaultInterval     = 360 * time.Minute
	DefaultAlertTimeout = 30 * time.Second
)

// Trigger names what started a sweep.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerOwner     Trigger = "owner"
)

// CheckStatus is the outcome of checking a single alert.
type CheckStatus string

const (
	StatusChecked     CheckStatus = "checked"
	StatusSkipped     CheckStatus = "skipped"
	StatusUnavailable CheckStatus = "unavailable"
	StatusFailed      CheckStatus = "failed"
)

// SchedulerConfig tunes the periodic sweep.
type SchedulerConfig struct {
	Interval     time.Duration
	AlertTimeout time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = DefaultAlertTimeout
	}
	return c
}

// CheckResult describes what happened to one alert during a sweep.
type CheckResult struct {
	Alert         model.Alert  `json:"alert"`
	Status        CheckStatus  `json:"status"`
	Quote         *model.Quote `json:"quote,omitempty"`
	PreviousPrice *float64     `json:"previous_price,omitempty"`
	Decision      Decision     `json:"decision"`
	Delivered     int          `json:"delivered"`
	Error         string       `json:"error,omitempty"`
}

// Change is the price movement against the previously stored price.
func (r CheckResult) Change() (float64, bool) {
	if r.Quote == nil || r.PreviousPrice == nil {
		return 0, false
	}
	return r.Quote.Price - *r.PreviousPrice, true
}

// SweepResult summarizes a pass over a set of alerts.
type SweepResult struct {
	Trigger     Trigger       `json:"trigger"`
	StartedAt   time.Time     `json:"started_at"`
	Checked     int           `json:"checked"`
	Skipped     int           `json:"skipped"`
	Unavailable int           `json:"unavailable"`
	Failed      int           `json:"failed"`
	Notified    int           `json:"notified"`
	Results     []CheckResult `json:"results"`
}

func (r *SweepResult) add(c CheckResult) {
	switch c.Status {
	case StatusChecked:
		r.Checked++
		if c.Decision.Notify {
			r.Notified++
		}
	case StatusSkipped:
		r.Skipped++
	case StatusUnavailable:
		r.Unavailable++
	case StatusFailed:
		r.Failed++
	}
	r.Results = append(r.Results, c)
}

// Scheduler re-prices active alerts and dispatches notifications.
// Sweeps never overlap: a manual check waits for a running sweep and vice versa.
type Scheduler struct {
	store     storage.Storage
	fetcher   fetcher.PriceFetcher
	notifiers []alerts.Notifier
	metrics   *metrics.Metrics
	clock     clock.Clock
	cfg       SchedulerConfig
	logger    *slog.Logger

	mu sync.Mutex
}

// NewScheduler creates a scheduler. m may be nil.
func NewScheduler(store storage.Storage, f fetcher.PriceFetcher, notifiers []alerts.Notifier, m *metrics.Metrics, clk clock.Clock, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{
		store:     store,
		fetcher:   f,
		notifiers: notifiers,
		metrics:   m,
		clock:     clk,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Interval returns the configured sweep interval.
func (s *Scheduler) Interval() time.Duration { return s.cfg.Interval }

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Run sweeps immediately and then on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval.String(),
		"fetcher", s.fetcher.Name(),
		"notifiers", len(s.notifiers),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.sweep(ctx, TriggerScheduled); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep checks every active alert whose departure date has not passed.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	return s.sweep(ctx, TriggerManual)
}

// CheckOwner runs the sweep procedure over one owner's active alerts.
func (s *Scheduler) CheckOwner(ctx context.Context, ownerID string) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alertList, err := s.store.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner alerts: %w", err)
	}
	return s.process(ctx, TriggerOwner, alertList)
}

func (s *Scheduler) sweep(ctx context.Context, trigger Trigger) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alertList, err := s.store.ListAllActiveNotPast(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	return s.process(ctx, trigger, alertList)
}

// process must be called with s.mu held. Cancellation is only observed between alerts.
func (s *Scheduler) process(ctx context.Context, trigger Trigger, alertList []model.Alert) (*SweepResult, error) {
	began := time.Now()
	result := &SweepResult{Trigger: trigger, StartedAt: s.clock.Now()}
	today := model.DateOf(result.StartedAt)

	var interrupted error
	for _, a := range alertList {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		result.add(s.checkAlert(ctx, a, today))
	}

	s.metrics.ObserveSweep(string(trigger), time.Since(began))
	s.logger.Info("sweep complete",
		"trigger", trigger,
		"alerts", len(alertList),
		"checked", result.Checked,
		"skipped", result.Skipped,
		"unavailable", result.Unavailable,
		"failed", result.Failed,
		"notified", result.Notified,
		"duration", time.Since(began).String(),
	)

	if interrupted != nil {
		return result, fmt.Errorf("sweep interrupted after %d of %d alerts: %w", len(result.Results), len(alertList), interrupted)
	}
	return result, nil
}

func (s *Scheduler) checkAlert(parent context.Context, a model.Alert, today time.Time) CheckResult {
	res := CheckResult{Alert: a, PreviousPrice: a.LastPrice}
	log := s.logger.With("alert", a.ShortID(), "route", a.Route(), "date", model.FormatDate(a.DepartureDate))

	if a.IsPast(today) {
		res.Status = StatusSkipped
		s.metrics.IncSkipped()
		log.Debug("departure date passed, skipping")
		return res
	}

	// An in-flight alert finishes even if the sweep is being cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.cfg.AlertTimeout)
	defer cancel()

	quote, err := s.fetcher.Fetch(ctx, a.Origin, a.Destination, a.DepartureDate)
	if err != nil {
		res.Status = StatusUnavailable
		res.Error = err.Error()
		s.metrics.IncUnavailable()
		log.Warn("price unavailable", "error", err)
		return res
	}
	res.Quote = quote
	res.Decision = Decide(a, *quote)

	if _, err := s.store.RecordObservation(ctx, a.ID, quote.Price, s.clock.Now()); err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		s.metrics.IncPersistenceError()
		log.Error("record observation", "price", quote.Price, "error", err)
		return res
	}
	res.Status = StatusChecked
	s.metrics.IncChecked()
	s.metrics.IncObservation()
	log.Debug("price recorded", "price", quote.Price, "notify", res.Decision.Notify)

	if res.Decision.Notify {
		res.Delivered = s.notify(ctx, a, *quote, res.Decision.Reason)
	}
	return res
}

// notify delivers to every configured notifier. Failures are logged, never returned.
func (s *Scheduler) notify(ctx context.Context, a model.Alert, q model.Quote, reason alerts.Reason) int {
	n := alerts.Notification{
		AlertID:       a.ID,
		Target:        a.NotifyTarget,
		Reason:        reason,
		Origin:        a.Origin.String(),
		Destination:   a.Destination.String(),
		DepartureDate: model.FormatDate(a.DepartureDate),
		Price:         q.Price,
		Currency:      q.Currency,
		PreviousPrice: a.LastPrice,
		TargetPrice:   a.TargetPrice,
		Carrier:       q.Carrier,
		Stops:         q.Stops,
		BookingURL:    q.BookingURL,
	}
	if n.BookingURL == "" {
		n.BookingURL = fetcher.BookingURL(a.Origin, a.Destination, a.DepartureDate)
	}
	n.Message = alerts.FormatMessage(n)

	s.logger.Warn("price alert triggered",
		"alert", a.ShortID(),
		"route", a.Route(),
		"reason", reason,
		"price", q.Price,
	)

	delivered := 0
	for _, notifier := range s.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			s.metrics.IncNotificationError(notifier.Name())
			s.logger.Error("send notification", "notifier", notifier.Name(), "alert", a.ShortID(), "error", err)
			continue
		}
		s.metrics.IncNotification(notifier.Name(), string(reason))
		delivered++
	}
	return delivered
}
