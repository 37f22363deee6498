package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/alerts"
	"github.com/ogulcanaydogan/FareWatch/pkg/clock"
	"github.com/ogulcanaydogan/FareWatch/pkg/fetcher"
	"github.com/ogulcanaydogan/FareWatch/pkg/metrics"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
	"github.com/ogulcanaydogan/FareWatch/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeFetcher serves queued prices per route. The last queued price repeats;
// routes without prices are unavailable.
type fakeFetcher struct {
	mu     sync.Mutex
	prices map[string][]float64
	calls  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{prices: make(map[string][]float64)}
}

func fareKey(origin, destination model.AirportCode, d time.Time) string {
	return fmt.Sprintf("%s-%s-%s", origin, destination, model.FormatDate(d))
}

func (f *fakeFetcher) set(origin, destination, day string, prices ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[fareKey(model.AirportCode(origin), model.AirportCode(destination), date(day))] = prices
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(_ context.Context, origin, destination model.AirportCode, d time.Time) (*model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	key := fareKey(origin, destination, d)
	queue := f.prices[key]
	if len(queue) == 0 {
		return nil, fmt.Errorf("fake %s: %w", key, fetcher.ErrUnavailable)
	}
	if len(queue) > 1 {
		f.prices[key] = queue[1:]
	}
	return &model.Quote{
		Origin:      origin,
		Destination: destination,
		Date:        d,
		Price:       queue[0],
		Currency:    "USD",
		Carrier:     "Delta",
	}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []alerts.Notification
	err  error
}

func (n *recordingNotifier) Name() string { return "recorder" }

func (n *recordingNotifier) Send(_ context.Context, notif alerts.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notif)
	return nil
}

func (n *recordingNotifier) notifications() []alerts.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]alerts.Notification(nil), n.sent...)
}

// failingStore fails history writes for one alert.
type failingStore struct {
	storage.Storage
	failFor string
}

func (s *failingStore) RecordObservation(ctx context.Context, alertID string, price float64, at time.Time) (*model.PriceObservation, error) {
	if alertID == s.failFor {
		return nil, errors.New("disk I/O error")
	}
	return s.Storage.RecordObservation(ctx, alertID, price, at)
}

type harness struct {
	db        *storage.SQLite
	store     storage.Storage
	fetcher   *fakeFetcher
	notifier  *recordingNotifier
	clock     *clock.Fake
	metrics   *metrics.Metrics
	scheduler *monitor.Scheduler
	service   *monitor.Service
	owner     *model.Owner
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithStore(t, nil)
}

func newHarnessWithStore(t *testing.T, wrap func(storage.Storage) storage.Storage) *harness {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		db:       db,
		store:    db,
		fetcher:  newFakeFetcher(),
		notifier: &recordingNotifier{},
		clock:    clock.NewFake(testNow),
		metrics:  metrics.New("test", prometheus.NewRegistry()),
	}
	if wrap != nil {
		h.store = wrap(db)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h.scheduler = monitor.NewScheduler(h.store, h.fetcher, []alerts.Notifier{h.notifier}, h.metrics, h.clock,
		monitor.SchedulerConfig{Interval: time.Hour, AlertTimeout: 5 * time.Second}, logger)
	h.service = monitor.NewService(h.store, h.scheduler, nil, 2, logger)

	h.owner, err = db.ResolveOwner(context.Background(), "discord", "1001", "channel:42")
	require.NoError(t, err)
	return h
}

func (h *harness) addAlert(t *testing.T, ownerID, origin, destination, day string, target, last *float64) *model.Alert {
	t.Helper()
	a := &model.Alert{
		OwnerID:       ownerID,
		NotifyTarget:  "channel:42",
		Origin:        model.AirportCode(origin),
		Destination:   model.AirportCode(destination),
		DepartureDate: date(day),
		TargetPrice:   target,
		LastPrice:     last,
	}
	require.NoError(t, h.db.CreateAlert(context.Background(), a))
	return a
}

func (h *harness) reload(t *testing.T, id string) *model.Alert {
	t.Helper()
	a, err := h.db.GetAlert(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (h *harness) history(t *testing.T, id string) []model.PriceObservation {
	t.Helper()
	obs, err := h.db.ListObservations(context.Background(), id)
	require.NoError(t, err)
	return obs
}
