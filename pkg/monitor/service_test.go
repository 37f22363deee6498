package monitor_test

import (
	"context"
	"math"
	"testing"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Track(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fetcher.set("JFK", "LAX", "2026-03-15", 350)

	tracked, err := h.service.Track(ctx, monitor.TrackRequest{
		OwnerID:      h.owner.ID,
		NotifyTarget: "channel:42",
		Origins:      "jfk, EWR",
		Destinations: "LAX",
		Date:         "2026-03-15",
		TargetPrice:  model.Float(300),
	})
	require.NoError(t, err)
	require.Len(t, tracked, 2)
	assert.Equal(t, 2, h.fetcher.callCount())

	withQuote := tracked[0]
	assert.Equal(t, model.AirportCode("JFK"), withQuote.Alert.Origin)
	require.NotNil(t, withQuote.Quote)
	assert.Equal(t, 350.0, *withQuote.Alert.LastPrice)
	assert.Equal(t, 350.0, *h.reload(t, withQuote.Alert.ID).LastPrice)
	assert.Len(t, h.history(t, withQuote.Alert.ID), 1)

	noQuote := tracked[1]
	assert.Equal(t, model.AirportCode("EWR"), noQuote.Alert.Origin)
	assert.Nil(t, noQuote.Quote)
	assert.Nil(t, noQuote.Alert.LastPrice)
	assert.Empty(t, h.history(t, noQuote.Alert.ID))

	stored := h.reload(t, noQuote.Alert.ID)
	assert.True(t, stored.Active)
	assert.Equal(t, "channel:42", stored.NotifyTarget)
	assert.Equal(t, 300.0, *stored.TargetPrice)
	assert.Empty(t, h.notifier.notifications(), "tracking never notifies")
}

func TestService_TrackToday(t *testing.T) {
	h := newHarness(t)
	tracked, err := h.service.Track(context.Background(), monitor.TrackRequest{
		OwnerID: h.owner.ID, Origins: "JFK", Destinations: "LAX", Date: "2026-03-10",
	})
	require.NoError(t, err)
	assert.Len(t, tracked, 1)
}

func TestService_TrackRejectsBeforeFetching(t *testing.T) {
	tests := []struct {
		name string
		req  monitor.TrackRequest
	}{
		{"past date", monitor.TrackRequest{Origins: "JFK", Destinations: "LAX", Date: "2026-03-09"}},
		{"invalid date", monitor.TrackRequest{Origins: "JFK", Destinations: "LAX", Date: "2026-02-30"}},
		{"short code", monitor.TrackRequest{Origins: "JF", Destinations: "LAX", Date: "2026-03-15"}},
		{"numeric code", monitor.TrackRequest{Origins: "JFK", Destinations: "L4X", Date: "2026-03-15"}},
		{"empty origins", monitor.TrackRequest{Origins: " , ", Destinations: "LAX", Date: "2026-03-15"}},
		{"zero target", monitor.TrackRequest{Origins: "JFK", Destinations: "LAX", Date: "2026-03-15", TargetPrice: model.Float(0)}},
		{"infinite target", monitor.TrackRequest{Origins: "JFK", Destinations: "LAX", Date: "2026-03-15", TargetPrice: model.Float(math.Inf(1))}},
		{"negative infinite target", monitor.TrackRequest{Origins: "JFK", Destinations: "LAX", Date: "2026-03-15", TargetPrice: model.Float(math.Inf(-1))}},
		{"NaN target", monitor.TrackRequest{Origins: "JFK", Destinations: "LAX", Date: "2026-03-15", TargetPrice: model.Float(math.NaN())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.req.OwnerID = h.owner.ID

			_, err := h.service.Track(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, model.IsValidation(err), "got %v", err)
			assert.Equal(t, 0, h.fetcher.callCount())

			list, err := h.service.List(context.Background(), h.owner.ID)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestService_TrackOverBudget(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.Track(context.Background(), monitor.TrackRequest{
		OwnerID:      h.owner.ID,
		Origins:      "JFK,EWR,LGA",
		Destinations: "LAX,SFO,SEA",
		Date:         "2026-03-15",
	})
	assert.ErrorIs(t, err, model.ErrBudgetExceeded)
	assert.Equal(t, 0, h.fetcher.callCount())

	list, err := h.service.List(context.Background(), h.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_Search(t *testing.T) {
	h := newHarness(t)
	h.fetcher.set("JFK", "LAX", "2026-03-15", 320)
	h.fetcher.set("JFK", "LAX", "2026-03-16", 180)
	h.fetcher.set("EWR", "LAX", "2026-03-16", 240)

	res, err := h.service.Search(context.Background(), monitor.SearchRequest{
		Origins:      "JFK,EWR",
		Destinations: "LAX",
		Start:        "2026-03-15",
		End:          "2026-03-17",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Routes)
	assert.Equal(t, 3, res.Unavailable)
	assert.Equal(t, 6, h.fetcher.callCount())

	require.NotNil(t, res.Best)
	assert.Equal(t, 180.0, res.Best.Price)
	assert.Equal(t, date("2026-03-16"), res.Best.Date)
	require.Len(t, res.Quotes, 3)
	assert.Equal(t, []float64{180, 240, 320}, []float64{res.Quotes[0].Price, res.Quotes[1].Price, res.Quotes[2].Price})

	// Searching never creates alerts.
	list, err := h.service.List(context.Background(), h.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_SearchNothingFound(t *testing.T) {
	h := newHarness(t)
	res, err := h.service.Search(context.Background(), monitor.SearchRequest{
		Origins: "JFK", Destinations: "LAX", Start: "2026-03-15",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Routes)
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Quotes)
}

func TestService_SearchErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.Search(ctx, monitor.SearchRequest{Origins: "JFK", Destinations: "LAX", Start: "2026-03-20", End: "2026-03-15"})
	assert.True(t, model.IsValidation(err))

	_, err = h.service.Search(ctx, monitor.SearchRequest{Origins: "JFK", Destinations: "LAX", Start: "2026-03-01", End: "2026-03-15"})
	assert.True(t, model.IsValidation(err))

	_, err = h.service.Search(ctx, monitor.SearchRequest{Origins: "JFK,EWR", Destinations: "LAX", Start: "2026-03-15", End: "2026-03-30"})
	assert.ErrorIs(t, err, model.ErrBudgetExceeded)

	assert.Equal(t, 0, h.fetcher.callCount())
}

func TestService_RemoveByPrefix(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.addAlert(t, h.owner.ID, "JFK", "LAX", "2026-03-15", nil, nil)

	removed, err := h.service.Remove(ctx, h.owner.ID, a.ShortID())
	require.NoError(t, err)
	assert.Equal(t, a.ID, removed.ID)
	assert.False(t, removed.Active)
	assert.False(t, h.reload(t, a.ID).Active)

	_, err = h.service.Remove(ctx, h.owner.ID, a.ShortID())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_RemoveEnforcesOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.addAlert(t, h.owner.ID, "JFK", "LAX", "2026-03-15", nil, nil)

	intruder, err := h.service.ResolveOwner(ctx, "discord", "6666", "")
	require.NoError(t, err)

	_, err = h.service.Remove(ctx, intruder.ID, a.ShortID())
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = h.service.Remove(ctx, intruder.ID, a.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.True(t, h.reload(t, a.ID).Active)
}

func TestService_RemoveAmbiguousPrefix(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []string{"abc11111-0000-0000-0000-000000000000", "abc22222-0000-0000-0000-000000000000"} {
		require.NoError(t, h.db.CreateAlert(ctx, &model.Alert{
			ID: id, OwnerID: h.owner.ID, Origin: "JFK", Destination: "LAX", DepartureDate: date("2026-03-15"),
		}))
	}

	_, err := h.service.Remove(ctx, h.owner.ID, "abc")
	assert.ErrorIs(t, err, model.ErrAmbiguous)

	removed, err := h.service.Remove(ctx, h.owner.ID, "ABC2")
	require.NoError(t, err)
	assert.Equal(t, "abc22222-0000-0000-0000-000000000000", removed.ID)

	_, err = h.service.Remove(ctx, h.owner.ID, "  ")
	assert.True(t, model.IsValidation(err))
}

func TestService_History(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.addAlert(t, h.owner.ID, "JFK", "LAX", "2026-03-15", nil, nil)
	h.fetcher.set("JFK", "LAX", "2026-03-15", 400, 380)

	for range 2 {
		_, err := h.service.Check(ctx, h.owner.ID)
		require.NoError(t, err)
	}

	hist, err := h.service.History(ctx, h.owner.ID, a.ShortID())
	require.NoError(t, err)
	assert.Equal(t, a.ID, hist.Alert.ID)
	require.Len(t, hist.Observations, 2)
	assert.Equal(t, 400.0, hist.Observations[0].Price)
	assert.Equal(t, 380.0, hist.Observations[1].Price)

	other, err := h.service.ResolveOwner(ctx, "discord", "7777", "")
	require.NoError(t, err)
	_, err = h.service.History(ctx, other.ID, a.ShortID())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_ResolveOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.ResolveOwner(ctx, "discord", "", "")
	assert.True(t, model.IsValidation(err))

	again, err := h.service.ResolveOwner(ctx, "discord", "1001", "channel:99")
	require.NoError(t, err)
	assert.Equal(t, h.owner.ID, again.ID)
	assert.Equal(t, "channel:99", again.NotifyTarget)
}
