package alerts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogulcanaydogan/FareWatch/pkg/alerts"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotification() alerts.Notification {
	return alerts.Notification{
		AlertID:       "a1b2c3d4-0000",
		Reason:        alerts.ReasonTargetHit,
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2026-03-15",
		Price:         280,
		Currency:      "USD",
		PreviousPrice: model.Float(350),
		TargetPrice:   model.Float(300),
		Carrier:       "JetBlue",
		BookingURL:    "https://www.google.com/travel/flights?q=JFK+to+LAX+2026-03-15",
	}
}

func TestSlackNotifier_Name(t *testing.T) {
	n := alerts.NewSlackNotifier("https://hooks.slack.com/test", "#test")
	assert.Equal(t, "slack", n.Name())
}

func TestSlackNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)

		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#flights")

	err := n.Send(context.Background(), sampleNotification())
	require.NoError(t, err)
	assert.Equal(t, "#flights", received["channel"])

	attachments, ok := received["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	first := attachments[0].(map[string]any)
	assert.Contains(t, first["title"], "Hit your target of $300.00")
}

func TestSlackNotifier_Send_TargetChannel(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	note := sampleNotification()
	note.Target = "#cheap-fares"
	n := alerts.NewSlackNotifier(server.URL, "#flights")
	require.NoError(t, n.Send(context.Background(), note))
	assert.Equal(t, "#cheap-fares", received["channel"])
}

func TestSlackNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#test")
	err := n.Send(context.Background(), sampleNotification())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSlackNotifier_Reasons(t *testing.T) {
	tests := []struct {
		reason alerts.Reason
	}{
		{alerts.ReasonTargetHit},
		{alerts.ReasonDropThreshold},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			note := sampleNotification()
			note.Reason = tt.reason
			n := alerts.NewSlackNotifier(server.URL, "#test")
			require.NoError(t, n.Send(context.Background(), note))
		})
	}
}

func TestFormatMessage(t *testing.T) {
	note := sampleNotification()
	msg := alerts.FormatMessage(note)
	assert.Contains(t, msg, "JFK → LAX on 2026-03-15")
	assert.Contains(t, msg, "$280.00 USD")
	assert.Contains(t, msg, "Hit your target of $300.00!")
	assert.Contains(t, msg, note.BookingURL)

	note.Reason = alerts.ReasonDropThreshold
	assert.Contains(t, alerts.FormatMessage(note), "Dropped $70.00 since the last check!")
}
