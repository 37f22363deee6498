package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
// channel is the fallback when a notification has no "#channel" target of its own.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, n Notification) error {
	color := "#36a64f" // green
	if n.Reason == ReasonDropThreshold {
		color = "#ff9900" // orange
	}

	channel := s.channel
	if strings.HasPrefix(n.Target, "#") {
		channel = n.Target
	}

	fields := []slackField{
		{Title: "Route", Value: n.Origin + " → " + n.Destination, Short: true},
		{Title: "Date", Value: n.DepartureDate, Short: true},
		{Title: "Price", Value: fmt.Sprintf("$%.2f %s", n.Price, n.Currency), Short: true},
	}
	if n.PreviousPrice != nil {
		fields = append(fields, slackField{Title: "Previous", Value: fmt.Sprintf("$%.2f", *n.PreviousPrice), Short: true})
	}
	if n.TargetPrice != nil {
		fields = append(fields, slackField{Title: "Target", Value: fmt.Sprintf("$%.2f", *n.TargetPrice), Short: true})
	}
	if n.Carrier != "" {
		fields = append(fields, slackField{Title: "Carrier", Value: n.Carrier, Short: true})
	}

	payload := slackPayload{
		Channel: channel,
		Attachments: []slackAttachment{
			{
				Color:     color,
				Title:     fmt.Sprintf("FareWatch: %s", n.Headline()),
				TitleLink: n.BookingURL,
				Fields:    fields,
				Footer:    "FareWatch",
				Ts:        time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	TitleLink string       `json:"title_link,omitempty"`
	Fields    []slackField `json:"fields"`
	Footer    string       `json:"footer"`
	Ts        int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
