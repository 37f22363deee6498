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

// DiscordNotifier posts alerts to a Discord channel webhook.
// Targets of the form "discord:<user id>" are mentioned in the message.
type DiscordNotifier struct {
	webhookURL string
	username   string
	client     *http.Client
}

// NewDiscordNotifier creates a Discord webhook notifier.
func NewDiscordNotifier(webhookURL, username string) *DiscordNotifier {
	if username == "" {
		username = "FareWatch"
	}
	return &DiscordNotifier{
		webhookURL: webhookURL,
		username:   username,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Send(ctx context.Context, n Notification) error {
	content := FormatMessage(n)
	if userID, ok := strings.CutPrefix(n.Target, "discord:"); ok && userID != "" {
		content = fmt.Sprintf("<@%s> %s", userID, content)
	}

	body, err := json.Marshal(discordPayload{Username: d.username, Content: content})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord alert: %w", err)
	}
	defer resp.Body.Close()

	// Discord answers 204 unless ?wait=true is set.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}

type discordPayload struct {
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
}
