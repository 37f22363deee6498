package alerts

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To receives alerts whose notify target is not an email address.
	To []string
}

// EmailNotifier sends HTML price alerts over SMTP.
type EmailNotifier struct {
	cfg     EmailConfig
	timeout time.Duration
}

// NewEmailNotifier creates an SMTP notifier. STARTTLS is used whenever the server offers it.
func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, timeout: 10 * time.Second}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	to := e.recipients(n.Target)
	if len(to) == 0 {
		return fmt.Errorf("no email recipient for alert %s", n.AlertID)
	}

	msg, err := e.compose(n, to)
	if err != nil {
		return err
	}
	if err := e.deliver(ctx, to, msg); err != nil {
		return fmt.Errorf("send email alert: %w", err)
	}
	return nil
}

// recipients prefers an owner's own address over the configured list.
func (e *EmailNotifier) recipients(target string) []string {
	target = strings.TrimPrefix(strings.TrimSpace(target), "mailto:")
	if strings.Contains(target, "@") {
		if addr, err := mail.ParseAddress(target); err == nil {
			return []string{addr.Address}
		}
	}
	return e.cfg.To
}

var emailTemplate = template.Must(template.New("price_alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Flight Alert! {{.Origin}} → {{.Destination}}</h2>
  <p>Departure: {{.DepartureDate}}</p>
  <p style="font-size: 24px;"><strong>${{printf "%.2f" .Price}}</strong> {{.Currency}}</p>
  {{- if .Carrier}}
  <p>{{.Carrier}}, {{.Stops}} stop(s)</p>
  {{- end}}
  <p>{{.Headline}}</p>
  {{- if .Change}}
  <p style="color: #1a7f37;">{{.Change}}</p>
  {{- end}}
  {{- if .BookingURL}}
  <p><a href="{{.BookingURL}}">View on Google Flights</a></p>
  {{- end}}
  <p style="color: #888; font-size: 12px;">Alert {{.AlertID}}</p>
</body>
</html>
`))

type emailData struct {
	Notification
	Headline string
	Change   string
}

func (e *EmailNotifier) compose(n Notification, to []string) ([]byte, error) {
	data := emailData{Notification: n, Headline: n.Headline()}
	if n.PreviousPrice != nil && n.Price < *n.PreviousPrice {
		data.Change = fmt.Sprintf("Down $%.2f from last check", *n.PreviousPrice-n.Price)
	}

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	subject := fmt.Sprintf("Flight Alert: %s → %s on %s, $%.2f", n.Origin, n.Destination, n.DepartureDate, n.Price)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func (e *EmailNotifier) deliver(ctx context.Context, to []string, msg []byte) error {
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	dialer := net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
			return err
		}
	}
	if e.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)); err != nil {
			return err
		}
	}

	if err := c.Mail(e.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
