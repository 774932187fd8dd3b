package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	qhttp "github.com/quilr/qonboard/http"
)

// deliveryTimeout bounds a single webhook post. Notifications are not retried.
const deliveryTimeout = 10 * time.Second

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Notify(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	switch e.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	args := []any{"event", e.Type, "run_id", e.RunID}
	if e.Ticket != "" {
		args = append(args, "ticket", e.Ticket)
	}
	if e.Environment != "" {
		args = append(args, "env", e.Environment)
	}
	for _, k := range sortedKeys(e.Metadata) {
		args = append(args, k, e.Metadata[k])
	}
	n.logger.Log(ctx, level, e.Message, args...)
	return nil
}

func newPoster(url, service string) *qhttp.Client {
	return qhttp.NewClient(qhttp.ClientConfig{
		BaseURL:     url,
		ServiceName: service,
		MaxRetries:  1,
		Client:      &http.Client{Timeout: deliveryTimeout},
	})
}

// webhookNotifier posts the Event JSON as is.
type webhookNotifier struct {
	client *qhttp.Client
}

func newWebhookNotifier(url string) *webhookNotifier {
	return &webhookNotifier{client: newPoster(url, "webhook")}
}

func (n *webhookNotifier) Notify(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return n.client.Post(ctx, "", e, nil)
}

// slackNotifier posts one attachment per event to an incoming webhook.
type slackNotifier struct {
	client  *qhttp.Client
	channel string
}

func newSlackNotifier(url, channel string) *slackNotifier {
	return &slackNotifier{client: newPoster(url, "slack"), channel: channel}
}

type slackMessage struct {
	Username    string            `json:"username"`
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (n *slackNotifier) Notify(ctx context.Context, e Event) error {
	return n.client.Post(ctx, "", n.message(e), nil)
}

func (n *slackNotifier) message(e Event) slackMessage {
	att := slackAttachment{
		Color:  slackColor(e.Severity),
		Title:  slackEmoji(e.Type) + " " + strings.ReplaceAll(string(e.Type), "_", " "),
		Text:   e.Message,
		Footer: slackFooter(e),
	}
	if !e.Timestamp.IsZero() {
		att.TS = e.Timestamp.Unix()
	}
	for _, k := range sortedKeys(e.Metadata) {
		att.Fields = append(att.Fields, slackField{Title: k, Value: fmt.Sprint(e.Metadata[k]), Short: true})
	}
	return slackMessage{Username: "qonboard", Channel: n.channel, Attachments: []slackAttachment{att}}
}

func slackEmoji(t EventType) string {
	switch t {
	case EventTicketStarted:
		return ":rocket:"
	case EventTicketCompleted, EventEnvironmentCompleted:
		return ":white_check_mark:"
	case EventTicketPaused:
		return ":pause_button:"
	case EventTicketFailed:
		return ":x:"
	case EventRunCompleted:
		return ":checkered_flag:"
	}
	return ":bell:"
}

func slackColor(severity string) string {
	switch severity {
	case SeverityError:
		return "danger"
	case SeverityWarning:
		return "warning"
	}
	return "good"
}

func slackFooter(e Event) string {
	parts := make([]string, 0, 3)
	if e.Ticket != "" {
		parts = append(parts, "Ticket: "+e.Ticket)
	}
	if e.Environment != "" {
		parts = append(parts, "Env: "+e.Environment)
	}
	if e.RunID != "" {
		parts = append(parts, "Run: "+e.RunID)
	}
	return strings.Join(parts, " | ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
