package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cnawatch/cnawatch/internal/compute"
	"github.com/cnawatch/cnawatch/internal/config"
	"github.com/cnawatch/cnawatch/internal/report"
)

// Notifier posts a run's anomaly summary to the configured webhooks.
// A Notifier with no webhooks is valid; Send becomes a no-op.
type Notifier struct {
	webhooks []config.WebhookConfig
	max      int
	client   *http.Client
}

// New creates a Notifier from the notify configuration.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhooks: cfg.Webhooks,
		max:      cfg.MaxAnomalies,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers the report's top anomalies to every configured webhook.
// Runs with no anomalies send nothing. Delivery errors are logged per
// target and never affect the caller; notification is best-effort.
func (n *Notifier) Send(rep *report.Report) {
	if len(n.webhooks) == 0 || len(rep.Anomalies) == 0 {
		return
	}

	top := rep.Anomalies
	if len(top) > n.max {
		top = top[:n.max]
	}

	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, top, rep.Metadata)
		case "teams":
			err = n.sendTeams(url, top, rep.Metadata)
		case "http":
			err = n.sendHTTP(url, top, rep.Metadata)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed", "type", wh.Type, "err", err)
		} else {
			slog.Debug("notify: webhook delivered", "type", wh.Type, "anomalies", len(top))
		}
	}
}

func (n *Notifier) sendSlack(url string, top []report.Entry, meta report.Metadata) error {
	body, _ := json.Marshal(map[string]string{
		"text": summaryText(top, meta),
	})
	return n.post(url, body)
}

func (n *Notifier) sendTeams(url string, top []report.Entry, meta report.Metadata) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": statusColor(top[0].Status),
		"summary":    fmt.Sprintf("%d anomalous CNAs", meta.TotalAnomalies),
		"title":      "cnawatch: publication anomalies detected",
		"text":       summaryText(top, meta),
	}
	body, _ := json.Marshal(payload)
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, top []report.Entry, meta report.Metadata) error {
	body, _ := json.Marshal(map[string]interface{}{
		"metadata":  meta,
		"anomalies": top,
	})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// summaryText renders the human-readable anomaly digest shared by the slack
// and teams payloads.
func summaryText(top []report.Entry, meta report.Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d anomalous CNAs* in the %d-day window ending %s\n",
		meta.TotalAnomalies, meta.MonitoringWindowDays, meta.MonitoringEnd)
	for _, e := range top {
		b.WriteString("- ")
		b.WriteString(describe(e))
		b.WriteByte('\n')
	}
	if meta.TotalAnomalies > len(top) {
		fmt.Fprintf(&b, "...and %d more", meta.TotalAnomalies-len(top))
	}
	return strings.TrimRight(b.String(), "\n")
}

// describe renders one anomaly line.
func describe(e report.Entry) string {
	if e.Deviation.Unbounded {
		return fmt.Sprintf("%s (%s): %d published with no baseline history",
			e.Name, e.Status, e.CurrentCount)
	}
	return fmt.Sprintf("%s (%s): %d published vs %.2f/month baseline (%+.1f%%)",
		e.Name, e.Status, e.CurrentCount, e.BaselineAvg, e.Deviation.Pct)
}

func statusColor(s compute.Status) string {
	switch s {
	case compute.StatusDeclining:
		return "FF4F6A"
	case compute.StatusGrowth:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
