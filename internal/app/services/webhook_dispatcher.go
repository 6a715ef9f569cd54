package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faeln1/second-brain/internal/domain/summary"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const EventSummaryCreated = "summary.created"

// WebhookConfig is the outbound endpoint notified about new summaries.
type WebhookConfig struct {
	URL     string
	Headers map[string]string
}

type webhookNotifier struct {
	cfg    WebhookConfig
	client *http.Client
	log    waLog.Logger
	now    func() time.Time
}

// NewWebhookNotifier returns nil when no URL is configured.
func NewWebhookNotifier(cfg WebhookConfig, client *http.Client, log waLog.Logger) SummaryNotifier {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = waLog.Noop
	}
	return &webhookNotifier{cfg: cfg, client: client, log: log, now: time.Now}
}

func (d *webhookNotifier) Name() string { return "webhook" }

func (d *webhookNotifier) NotifySummary(ctx context.Context, rec summary.Record) error {
	targetURL := strings.TrimSpace(d.cfg.URL)
	body := map[string]any{
		"event":     EventSummaryCreated,
		"timestamp": d.now().UTC().Format(time.RFC3339),
		"data":      rec,
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range d.cfg.Headers {
		req.Header.Set(k, v)
	}
	d.log.Debugf("webhook dispatch start group=%s date=%s url=%s", rec.GroupID, rec.Date, targetURL)
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", targetURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	d.log.Debugf("webhook dispatch success group=%s status=%d", rec.GroupID, resp.StatusCode)
	return nil
}
