// Package notify posts run summaries to Discord webhooks. Delivery is
// fire-and-forget: a missing webhook or a failed post never affects the run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Summary is the per-tier result announced after a run.
type Summary struct {
	Tier     string `json:"tier"`
	FileName string `json:"file_name"`
	TabName  string `json:"tab_name"`
	RowCount int    `json:"row_count"`
	Location string `json:"location"`
}

// Discord posts summaries to a webhook URL. Discord allows 30 webhook
// executions per minute; the limiter keeps bursts of tier notifications
// under that.
type Discord struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewDiscord builds a webhook client. An empty URL produces a client that
// logs and skips every send.
func NewDiscord(webhookURL string, timeout time.Duration, perMinute int) *Discord {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Notify sends one message for the summary. Returns an error for the caller
// to log; callers must treat failures as non-fatal.
func (d *Discord) Notify(ctx context.Context, s Summary) error {
	if d.webhookURL == "" {
		zap.L().Info("notify: webhook not set, skipping", zap.String("tier", s.Tier))
		return nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notify: rate limiter wait")
	}

	content := fmt.Sprintf(
		"**Telesales list ready – %s (%s)**\n📄 **File:** %s\n🗂️ **Tab:** %s\n📊 **Rows:** %d\n%s",
		s.TabName, s.Tier, s.FileName, s.TabName, s.RowCount, s.Location,
	)

	payload, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return eris.Wrap(err, "notify: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: post webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("notify: sent",
		zap.String("tier", s.Tier),
		zap.Int("rows", s.RowCount),
	)
	return nil
}
