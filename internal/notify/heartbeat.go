package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vigilhq/vigil/internal/domain"
)

// Heartbeat talks to dead-man's-switch style services: a plain GET to
// the heartbeat URL on success, a POST to <url>/fail with the diagnostic
// message on anything else.
type Heartbeat struct {
	Client *http.Client
}

func NewHeartbeat() *Heartbeat {
	return &Heartbeat{Client: &http.Client{Timeout: 10 * time.Second}}
}

func (h *Heartbeat) Name() string { return "heartbeat" }

func (h *Heartbeat) Configured(m domain.Monitor) bool {
	return m.HeartbeatURL != ""
}

func (h *Heartbeat) Notify(ctx context.Context, m domain.Monitor, out domain.CheckOutcome) error {
	if out.Kind == domain.OutcomeSuccess {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.HeartbeatURL, nil)
		if err != nil {
			return err
		}
		return h.do(req)
	}

	msg := out.Message
	if msg == "" {
		msg = fmt.Sprintf("check failed with status: %s", out.Kind)
	}
	failURL := strings.TrimRight(m.HeartbeatURL, "/") + "/fail"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, failURL, strings.NewReader(msg))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	return h.do(req)
}

func (h *Heartbeat) do(req *http.Request) error {
	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("heartbeat non-2xx: " + resp.Status)
	}
	return nil
}
