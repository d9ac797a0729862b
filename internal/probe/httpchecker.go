package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vigilhq/vigil/internal/domain"
)

// userAgent identifies our probes to the checked service. A monitor's
// configured headers take precedence on key collision.
const userAgent = "Vigil/1.0 (Cron Monitor)"

const defaultTimeout = 5 * time.Second

type HTTPChecker struct {
	Client *http.Client
}

// NewHTTPChecker builds a checker whose per-request deadline comes from
// each monitor's configured timeout, not from the client.
func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{Client: &http.Client{}}
}

func (h *HTTPChecker) Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome {
	start := time.Now()

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := m.Method
	if method == "" {
		method = http.MethodGet
	}

	var body *strings.Reader
	if m.Body != "" && methodCarriesBody(method) {
		body = strings.NewReader(m.Body)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(cctx, method, m.URL, body)
	} else {
		req, err = http.NewRequestWithContext(cctx, method, m.URL, nil)
	}
	if err != nil {
		return outcome(m.ID, domain.OutcomeError, nil, msSince(start), err.Error())
	}

	req.Header.Set("User-Agent", userAgent)
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	elapsed := msSince(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() == context.DeadlineExceeded {
			msg := fmt.Sprintf("request timed out after %v", timeout)
			return outcome(m.ID, domain.OutcomeTimeout, nil, elapsed, msg)
		}
		return outcome(m.ID, domain.OutcomeError, nil, elapsed, err.Error())
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code == m.ExpectedStatus {
		return outcome(m.ID, domain.OutcomeSuccess, &code, elapsed, "")
	}
	msg := fmt.Sprintf("expected %d, got %d", m.ExpectedStatus, code)
	return outcome(m.ID, domain.OutcomeFailure, &code, elapsed, msg)
}

func methodCarriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func msSince(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000
}

func outcome(id domain.MonitorID, kind domain.OutcomeKind, status *int, latency float64, msg string) domain.CheckOutcome {
	return domain.CheckOutcome{
		MonitorID:  id,
		Kind:       kind,
		HTTPStatus: status,
		LatencyMS:  &latency,
		Message:    msg,
		ExecutedAt: time.Now().UTC(),
	}
}
