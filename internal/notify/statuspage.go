package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vigilhq/vigil/internal/domain"
)

const statuspageAPI = "https://api.statuspage.io"

// Statuspage pushes component status to the Statuspage API and, on any
// non-success outcome, opens an incident there as well. This is the
// external status-reporting side; it is unrelated to our own incident
// correlator.
type Statuspage struct {
	BaseURL string // overridable for tests
	Client  *http.Client
}

func NewStatuspage() *Statuspage {
	return &Statuspage{
		BaseURL: statuspageAPI,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Statuspage) Name() string { return "statuspage" }

func (s *Statuspage) Configured(m domain.Monitor) bool {
	return m.StatuspageAPIKey != "" && m.StatuspagePageID != "" && m.StatuspageComponentID != ""
}

// componentStatus maps an outcome kind onto Statuspage's component
// vocabulary.
func componentStatus(k domain.OutcomeKind) string {
	switch k {
	case domain.OutcomeSuccess:
		return "operational"
	case domain.OutcomeFailure:
		return "degraded_performance"
	case domain.OutcomeTimeout:
		return "partial_outage"
	case domain.OutcomeError:
		return "major_outage"
	}
	return "operational"
}

func (s *Statuspage) Notify(ctx context.Context, m domain.Monitor, out domain.CheckOutcome) error {
	status := componentStatus(out.Kind)

	componentURL := fmt.Sprintf("%s/v1/pages/%s/components/%s",
		s.BaseURL, m.StatuspagePageID, m.StatuspageComponentID)
	payload := map[string]any{
		"component": map[string]string{"status": status},
	}
	if err := s.call(ctx, http.MethodPut, componentURL, m.StatuspageAPIKey, payload); err != nil {
		return fmt.Errorf("update component: %w", err)
	}

	if out.Kind == domain.OutcomeSuccess {
		return nil
	}

	body := out.Message
	if body == "" {
		body = fmt.Sprintf("Monitor check returned %s", out.Kind)
	}
	incidentURL := fmt.Sprintf("%s/v1/pages/%s/incidents", s.BaseURL, m.StatuspagePageID)
	payload = map[string]any{
		"incident": map[string]any{
			"name":          fmt.Sprintf("%s - %s", m.Name, out.Kind),
			"status":        "investigating",
			"body":          body,
			"component_ids": []string{m.StatuspageComponentID},
			"components": map[string]string{
				m.StatuspageComponentID: status,
			},
		},
	}
	if err := s.call(ctx, http.MethodPost, incidentURL, m.StatuspageAPIKey, payload); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (s *Statuspage) call(ctx context.Context, method, url, apiKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("statuspage non-2xx: " + resp.Status)
	}
	return nil
}
