// Package incident opens automatic incidents for failed check outcomes.
package incident

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vigilhq/vigil/internal/domain"
	"github.com/vigilhq/vigil/internal/repo"
)

// Correlator links failed outcomes to the status pages their monitors
// are published on and opens incidents for pairs that have none active.
// It never resolves anything.
type Correlator struct {
	Logger    *zap.Logger
	Pages     repo.StatusPageStore
	Incidents repo.IncidentStore
}

func NewCorrelator(logger *zap.Logger, pages repo.StatusPageStore, incidents repo.IncidentStore) *Correlator {
	return &Correlator{Logger: logger, Pages: pages, Incidents: incidents}
}

// Correlate processes the full batch and returns how many incidents were
// opened. One monitor's failure never aborts the rest: errors are logged
// and the loop moves on.
func (c *Correlator) Correlate(ctx context.Context, monitors []domain.Monitor, outcomes []domain.CheckOutcome) int {
	byID := make(map[domain.MonitorID]domain.Monitor, len(monitors))
	for _, m := range monitors {
		byID[m.ID] = m
	}

	opened := 0
	for _, out := range outcomes {
		if !out.Kind.Failed() {
			continue
		}
		m, ok := byID[out.MonitorID]
		if !ok {
			continue
		}
		n, err := c.correlateOne(ctx, m, out)
		opened += n
		if err != nil {
			c.Logger.Warn("incident_correlation_failed",
				zap.String("monitor_id", string(m.ID)),
				zap.String("kind", string(out.Kind)),
				zap.Error(err),
			)
		}
	}
	return opened
}

func (c *Correlator) correlateOne(ctx context.Context, m domain.Monitor, out domain.CheckOutcome) (int, error) {
	pages, err := c.Pages.LinkedPages(ctx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("linked pages: %w", err)
	}
	// Monitors without a public status page never get incidents.
	if len(pages) == 0 {
		return 0, nil
	}

	opened := 0
	for _, page := range pages {
		draft := repo.IncidentDraft{
			StatusPageID: page.StatusPageID,
			MonitorID:    m.ID,
			Title:        fmt.Sprintf("%s is %s", m.Name, out.Kind),
			Impact:       domain.ImpactFor(out.Kind),
			Message:      alertMessage(out),
		}
		inc, created, err := c.Incidents.Open(ctx, draft)
		if err != nil {
			return opened, fmt.Errorf("open incident on page %s: %w", page.StatusPageID, err)
		}
		if !created {
			// Active incident already covers this (page, monitor) pair.
			continue
		}
		opened++
		c.Logger.Info("incident_opened",
			zap.String("incident_id", string(inc.ID)),
			zap.String("status_page_id", string(page.StatusPageID)),
			zap.String("monitor_id", string(m.ID)),
			zap.String("impact", string(inc.Impact)),
		)
	}
	return opened, nil
}

func alertMessage(out domain.CheckOutcome) string {
	if out.Message != "" {
		return fmt.Sprintf("Automated alert: check returned %s (%s)", out.Kind, out.Message)
	}
	return fmt.Sprintf("Automated alert: check returned %s", out.Kind)
}
