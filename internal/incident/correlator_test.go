package incident

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vigilhq/vigil/internal/domain"
	"github.com/vigilhq/vigil/internal/repo"
	"github.com/vigilhq/vigil/internal/repo/memory"
)

func seed(t *testing.T) (*memory.Store, domain.Monitor, domain.StatusPage) {
	t.Helper()
	mem := memory.New()
	m := mem.AddMonitor(domain.Monitor{
		Name:           "checkout api",
		URL:            "https://api.example.com/health",
		ExpectedStatus: 200,
		Enabled:        true,
	})
	page := mem.AddStatusPage(domain.StatusPage{
		UserID:   "U1",
		Slug:     "example",
		Name:     "Example Status",
		IsPublic: true,
	})
	mem.LinkPageMonitor(page.ID, m.ID, 0)
	return mem, m, page
}

func failureOutcome(id domain.MonitorID, kind domain.OutcomeKind, msg string) domain.CheckOutcome {
	return domain.CheckOutcome{
		MonitorID:  id,
		Kind:       kind,
		Message:    msg,
		ExecutedAt: time.Now().UTC(),
	}
}

func TestCorrelate_SuccessOpensNothing(t *testing.T) {
	mem, m, page := seed(t)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	code := 200
	opened := c.Correlate(context.Background(), []domain.Monitor{m}, []domain.CheckOutcome{{
		MonitorID:  m.ID,
		Kind:       domain.OutcomeSuccess,
		HTTPStatus: &code,
		ExecutedAt: time.Now().UTC(),
	}})
	if opened != 0 {
		t.Fatalf("success must not open incidents, opened %d", opened)
	}
	open, _ := mem.ListOpenByPage(context.Background(), page.ID)
	if len(open) != 0 {
		t.Fatalf("want no incidents, got %d", len(open))
	}
}

func TestCorrelate_FailureOpensMinorIncidentWithUpdate(t *testing.T) {
	mem, m, page := seed(t)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	opened := c.Correlate(context.Background(), []domain.Monitor{m},
		[]domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeFailure, "expected 200, got 500")})
	if opened != 1 {
		t.Fatalf("want 1 incident opened, got %d", opened)
	}

	open, _ := mem.ListOpenByPage(context.Background(), page.ID)
	if len(open) != 1 {
		t.Fatalf("want 1 open incident, got %d", len(open))
	}
	inc := open[0]
	if inc.Status != domain.IncidentInvestigating {
		t.Fatalf("want investigating, got %s", inc.Status)
	}
	if inc.Impact != domain.ImpactMinor {
		t.Fatalf("failure should be minor impact, got %s", inc.Impact)
	}
	if inc.Title != "checkout api is failure" {
		t.Fatalf("unexpected title %q", inc.Title)
	}

	updates, _ := mem.ListUpdates(context.Background(), inc.ID)
	if len(updates) != 1 {
		t.Fatalf("want exactly one initial update, got %d", len(updates))
	}
	if !strings.Contains(updates[0].Message, "expected 200, got 500") {
		t.Fatalf("update should carry the diagnostic, got %q", updates[0].Message)
	}
	if updates[0].Status != domain.IncidentInvestigating {
		t.Fatalf("update status should mirror the incident, got %s", updates[0].Status)
	}
}

func TestCorrelate_ErrorOutcomeIsMajorImpact(t *testing.T) {
	mem, m, page := seed(t)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	c.Correlate(context.Background(), []domain.Monitor{m},
		[]domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeError, "connection refused")})

	open, _ := mem.ListOpenByPage(context.Background(), page.ID)
	if len(open) != 1 || open[0].Impact != domain.ImpactMajor {
		t.Fatalf("error should open a major incident, got %+v", open)
	}
}

func TestCorrelate_TimeoutIsMinorImpact(t *testing.T) {
	mem, m, page := seed(t)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	c.Correlate(context.Background(), []domain.Monitor{m},
		[]domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeTimeout, "request timed out after 5s")})

	open, _ := mem.ListOpenByPage(context.Background(), page.ID)
	if len(open) != 1 || open[0].Impact != domain.ImpactMinor {
		t.Fatalf("timeout should open a minor incident, got %+v", open)
	}
}

func TestCorrelate_UnlinkedMonitorIsSkipped(t *testing.T) {
	mem := memory.New()
	m := mem.AddMonitor(domain.Monitor{Name: "orphan", Enabled: true})
	c := NewCorrelator(zap.NewNop(), mem, mem)

	opened := c.Correlate(context.Background(), []domain.Monitor{m},
		[]domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeError, "down")})
	if opened != 0 {
		t.Fatalf("unlinked monitors never get incidents, opened %d", opened)
	}
}

func TestCorrelate_DedupAcrossBatches(t *testing.T) {
	mem, m, page := seed(t)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	out := []domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeFailure, "expected 200, got 503")}
	if opened := c.Correlate(context.Background(), []domain.Monitor{m}, out); opened != 1 {
		t.Fatalf("first run should open, got %d", opened)
	}
	// Same failing check again: invariant says no second incident.
	if opened := c.Correlate(context.Background(), []domain.Monitor{m}, out); opened != 0 {
		t.Fatalf("second run must dedup, got %d", opened)
	}

	open, _ := mem.ListOpenByPage(context.Background(), page.ID)
	if len(open) != 1 {
		t.Fatalf("want exactly 1 open incident, got %d", len(open))
	}
}

func TestCorrelate_ResolvedIncidentAllowsNewOne(t *testing.T) {
	mem, m, page := seed(t)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	out := []domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeFailure, "flap")}
	c.Correlate(context.Background(), []domain.Monitor{m}, out)

	open, _ := mem.ListOpenByPage(context.Background(), page.ID)
	if !mem.ResolveIncident(open[0].ID) {
		t.Fatal("resolve failed")
	}

	if opened := c.Correlate(context.Background(), []domain.Monitor{m}, out); opened != 1 {
		t.Fatalf("resolved incidents no longer block, want 1 opened, got %d", opened)
	}
}

func TestCorrelate_MultiplePagesGetTheirOwnIncidents(t *testing.T) {
	mem, m, _ := seed(t)
	second := mem.AddStatusPage(domain.StatusPage{UserID: "U2", Slug: "two", Name: "Two", IsPublic: true})
	mem.LinkPageMonitor(second.ID, m.ID, 0)
	c := NewCorrelator(zap.NewNop(), mem, mem)

	opened := c.Correlate(context.Background(), []domain.Monitor{m},
		[]domain.CheckOutcome{failureOutcome(m.ID, domain.OutcomeError, "down")})
	if opened != 2 {
		t.Fatalf("want one incident per linked page, got %d", opened)
	}
}

// pagesWithFailure wraps a real page store but errors for one monitor.
type pagesWithFailure struct {
	repo.StatusPageStore
	failFor domain.MonitorID
}

func (p *pagesWithFailure) LinkedPages(ctx context.Context, id domain.MonitorID) ([]domain.PageLink, error) {
	if id == p.failFor {
		return nil, errors.New("link table unavailable")
	}
	return p.StatusPageStore.LinkedPages(ctx, id)
}

func TestCorrelate_OneMonitorsFailureDoesNotAbortOthers(t *testing.T) {
	mem, m, page := seed(t)
	broken := mem.AddMonitor(domain.Monitor{Name: "broken", Enabled: true})
	mem.LinkPageMonitor(page.ID, broken.ID, 1)

	c := NewCorrelator(zap.NewNop(), &pagesWithFailure{StatusPageStore: mem, failFor: broken.ID}, mem)

	outs := []domain.CheckOutcome{
		failureOutcome(broken.ID, domain.OutcomeError, "down"),
		failureOutcome(m.ID, domain.OutcomeFailure, "expected 200, got 500"),
	}
	opened := c.Correlate(context.Background(), []domain.Monitor{broken, m}, outs)
	if opened != 1 {
		t.Fatalf("healthy monitor should still get its incident, opened %d", opened)
	}
}
