package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigilhq/vigil/internal/domain"
	"github.com/vigilhq/vigil/internal/repo"
)

type pageMonitorLink struct {
	pageID       domain.StatusPageID
	monitorID    domain.MonitorID
	displayOrder int
}

type incidentMonitorLink struct {
	incidentID domain.IncidentID
	monitorID  domain.MonitorID
}

// Store keeps everything in process memory. It backs tests and the
// no-database dev mode; the postgres adapter is the production path.
type Store struct {
	mu               sync.RWMutex
	monitors         map[domain.MonitorID]*domain.Monitor
	pages            map[domain.StatusPageID]*domain.StatusPage
	pageMonitors     []pageMonitorLink
	outcomes         []domain.CheckOutcome
	incidents        map[domain.IncidentID]*domain.Incident
	incidentMonitors []incidentMonitorLink
	updates          []domain.IncidentUpdate
}

func New() *Store {
	return &Store{
		monitors:  make(map[domain.MonitorID]*domain.Monitor),
		pages:     make(map[domain.StatusPageID]*domain.StatusPage),
		outcomes:  make([]domain.CheckOutcome, 0, 128),
		incidents: make(map[domain.IncidentID]*domain.Incident),
	}
}

// ---- seeding (used by tests and the dev CLI path) ----

func (s *Store) AddMonitor(m domain.Monitor) domain.Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = domain.MonitorID(uuid.NewString())
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.monitors[m.ID] = &m
	return m
}

func (s *Store) AddStatusPage(p domain.StatusPage) domain.StatusPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = domain.StatusPageID(uuid.NewString())
	}
	s.pages[p.ID] = &p
	return p
}

func (s *Store) LinkPageMonitor(pageID domain.StatusPageID, monitorID domain.MonitorID, displayOrder int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageMonitors = append(s.pageMonitors, pageMonitorLink{
		pageID:       pageID,
		monitorID:    monitorID,
		displayOrder: displayOrder,
	})
}

// ResolveIncident closes an incident the way the (out-of-scope) manual
// flow would: status resolved plus a resolution timestamp.
func (s *Store) ResolveIncident(id domain.IncidentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return false
	}
	now := time.Now().UTC()
	inc.Status = domain.IncidentResolved
	inc.ResolvedAt = &now
	return true
}

// ---- repo.MonitorStore ----

func (s *Store) ListEnabled(ctx context.Context) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		if m.Enabled {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- repo.ResultStore ----

func (s *Store) AppendBatch(ctx context.Context, outcomes []domain.CheckOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcomes...)
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outcomes[:0]
	for _, o := range s.outcomes {
		if !o.ExecutedAt.Before(cutoff) {
			kept = append(kept, o)
		}
	}
	s.outcomes = kept
	return nil
}

func (s *Store) LatestByMonitor(ctx context.Context, id domain.MonitorID) (*domain.CheckOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.CheckOutcome
	for i := range s.outcomes {
		o := s.outcomes[i]
		if o.MonitorID != id {
			continue
		}
		if latest == nil || o.ExecutedAt.After(latest.ExecutedAt) {
			cp := o
			latest = &cp
		}
	}
	return latest, nil
}

func (s *Store) UptimeSince(ctx context.Context, id domain.MonitorID, since time.Time) (repo.UptimeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st repo.UptimeStats
	for _, o := range s.outcomes {
		if o.MonitorID != id || o.ExecutedAt.Before(since) {
			continue
		}
		st.Total++
		if o.Kind == domain.OutcomeSuccess {
			st.Successful++
		}
	}
	return st, nil
}

// OutcomeCount reports how many outcome rows are stored. Test helper.
func (s *Store) OutcomeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}

// ---- repo.StatusPageStore ----

func (s *Store) LinkedPages(ctx context.Context, id domain.MonitorID) ([]domain.PageLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PageLink
	for _, l := range s.pageMonitors {
		if l.monitorID != id {
			continue
		}
		owner := ""
		if p := s.pages[l.pageID]; p != nil {
			owner = p.UserID
		}
		out = append(out, domain.PageLink{StatusPageID: l.pageID, OwnerID: owner})
	}
	return out, nil
}

func (s *Store) GetPublicBySlug(ctx context.Context, slug string) (*domain.StatusPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages {
		if p.Slug == slug && p.IsPublic {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Store) PageMonitors(ctx context.Context, id domain.StatusPageID) ([]domain.PageMonitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PageMonitor
	for _, l := range s.pageMonitors {
		if l.pageID != id {
			continue
		}
		m := s.monitors[l.monitorID]
		if m == nil {
			continue
		}
		out = append(out, domain.PageMonitor{Monitor: *m, DisplayOrder: l.displayOrder})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// ---- repo.IncidentStore ----

func (s *Store) FindActive(ctx context.Context, page domain.StatusPageID, monitor domain.MonitorID) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findActiveLocked(page, monitor), nil
}

func (s *Store) findActiveLocked(page domain.StatusPageID, monitor domain.MonitorID) *domain.Incident {
	for _, l := range s.incidentMonitors {
		if l.monitorID != monitor {
			continue
		}
		inc := s.incidents[l.incidentID]
		if inc == nil || inc.StatusPageID != page || inc.Resolved() {
			continue
		}
		cp := *inc
		return &cp
	}
	return nil
}

// Open holds the write lock across the dedup check and the creation, so
// the check-then-act sequence is atomic within this store.
func (s *Store) Open(ctx context.Context, draft repo.IncidentDraft) (*domain.Incident, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findActiveLocked(draft.StatusPageID, draft.MonitorID); existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	inc := &domain.Incident{
		ID:           domain.IncidentID(uuid.NewString()),
		StatusPageID: draft.StatusPageID,
		Title:        draft.Title,
		Status:       domain.IncidentInvestigating,
		Impact:       draft.Impact,
		MonitorIDs:   []domain.MonitorID{draft.MonitorID},
		CreatedAt:    now,
	}
	s.incidents[inc.ID] = inc
	s.incidentMonitors = append(s.incidentMonitors, incidentMonitorLink{
		incidentID: inc.ID,
		monitorID:  draft.MonitorID,
	})
	s.updates = append(s.updates, domain.IncidentUpdate{
		IncidentID: inc.ID,
		Status:     domain.IncidentInvestigating,
		Message:    draft.Message,
		CreatedAt:  now,
	})

	cp := *inc
	return &cp, true, nil
}

func (s *Store) ListOpenByPage(ctx context.Context, page domain.StatusPageID) ([]domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Incident
	for _, inc := range s.incidents {
		if inc.StatusPageID == page && !inc.Resolved() {
			out = append(out, *inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListUpdates(ctx context.Context, id domain.IncidentID) ([]domain.IncidentUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.IncidentUpdate
	for _, u := range s.updates {
		if u.IncidentID == id {
			out = append(out, u)
		}
	}
	return out, nil
}
