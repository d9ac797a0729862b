package repo

import (
	"context"
	"errors"
	"time"

	"github.com/vigilhq/vigil/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Ports (interfaces) — swap in any DB adapter later.

type MonitorStore interface {
	ListEnabled(ctx context.Context) ([]domain.Monitor, error)
}

// ResultStore is the append-only outcome log plus the aggregate reads
// the public status view needs.
type ResultStore interface {
	// AppendBatch writes all outcomes in one bulk operation. An empty
	// batch is a no-op, not an error.
	AppendBatch(ctx context.Context, outcomes []domain.CheckOutcome) error
	// DeleteOlderThan removes outcomes executed before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
	LatestByMonitor(ctx context.Context, id domain.MonitorID) (*domain.CheckOutcome, error)
	UptimeSince(ctx context.Context, id domain.MonitorID, since time.Time) (UptimeStats, error)
}

// UptimeStats is a success/total count over some window.
type UptimeStats struct {
	Total      int
	Successful int
}

// Percent returns the uptime percentage, or nil when there is no data.
func (u UptimeStats) Percent() *float64 {
	if u.Total == 0 {
		return nil
	}
	p := float64(u.Successful) / float64(u.Total) * 100
	return &p
}

type StatusPageStore interface {
	// LinkedPages returns the status pages a monitor is published on.
	// A monitor with no pages yields an empty slice, not an error.
	LinkedPages(ctx context.Context, id domain.MonitorID) ([]domain.PageLink, error)
	// GetPublicBySlug resolves a public page; non-public pages are
	// treated as absent.
	GetPublicBySlug(ctx context.Context, slug string) (*domain.StatusPage, error)
	PageMonitors(ctx context.Context, id domain.StatusPageID) ([]domain.PageMonitor, error)
}

// IncidentDraft carries the fields for opening an automatic incident.
type IncidentDraft struct {
	StatusPageID domain.StatusPageID
	MonitorID    domain.MonitorID
	Title        string
	Impact       domain.Impact
	Message      string
}

type IncidentStore interface {
	// FindActive returns the non-resolved incident linked to both the
	// page and the monitor, or nil if there is none.
	FindActive(ctx context.Context, page domain.StatusPageID, monitor domain.MonitorID) (*domain.Incident, error)
	// Open atomically re-checks FindActive and, when no active incident
	// exists, creates one in "investigating" together with its first
	// update and the monitor link. Returns created=false when an active
	// incident already covered the (page, monitor) pair.
	Open(ctx context.Context, draft IncidentDraft) (inc *domain.Incident, created bool, err error)
	ListOpenByPage(ctx context.Context, page domain.StatusPageID) ([]domain.Incident, error)
	ListUpdates(ctx context.Context, id domain.IncidentID) ([]domain.IncidentUpdate, error)
}
