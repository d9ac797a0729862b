package domain

import "time"

type MonitorID string

type StatusPageID string

type IncidentID string

// Monitor is a configured HTTP target checked on a schedule.
// It is treated as immutable for the duration of one batch run.
type Monitor struct {
	ID             MonitorID         `json:"id"`
	UserID         string            `json:"user_id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	ExpectedStatus int               `json:"expected_status"`
	Timeout        time.Duration     `json:"timeout"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	Enabled        bool              `json:"enabled"`

	// Statuspage component-update integration (all three required to fire).
	StatuspageAPIKey      string `json:"-"`
	StatuspagePageID      string `json:"-"`
	StatuspageComponentID string `json:"-"`

	// Heartbeat webhook integration (GET on success, POST <url>/fail otherwise).
	HeartbeatURL string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// StatusPage is a public aggregation view over a set of monitors.
// The check engine consumes it read-only.
type StatusPage struct {
	ID       StatusPageID `json:"id"`
	UserID   string       `json:"user_id"`
	Slug     string       `json:"slug"`
	Name     string       `json:"name"`
	IsPublic bool         `json:"is_public"`
}

// PageLink identifies one status page a monitor is published on.
type PageLink struct {
	StatusPageID StatusPageID
	OwnerID      string
}

// PageMonitor is a monitor as it appears on a status page.
type PageMonitor struct {
	Monitor      Monitor
	DisplayOrder int
}

// Incident is a tracked degradation event linked to a status page.
// The check engine only ever opens incidents; resolution is manual.
type Incident struct {
	ID           IncidentID     `json:"id"`
	StatusPageID StatusPageID   `json:"status_page_id"`
	Title        string         `json:"title"`
	Status       IncidentStatus `json:"status"`
	Impact       Impact         `json:"impact"`
	MonitorIDs   []MonitorID    `json:"monitor_ids,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ResolvedAt   *time.Time     `json:"resolved_at"`
}

// Resolved reports whether the incident has been closed.
func (i *Incident) Resolved() bool {
	return i.Status == IncidentResolved
}

// IncidentUpdate is an append-only message attached to an incident.
// The first update is written atomically with the incident itself.
type IncidentUpdate struct {
	IncidentID IncidentID     `json:"incident_id"`
	Status     IncidentStatus `json:"status"`
	Message    string         `json:"message"`
	CreatedAt  time.Time      `json:"created_at"`
}
