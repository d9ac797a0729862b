package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vigilhq/vigil/internal/domain"
	"github.com/vigilhq/vigil/internal/repo"
)

var _ repo.MonitorStore = (*Store)(nil)
var _ repo.ResultStore = (*Store)(nil)
var _ repo.StatusPageStore = (*Store)(nil)
var _ repo.IncidentStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- repo.MonitorStore ----

func (s *Store) ListEnabled(ctx context.Context) ([]domain.Monitor, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, name, url, method, expected_status, timeout_ms,
       headers, body, enabled,
       statuspage_api_key, statuspage_page_id, statuspage_component_id,
       heartbeat_url, created_at
  FROM monitors
 WHERE enabled = TRUE
 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		var (
			m         domain.Monitor
			id        string
			timeoutMS int
			headers   map[string]string
			body, spKey, spPage, spComp, hbURL *string
		)
		if err := rows.Scan(&id, &m.UserID, &m.Name, &m.URL, &m.Method,
			&m.ExpectedStatus, &timeoutMS, &headers, &body, &m.Enabled,
			&spKey, &spPage, &spComp, &hbURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		m.ID = domain.MonitorID(id)
		m.Timeout = time.Duration(timeoutMS) * time.Millisecond
		m.Headers = headers
		m.Body = deref(body)
		m.StatuspageAPIKey = deref(spKey)
		m.StatuspagePageID = deref(spPage)
		m.StatuspageComponentID = deref(spComp)
		m.HeartbeatURL = deref(hbURL)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- repo.ResultStore ----

func (s *Store) AppendBatch(ctx context.Context, outcomes []domain.CheckOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range outcomes {
		batch.Queue(`
INSERT INTO monitor_results (id, monitor_id, kind, http_status, latency_ms, message, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), string(o.MonitorID), string(o.Kind),
			o.HTTPStatus, o.LatencyMS, nullable(o.Message), o.ExecutedAt)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range outcomes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert outcomes: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM monitor_results WHERE executed_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("delete old outcomes: %w", err)
	}
	return nil
}

func (s *Store) LatestByMonitor(ctx context.Context, id domain.MonitorID) (*domain.CheckOutcome, error) {
	row := s.pool.QueryRow(ctx, `
SELECT monitor_id, kind, http_status, latency_ms, message, executed_at
  FROM monitor_results
 WHERE monitor_id = $1
 ORDER BY executed_at DESC
 LIMIT 1`, string(id))

	o, err := scanOutcome(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest outcome: %w", err)
	}
	return o, nil
}

func (s *Store) UptimeSince(ctx context.Context, id domain.MonitorID, since time.Time) (repo.UptimeStats, error) {
	var st repo.UptimeStats
	err := s.pool.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE kind = 'success')
  FROM monitor_results
 WHERE monitor_id = $1 AND executed_at >= $2`,
		string(id), since).Scan(&st.Total, &st.Successful)
	if err != nil {
		return repo.UptimeStats{}, fmt.Errorf("uptime stats: %w", err)
	}
	return st, nil
}

// ---- repo.StatusPageStore ----

func (s *Store) LinkedPages(ctx context.Context, id domain.MonitorID) ([]domain.PageLink, error) {
	rows, err := s.pool.Query(ctx, `
SELECT sp.id, sp.user_id
  FROM status_page_monitors spm
  JOIN status_pages sp ON sp.id = spm.status_page_id
 WHERE spm.monitor_id = $1`, string(id))
	if err != nil {
		return nil, fmt.Errorf("linked pages: %w", err)
	}
	defer rows.Close()

	var out []domain.PageLink
	for rows.Next() {
		var pageID, owner string
		if err := rows.Scan(&pageID, &owner); err != nil {
			return nil, fmt.Errorf("scan page link: %w", err)
		}
		out = append(out, domain.PageLink{
			StatusPageID: domain.StatusPageID(pageID),
			OwnerID:      owner,
		})
	}
	return out, rows.Err()
}

func (s *Store) GetPublicBySlug(ctx context.Context, slug string) (*domain.StatusPage, error) {
	var p domain.StatusPage
	var id string
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, slug, name, is_public
  FROM status_pages
 WHERE slug = $1 AND is_public = TRUE`, slug).
		Scan(&id, &p.UserID, &p.Slug, &p.Name, &p.IsPublic)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("page by slug: %w", err)
	}
	p.ID = domain.StatusPageID(id)
	return &p, nil
}

func (s *Store) PageMonitors(ctx context.Context, id domain.StatusPageID) ([]domain.PageMonitor, error) {
	rows, err := s.pool.Query(ctx, `
SELECT m.id, m.user_id, m.name, m.url, m.method, m.expected_status,
       m.timeout_ms, m.enabled, m.created_at, spm.display_order
  FROM status_page_monitors spm
  JOIN monitors m ON m.id = spm.monitor_id
 WHERE spm.status_page_id = $1
 ORDER BY spm.display_order`, string(id))
	if err != nil {
		return nil, fmt.Errorf("page monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.PageMonitor
	for rows.Next() {
		var (
			pm        domain.PageMonitor
			mid       string
			timeoutMS int
		)
		if err := rows.Scan(&mid, &pm.Monitor.UserID, &pm.Monitor.Name,
			&pm.Monitor.URL, &pm.Monitor.Method, &pm.Monitor.ExpectedStatus,
			&timeoutMS, &pm.Monitor.Enabled, &pm.Monitor.CreatedAt,
			&pm.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan page monitor: %w", err)
		}
		pm.Monitor.ID = domain.MonitorID(mid)
		pm.Monitor.Timeout = time.Duration(timeoutMS) * time.Millisecond
		out = append(out, pm)
	}
	return out, rows.Err()
}

// ---- helpers ----

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row rowScanner) (*domain.CheckOutcome, error) {
	var (
		o    domain.CheckOutcome
		mid  string
		kind string
		msg  *string
	)
	if err := row.Scan(&mid, &kind, &o.HTTPStatus, &o.LatencyMS, &msg, &o.ExecutedAt); err != nil {
		return nil, err
	}
	o.MonitorID = domain.MonitorID(mid)
	o.Kind = domain.OutcomeKind(kind)
	o.Message = deref(msg)
	return &o, nil
}
