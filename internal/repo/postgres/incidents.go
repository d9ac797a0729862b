package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilhq/vigil/internal/domain"
	"github.com/vigilhq/vigil/internal/repo"
)

const findActiveSQL = `
SELECT i.id, i.status_page_id, i.title, i.status, i.impact, i.created_at, i.resolved_at
  FROM incidents i
  JOIN incident_monitors im ON im.incident_id = i.id
 WHERE i.status_page_id = $1
   AND im.monitor_id = $2
   AND i.status <> 'resolved'
 LIMIT 1`

func (s *Store) FindActive(ctx context.Context, page domain.StatusPageID, monitor domain.MonitorID) (*domain.Incident, error) {
	row := s.pool.QueryRow(ctx, findActiveSQL, string(page), string(monitor))
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active incident: %w", err)
	}
	return inc, nil
}

// Open runs the dedup check and the three inserts (incident, first
// update, monitor link) in one serializable transaction, so the
// at-most-one-active invariant holds even under concurrent triggers.
// Serialization failures are retried a few times.
func (s *Store) Open(ctx context.Context, draft repo.IncidentDraft) (*domain.Incident, bool, error) {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		inc, created, err := s.tryOpen(ctx, draft)
		if err == nil {
			return inc, created, nil
		}
		lastErr = err
		if !isSerializationFailure(err) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("open incident: %w", lastErr)
}

func (s *Store) tryOpen(ctx context.Context, draft repo.IncidentDraft) (*domain.Incident, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, findActiveSQL, string(draft.StatusPageID), string(draft.MonitorID))
	existing, err := scanIncident(row)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("dedup check: %w", err)
	}
	if existing != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		return existing, false, nil
	}

	inc := &domain.Incident{
		ID:           domain.IncidentID(uuid.NewString()),
		StatusPageID: draft.StatusPageID,
		Title:        draft.Title,
		Status:       domain.IncidentInvestigating,
		Impact:       draft.Impact,
		MonitorIDs:   []domain.MonitorID{draft.MonitorID},
	}
	err = tx.QueryRow(ctx, `
INSERT INTO incidents (id, status_page_id, title, status, impact)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`,
		string(inc.ID), string(inc.StatusPageID), inc.Title,
		string(inc.Status), string(inc.Impact)).Scan(&inc.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert incident: %w", err)
	}

	_, err = tx.Exec(ctx, `
INSERT INTO incident_updates (id, incident_id, status, message)
VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), string(inc.ID), string(inc.Status), draft.Message)
	if err != nil {
		return nil, false, fmt.Errorf("insert incident update: %w", err)
	}

	_, err = tx.Exec(ctx, `
INSERT INTO incident_monitors (incident_id, monitor_id)
VALUES ($1, $2)`,
		string(inc.ID), string(draft.MonitorID))
	if err != nil {
		return nil, false, fmt.Errorf("link monitor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return inc, true, nil
}

func (s *Store) ListOpenByPage(ctx context.Context, page domain.StatusPageID) ([]domain.Incident, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, status_page_id, title, status, impact, created_at, resolved_at
  FROM incidents
 WHERE status_page_id = $1 AND status <> 'resolved'
 ORDER BY created_at`, string(page))
	if err != nil {
		return nil, fmt.Errorf("open incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

func (s *Store) ListUpdates(ctx context.Context, id domain.IncidentID) ([]domain.IncidentUpdate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT incident_id, status, message, created_at
  FROM incident_updates
 WHERE incident_id = $1
 ORDER BY created_at`, string(id))
	if err != nil {
		return nil, fmt.Errorf("incident updates: %w", err)
	}
	defer rows.Close()

	var out []domain.IncidentUpdate
	for rows.Next() {
		var (
			u           domain.IncidentUpdate
			incID, stat string
		)
		if err := rows.Scan(&incID, &stat, &u.Message, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		u.IncidentID = domain.IncidentID(incID)
		u.Status = domain.IncidentStatus(stat)
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanIncident(row rowScanner) (*domain.Incident, error) {
	var (
		inc          domain.Incident
		id, pageID   string
		stat, impact string
	)
	if err := row.Scan(&id, &pageID, &inc.Title, &stat, &impact,
		&inc.CreatedAt, &inc.ResolvedAt); err != nil {
		return nil, err
	}
	inc.ID = domain.IncidentID(id)
	inc.StatusPageID = domain.StatusPageID(pageID)
	inc.Status = domain.IncidentStatus(stat)
	inc.Impact = domain.Impact(impact)
	return &inc, nil
}

// 40001 is serialization_failure; retrying the whole transaction is the
// documented remedy.
func isSerializationFailure(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "40001"
	}
	return false
}
