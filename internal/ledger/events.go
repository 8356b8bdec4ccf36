package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Event is one recorded job status change.
type Event struct {
	ID     int64     `json:"id"`
	JobID  string    `json:"job_id"`
	Status string    `json:"status"`
	Source string    `json:"source"`
	Error  string    `json:"error,omitempty"`
	Path   string    `json:"path,omitempty"`
	At     time.Time `json:"at"`
}

// timeLayout has a fixed width so recorded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record appends an event. A zero At is stamped with the current UTC time.
func (s *Store) Record(ctx context.Context, ev Event) error {
	if s == nil {
		return errors.New("ledger not open")
	}
	if ev.JobID == "" {
		return errors.New("ledger event requires a job id")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	err := s.exec(ctx,
		`INSERT INTO job_events (job_id, status, source, error, path, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.JobID, ev.Status, ev.Source, ev.Error, ev.Path, ev.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record job event: %w", err)
	}
	return nil
}

// History returns every event for a job, oldest first.
func (s *Store) History(ctx context.Context, jobID string) ([]Event, error) {
	ctx = orBackground(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, status, source, error, path, recorded_at FROM job_events WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("job history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			at string
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.Status, &ev.Source, &ev.Error, &ev.Path, &at); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			ev.At = parsed
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Counts returns the number of jobs whose latest event carries each status.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	ctx = orBackground(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.status, COUNT(1)
		FROM job_events e
		JOIN (SELECT job_id, MAX(id) AS last_id FROM job_events GROUP BY job_id) latest
		  ON e.id = latest.last_id
		GROUP BY e.status`)
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// Prune deletes events recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := withBusyRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM job_events WHERE recorded_at < ?`, cutoff.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune job events: %w", err)
	}
	return removed, nil
}
