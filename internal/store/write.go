package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/wheel"
)

// Session is one recording.
type Session struct {
	ID        string
	Label     string
	StartedAt time.Time
	EndedAt   time.Time // zero while recording
	Config    wheel.Config
}

// CreateSession inserts a new session row. The label is NFC-normalized
// and trimmed so equal-looking labels compare equal.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	cfg, err := json.Marshal(sess.Config)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, started_at, config)
		VALUES (?, ?, ?, ?)
	`, sess.ID, normalizeLabel(sess.Label), sess.StartedAt.UnixNano(), string(cfg))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// EndSession stamps the end time of a session.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE id = ?`, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// DeleteSession removes a session and all of its rows.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// cursor tracks the next seq values of one session's tables.
type cursor struct {
	impulse int64
	tick    int64
}

// writeFrame appends the impulses and ticks of one loop frame in a single
// transaction. Offsets are measured from start.
func (s *Store) writeFrame(ctx context.Context, id string, start time.Time, f engine.Frame, c *cursor) error {
	if len(f.Impulses) == 0 && len(f.Ticks) == 0 && len(f.Muted) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	defer tx.Rollback()

	for _, imp := range f.Impulses {
		c.impulse++
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO impulses (session_id, seq, offset_ns, axis, delta, kind)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, c.impulse, imp.At.Sub(start).Nanoseconds(), imp.Axis.String(), imp.Delta, imp.Kind.String()); err != nil {
			return fmt.Errorf("write impulse: %w", err)
		}
	}

	offset := f.At.Sub(start).Nanoseconds()
	if err := writeTicks(ctx, tx, id, f.Seq, offset, f.Ticks, false, c); err != nil {
		return err
	}
	if err := writeTicks(ctx, tx, id, f.Seq, offset, f.Muted, true, c); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func writeTicks(ctx context.Context, tx *sql.Tx, id string, frame, offset int64, ticks []wheel.OutputTick, discarded bool, c *cursor) error {
	for _, t := range ticks {
		c.tick++
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ticks (session_id, seq, frame, offset_ns, axis, delta, discarded)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, c.tick, frame, offset, t.Axis.String(), t.Delta, discarded); err != nil {
			return fmt.Errorf("write tick: %w", err)
		}
	}
	return nil
}

func normalizeLabel(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
