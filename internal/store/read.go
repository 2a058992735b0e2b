package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// Summary is a session with row counts, as listed by `nimbus sessions`.
type Summary struct {
	Session
	Impulses int
	Ticks    int
	Totals   [len(wheel.Axes)]int // dispatched output per axis
}

// RecordedImpulse is an impulse read back from a session.
type RecordedImpulse struct {
	Seq    int64
	Offset time.Duration
	Axis   wheel.Axis
	Delta  int
	Kind   wheel.ImpulseKind
}

// RecordedTick is an output tick read back from a session.
type RecordedTick struct {
	Seq       int64
	Frame     int64
	Offset    time.Duration
	Axis      wheel.Axis
	Delta     int
	Discarded bool
}

// ReadSession returns one session.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, started_at, ended_at, config
		FROM sessions WHERE id = ?
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return sess, err
}

// ListSessions returns every session, newest first, with per-axis totals
// of the dispatched output.
func (s *Store) ListSessions(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.started_at, s.ended_at, s.config,
		       (SELECT COUNT(*) FROM impulses i WHERE i.session_id = s.id),
		       (SELECT COUNT(*) FROM ticks t WHERE t.session_id = s.id AND t.discarded = 0),
		       (SELECT COALESCE(SUM(delta), 0) FROM ticks t
		         WHERE t.session_id = s.id AND t.discarded = 0 AND t.axis = 'vertical'),
		       (SELECT COALESCE(SUM(delta), 0) FROM ticks t
		         WHERE t.session_id = s.id AND t.discarded = 0 AND t.axis = 'horizontal')
		FROM sessions s
		ORDER BY s.started_at DESC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			started int64
			ended   sql.NullInt64
			cfg     string
		)
		if err := rows.Scan(&sum.ID, &sum.Label, &started, &ended, &cfg,
			&sum.Impulses, &sum.Ticks,
			&sum.Totals[wheel.Vertical], &sum.Totals[wheel.Horizontal]); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := fillSession(&sum.Session, started, ended, cfg); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// ReadImpulses returns a session's impulses in recording order.
func (s *Store) ReadImpulses(ctx context.Context, id string) ([]RecordedImpulse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, offset_ns, axis, delta, kind
		FROM impulses WHERE session_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query impulses: %w", err)
	}
	defer rows.Close()

	out := []RecordedImpulse{}
	for rows.Next() {
		var (
			imp    RecordedImpulse
			offset int64
			axis   string
			kind   string
		)
		if err := rows.Scan(&imp.Seq, &offset, &axis, &imp.Delta, &kind); err != nil {
			return nil, fmt.Errorf("scan impulse: %w", err)
		}
		if imp.Axis, err = wheel.ParseAxis(axis); err != nil {
			return nil, fmt.Errorf("impulse %d: %w", imp.Seq, err)
		}
		if imp.Kind, err = wheel.ParseImpulseKind(kind); err != nil {
			return nil, fmt.Errorf("impulse %d: %w", imp.Seq, err)
		}
		imp.Offset = time.Duration(offset)
		out = append(out, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impulses: %w", err)
	}
	return out, nil
}

// ReadTicks returns a session's ticks in emission order.
func (s *Store) ReadTicks(ctx context.Context, id string) ([]RecordedTick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, frame, offset_ns, axis, delta, discarded
		FROM ticks WHERE session_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	out := []RecordedTick{}
	for rows.Next() {
		var (
			t      RecordedTick
			offset int64
			axis   string
		)
		if err := rows.Scan(&t.Seq, &t.Frame, &offset, &axis, &t.Delta, &t.Discarded); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		if t.Axis, err = wheel.ParseAxis(axis); err != nil {
			return nil, fmt.Errorf("tick %d: %w", t.Seq, err)
		}
		t.Offset = time.Duration(offset)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return out, nil
}

func scanSession(row *sql.Row) (Session, error) {
	var (
		sess    Session
		started int64
		ended   sql.NullInt64
		cfg     string
	)
	if err := row.Scan(&sess.ID, &sess.Label, &started, &ended, &cfg); err != nil {
		return Session{}, err
	}
	if err := fillSession(&sess, started, ended, cfg); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func fillSession(sess *Session, started int64, ended sql.NullInt64, cfg string) error {
	sess.StartedAt = time.Unix(0, started).UTC()
	if ended.Valid {
		sess.EndedAt = time.Unix(0, ended.Int64).UTC()
	}
	if err := json.Unmarshal([]byte(cfg), &sess.Config); err != nil {
		return fmt.Errorf("session %s config: %w", sess.ID, err)
	}
	return nil
}
