package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/testutil"
	"github.com/roach88/nimbus/internal/wheel"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_MigratesVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	cfg, err := json.Marshal(wheel.DefaultConfig())
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(cfg, &fields))
	delete(fields, "scroll_step_x")
	delete(fields, "scroll_step_y")
	fields["scroll_step"] = 40
	old, err := json.Marshal(fields)
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	for _, stmt := range []string{schemaSQL, migrations[0], "PRAGMA user_version = 1"} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO sessions (id, started_at, config) VALUES ('v1', 0, ?)`, string(old))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO impulses (session_id, seq, offset_ns, axis, delta) VALUES ('v1', 1, 0, 'vertical', 2)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	sess, err := s.ReadSession(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 40.0, sess.Config.ScrollStepX)
	assert.Equal(t, 40.0, sess.Config.ScrollStepY)

	imps, err := s.ReadImpulses(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, imps, 1)
	assert.Equal(t, wheel.KindNotch, imps[0].Kind)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "3", version)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
		"user_version": "3",
	}
	for name, want := range tests {
		got, err := s.pragma(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestSession_CreateReadEnd(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cfg := wheel.DefaultConfig()
	cfg.Decay = 23.5
	start := testutil.Epoch

	require.NoError(t, s.CreateSession(ctx, Session{ID: "s1", Label: "  trackpad  ", StartedAt: start, Config: cfg}))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "trackpad", got.Label)
	assert.True(t, got.StartedAt.Equal(start))
	assert.True(t, got.EndedAt.IsZero())
	assert.Equal(t, cfg, got.Config)

	require.NoError(t, s.EndSession(ctx, "s1", start.Add(time.Second)))
	got, err = s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.EndedAt.Equal(start.Add(time.Second)))
}

func TestSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReadSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.EndSession(ctx, "nope", testutil.Epoch), ErrSessionNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, "nope"), ErrSessionNotFound)
}

func TestSession_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sess := Session{ID: "dup", StartedAt: testutil.Epoch, Config: wheel.DefaultConfig()}

	require.NoError(t, s.CreateSession(ctx, sess))
	assert.Error(t, s.CreateSession(ctx, sess))
}

func TestNormalizeLabel(t *testing.T) {
	decomposed := " cafe\u0301 "
	assert.Equal(t, "caf\u00e9", normalizeLabel(decomposed))
	assert.Equal(t, "", normalizeLabel("   "))
}

func TestWriteFrame_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	start := testutil.Epoch
	require.NoError(t, s.CreateSession(ctx, Session{ID: "s1", StartedAt: start, Config: wheel.DefaultConfig()}))

	var c cursor
	frames := []engine.Frame{
		{
			Seq: 1, At: start.Add(4 * time.Millisecond),
			Impulses: []wheel.Impulse{
				{Axis: wheel.Vertical, Delta: 1, At: start.Add(time.Millisecond)},
				{Axis: wheel.Horizontal, Delta: -2, At: start.Add(2 * time.Millisecond)},
			},
			Ticks: []wheel.OutputTick{{Axis: wheel.Vertical, Delta: 3}},
		},
		{Seq: 2, At: start.Add(8 * time.Millisecond)},
		{
			Seq: 3, At: start.Add(12 * time.Millisecond), Paused: true,
			Muted: []wheel.OutputTick{{Axis: wheel.Horizontal, Delta: -1}},
		},
	}
	for _, f := range frames {
		require.NoError(t, s.writeFrame(ctx, "s1", start, f, &c))
	}

	imps, err := s.ReadImpulses(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []RecordedImpulse{
		{Seq: 1, Offset: time.Millisecond, Axis: wheel.Vertical, Delta: 1},
		{Seq: 2, Offset: 2 * time.Millisecond, Axis: wheel.Horizontal, Delta: -2},
	}, imps)

	ticks, err := s.ReadTicks(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []RecordedTick{
		{Seq: 1, Frame: 1, Offset: 4 * time.Millisecond, Axis: wheel.Vertical, Delta: 3},
		{Seq: 2, Frame: 3, Offset: 12 * time.Millisecond, Axis: wheel.Horizontal, Delta: -1, Discarded: true},
	}, ticks)
}

func TestWriteFrame_KeepsImpulseKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	start := testutil.Epoch
	require.NoError(t, s.CreateSession(ctx, Session{ID: "drag", StartedAt: start, Config: wheel.DefaultConfig()}))

	var c cursor
	require.NoError(t, s.writeFrame(ctx, "drag", start, engine.Frame{
		Seq: 1, At: start.Add(4 * time.Millisecond),
		Impulses: []wheel.Impulse{
			{Axis: wheel.Vertical, Delta: 7, At: start, Kind: wheel.KindDrag},
			{Axis: wheel.Vertical, At: start.Add(time.Millisecond), Kind: wheel.KindRelease},
		},
	}, &c))

	imps, err := s.ReadImpulses(ctx, "drag")
	require.NoError(t, err)
	assert.Equal(t, []RecordedImpulse{
		{Seq: 1, Axis: wheel.Vertical, Delta: 7, Kind: wheel.KindDrag},
		{Seq: 2, Offset: time.Millisecond, Axis: wheel.Vertical, Kind: wheel.KindRelease},
	}, imps)
}

func TestListSessions_NewestFirstWithTotals(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	cfg := wheel.DefaultConfig()

	require.NoError(t, s.CreateSession(ctx, Session{ID: "old", StartedAt: testutil.Epoch, Config: cfg}))
	require.NoError(t, s.CreateSession(ctx, Session{ID: "new", StartedAt: testutil.Epoch.Add(time.Hour), Config: cfg}))

	var c cursor
	require.NoError(t, s.writeFrame(ctx, "old", testutil.Epoch, engine.Frame{
		Seq:      1,
		At:       testutil.Epoch,
		Impulses: []wheel.Impulse{{Axis: wheel.Vertical, Delta: 1, At: testutil.Epoch}},
		Ticks: []wheel.OutputTick{
			{Axis: wheel.Vertical, Delta: 5},
			{Axis: wheel.Vertical, Delta: 2},
			{Axis: wheel.Horizontal, Delta: -4},
		},
		Muted: []wheel.OutputTick{{Axis: wheel.Vertical, Delta: 100}},
	}, &c))

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	old := list[1]
	assert.Equal(t, 1, old.Impulses)
	assert.Equal(t, 3, old.Ticks, "muted ticks are not counted")
	assert.Equal(t, 7, old.Totals[wheel.Vertical])
	assert.Equal(t, -4, old.Totals[wheel.Horizontal])
}

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)
	list, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestDeleteSession_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSession(ctx, Session{ID: "s1", StartedAt: testutil.Epoch, Config: wheel.DefaultConfig()}))

	var c cursor
	require.NoError(t, s.writeFrame(ctx, "s1", testutil.Epoch, engine.Frame{
		Seq:      1,
		Impulses: []wheel.Impulse{{Axis: wheel.Vertical, Delta: 1, At: testutil.Epoch}},
		Ticks:    []wheel.OutputTick{{Axis: wheel.Vertical, Delta: 1}},
	}, &c))

	require.NoError(t, s.DeleteSession(ctx, "s1"))

	imps, err := s.ReadImpulses(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, imps)
	ticks, err := s.ReadTicks(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, ticks)
}
