package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_MatchesRecording(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gestures.db")
	recordSession(t, dbPath, "s1")

	out, err := execute(t, nil, "replay", "--db", dbPath, "s1", "--check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Session s1 (desk mouse)")
	assert.Contains(t, out, "recorded: vertical 18, horizontal 0")
	assert.Contains(t, out, "replayed: vertical 18, horizontal 0")
	assert.Contains(t, out, "✓ totals match")
}

func TestReplay_WithOtherOptionsJSON(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gestures.db")
	recordSession(t, dbPath, "s1")
	alt := writeFile(t, dir, "double.yaml", "sensitivity_y: 36\nscroll_step_y: 1\n")

	out, err := execute(t, nil, "--format", "json", "replay", "--db", dbPath, "s1", "--with", alt)
	require.NoError(t, err, out)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Impulses)
	assert.Equal(t, 18, resp.Data.Recorded.Vertical)
	assert.Equal(t, 36, resp.Data.Replayed.Vertical)
	assert.False(t, resp.Data.Match)
}

func TestReplay_CheckMismatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gestures.db")
	recordSession(t, dbPath, "s1")
	alt := writeFile(t, dir, "double.yaml", "sensitivity_y: 36\nscroll_step_y: 1\n")

	out, err := execute(t, nil, "replay", "--db", dbPath, "s1", "--with", alt, "--check")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeMismatch)
}

func TestReplay_Errors(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gestures.db")
	recordSession(t, dbPath, "s1")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing db flag", []string{"replay", "s1"}, "required flag"},
		{"missing database", []string{"replay", "--db", filepath.Join(dir, "nope.db"), "s1"}, "database not found"},
		{"unknown session", []string{"replay", "--db", dbPath, "nope"}, "session not found: nope"},
		{"missing options", []string{"replay", "--db", dbPath, "s1", "--with", filepath.Join(dir, "nope.yaml")}, "failed to load options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			if tt.name != "missing db flag" {
				assert.Equal(t, ExitCommandError, GetExitCode(err))
			}
		})
	}
}
