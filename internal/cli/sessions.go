package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nimbus/internal/store"
	"github.com/roach88/nimbus/internal/wheel"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Delete   string
}

// SessionInfo is one row of the session listing.
type SessionInfo struct {
	ID         string    `json:"id"`
	Label      string    `json:"label,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration,omitempty"`
	Impulses   int       `json:"impulses"`
	Ticks      int       `json:"ticks"`
	Vertical   int       `json:"vertical"`
	Horizontal int       `json:"horizontal"`
}

// SessionList is the sessions command output.
type SessionList struct {
	Sessions []SessionInfo `json:"sessions"`
}

// RenderText implements TextRenderer.
func (l SessionList) RenderText(w io.Writer) error {
	if len(l.Sessions) == 0 {
		fmt.Fprintln(w, "No recorded sessions.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSTARTED\tDURATION\tIMPULSES\tTICKS\tV\tH")
	for _, s := range l.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			s.ID, s.Label, s.StartedAt.Local().Format(time.DateTime), s.Duration,
			s.Impulses, s.Ticks, s.Vertical, s.Horizontal)
	}
	return tw.Flush()
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded gesture sessions",
		Long: `List the sessions recorded with --record, newest first, with their
impulse and tick counts and dispatched totals per axis.

Examples:
  nimbus sessions --db ./gestures.db
  nimbus sessions --db ./gestures.db --delete 0190c6b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the session with this id")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Delete != "" {
		err := st.DeleteSession(ctx, opts.Delete)
		if errors.Is(err, store.ErrSessionNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Delete))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to delete session", err)
		}
		formatter.VerboseLog("Deleted session %s", opts.Delete)
	}

	summaries, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	list := SessionList{Sessions: make([]SessionInfo, 0, len(summaries))}
	for _, s := range summaries {
		info := SessionInfo{
			ID:         s.ID,
			Label:      s.Label,
			StartedAt:  s.StartedAt,
			Impulses:   s.Impulses,
			Ticks:      s.Ticks,
			Vertical:   s.Totals[wheel.Vertical],
			Horizontal: s.Totals[wheel.Horizontal],
		}
		if !s.EndedAt.IsZero() {
			info.Duration = s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
		}
		list.Sessions = append(list.Sessions, info)
	}
	return formatter.Success(list)
}
