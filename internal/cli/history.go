package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsched/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// SessionSummary is one line of the session list.
type SessionSummary struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Hash    string `json:"definition_hash"`
	LastSeq int64  `json:"last_seq"`
}

// SessionList is the output of history without a session argument.
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
}

// String renders the list for text output.
func (l SessionList) String() string {
	if len(l.Sessions) == 0 {
		return "no sessions"
	}
	var b strings.Builder
	for _, s := range l.Sessions {
		fmt.Fprintf(&b, "%s  %-9s  %s  (%d entries)\n", s.ID, s.Kind, s.Name, s.LastSeq)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HistoryEntry is one record of a session.
type HistoryEntry struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

// SessionHistory is the output of history for one session.
type SessionHistory struct {
	Session SessionSummary `json:"session"`
	Entries []HistoryEntry `json:"entries"`
}

// String renders the history for text output.
func (h SessionHistory) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", h.Session.Kind, h.Session.Name, h.Session.ID)
	for _, e := range h.Entries {
		fmt.Fprintf(&b, "  %4d  %-8s  %s\n", e.Seq, e.Kind, e.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [session]",
		Short: "List stored sessions or show one session's records",
		Long: `Without an argument, list every session in the database. With a
session id, show its states, schedules and snapshots in the order they
were written.

Examples:
  shopsched history --db runs.db
  shopsched history 0192f0c4-... --db runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	if err := checkPath(f, opts.Database); err != nil {
		return err
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer closeStore(st)

	if len(args) == 0 {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list sessions", err)
		}
		list := SessionList{Sessions: make([]SessionSummary, 0, len(sessions))}
		for _, s := range sessions {
			list.Sessions = append(list.Sessions, summarize(s))
		}
		return f.Success(list)
	}

	sess, err := st.ReadSession(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "session not found", err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read session", err)
	}
	entries, err := st.History(ctx, sess.ID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read history", err)
	}
	h := SessionHistory{Session: summarize(sess), Entries: make([]HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		h.Entries = append(h.Entries, HistoryEntry{Seq: e.Seq, Kind: string(e.Kind), Summary: e.Summary})
	}
	return f.Success(h)
}

func summarize(s store.Session) SessionSummary {
	return SessionSummary{
		ID:      s.ID,
		Kind:    string(s.Kind),
		Name:    s.Name,
		Hash:    s.DefinitionHash,
		LastSeq: s.LastSeq,
	}
}
