package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/solver"
	"github.com/roach88/shopsched/internal/store"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	Database      string
	MaxIterations int
	Timeout       time.Duration
	Encoding      string
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume <session>",
		Short: "Continue a stored solve",
		Long: `Continue the search of a solve session from its latest stored state.

The stored instance is checked against its hash before the search resumes.
Schedules better than the stored bound and the new state are appended to
the session.

Examples:
  shopsched resume 0192f0c4-... --db runs.db --max-iterations 10000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	addBudgetFlags(cmd, &opts.MaxIterations, &opts.Timeout)
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "encoding for the new state (default: as stored)")

	return cmd
}

func runResume(opts *ResumeOptions, sessionID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer closeStore(st)

	r, err := st.LoadResumable(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "nothing to resume", err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to load session", err)
	}

	enc := r.Record.Encoding
	if opts.Encoding != "" {
		if enc, err = codec.ParseEncoding(opts.Encoding); err != nil {
			return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --encoding", err)
		}
	}

	g, err := graph.Build(r.Instance)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "invalid stored instance", err)
	}
	sv, err := solver.Resume(r.Instance, g, r.State)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "stored state does not fit its instance", err)
	}
	f.VerboseLog("resuming %s at iteration %d, best %s", sessionID, r.State.Iterations, bound(r.State.UpperBound))

	runCtx, stop := signalContext(ctx)
	defer stop()
	budget := solver.Budget{MaxIterations: opts.MaxIterations, Timeout: opts.Timeout}
	res, err := runWorker(runCtx, sv, budget, f)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "search failed", err)
	}

	if err := persistRun(ctx, st, sessionID, sv, res, enc, r.State.UpperBound); err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to store run", err)
	}

	result := SolveResult{
		SessionID:   sessionID,
		Instance:    r.Instance.Name,
		Policy:      r.Policy.Kind,
		Diagnostics: res.Diagnostics,
	}
	return finishSolve(f, &result, res, "", enc)
}
