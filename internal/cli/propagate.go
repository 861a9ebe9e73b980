package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/solver"
	"github.com/roach88/shopsched/internal/store"
)

// PropagateOptions holds flags for the propagate command.
type PropagateOptions struct {
	*RootOptions
	Strategy      string
	MaxIterations int
	Solve         bool
	SolveBudget   int
	Failure       string
	Parallelism   int
	Database      string
	Out           string
	Encoding      string
}

// PropagateResult is the outcome of a propagation run.
type PropagateResult struct {
	SessionID  string           `json:"session_id,omitempty"`
	Line       string           `json:"line"`
	Strategy   modular.Strategy `json:"strategy"`
	Feasible   bool             `json:"feasible"`
	Converged  bool             `json:"converged"`
	Iterations int              `json:"iterations"`
	Failed     []int            `json:"failed,omitempty"`
	Error      string           `json:"error,omitempty"`
	Final      modular.Snapshot `json:"final"`
	Output     string           `json:"output,omitempty"`
}

// String renders the result for text output.
func (r PropagateResult) String() string {
	var b strings.Builder
	switch {
	case !r.Feasible:
		fmt.Fprintf(&b, "%s: infeasible after %d iterations (%s)\n", r.Line, r.Iterations, r.Strategy)
	case r.Converged:
		fmt.Fprintf(&b, "%s: converged after %d iterations (%s)\n", r.Line, r.Iterations, r.Strategy)
	default:
		fmt.Fprintf(&b, "%s: not converged after %d iterations (%s)\n", r.Line, r.Iterations, r.Strategy)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  %s\n", r.Error)
	}
	for _, m := range r.Final.Modules {
		fmt.Fprintf(&b, "  [%d] %s", m.Index, m.Name)
		if m.Failed != "" {
			fmt.Fprintf(&b, " failed: %s", m.Failed)
		}
		if m.Sequence != nil {
			fmt.Fprintf(&b, " makespan %d", m.Sequence.Makespan)
		}
		b.WriteByte('\n')
		writeWindows(&b, "input", m.Input)
		writeWindows(&b, "output", m.Output)
	}
	if r.SessionID != "" {
		fmt.Fprintf(&b, "  session %s\n", r.SessionID)
	}
	if r.Output != "" {
		fmt.Fprintf(&b, "  wrote %s\n", r.Output)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeWindows(b *strings.Builder, table string, ws []modular.PairWindow) {
	for _, w := range ws {
		fmt.Fprintf(b, "    %s %d:%d %s\n", table, w.First, w.Second, w.Interval())
	}
}

// NewPropagateCommand creates the propagate command.
func NewPropagateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PropagateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "propagate <line>",
		Short: "Narrow the time windows of a production line",
		Long: `Exchange bounds between the modules of a production line until no
window changes or the iteration cap is hit.

With --solve every module is sequenced by the exact solver before its
bounds are derived, which tightens the windows at the cost of one solve
per module and iteration.

Exit codes:
  0 - Bounds converged
  1 - Line infeasible, a module failed, or the iteration cap was hit
  2 - Command error (invalid paths, bad flags, etc.)

Examples:
  shopsched propagate line.yaml
  shopsched propagate line.cue --strategy cocktail --solve --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropagate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", string(modular.StrategyBroadcast), "iteration strategy (broadcast|cocktail)")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", modular.DefaultMaxIterations, "iteration cap")
	cmd.Flags().BoolVar(&opts.Solve, "solve", false, "sequence every module with the solver")
	cmd.Flags().IntVar(&opts.SolveBudget, "solve-iterations", 0, "expansion budget per module solve (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Failure, "failure", string(modular.FailAbort), "on module failure (abort|continue)")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 0, "modules derived at once under broadcast (0 = all)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to record the session in")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the final snapshot to this file")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", string(codec.JSON), "encoding for --out (json|cbor)")

	return cmd
}

func runPropagate(opts *PropagateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	strategy, err := modular.ParseStrategy(opts.Strategy)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --strategy", err)
	}
	failure := modular.FailurePolicy(opts.Failure)
	if failure != modular.FailAbort && failure != modular.FailContinue {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --failure", fmt.Errorf("unknown failure policy %q (want abort or continue)", opts.Failure))
	}
	if opts.MaxIterations <= 0 {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --max-iterations", fmt.Errorf("must be positive, got %d", opts.MaxIterations))
	}
	enc, err := codec.ParseEncoding(opts.Encoding)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --encoding", err)
	}

	line, err := loadLine(f, path)
	if err != nil {
		return err
	}

	settings := store.PropagateSettings{
		Strategy:      strategy,
		MaxIterations: opts.MaxIterations,
		Sequenced:     opts.Solve,
	}
	popts := []modular.Option{
		modular.WithStrategy(strategy),
		modular.WithMaxIterations(opts.MaxIterations),
		modular.WithFailurePolicy(failure),
	}
	if opts.Parallelism > 0 {
		popts = append(popts, modular.WithParallelism(opts.Parallelism))
	}
	if opts.Solve {
		budget := solver.Budget{MaxIterations: opts.SolveBudget}
		popts = append(popts, modular.WithSequencer(modular.SolverSequencer(solver.DefaultPolicy(), budget)))
	}

	var st *store.Store
	var sess store.Session
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer closeStore(st)
		if sess, err = st.CreatePropagateSession(ctx, line, settings); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to create session", err)
		}
	}

	p, err := modular.New(line, popts...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "invalid line", err)
	}
	runCtx, stop := signalContext(ctx)
	defer stop()
	res, runErr := p.Run(runCtx)
	if runErr != nil && !modular.IsInfeasible(runErr) && !modular.IsModuleError(runErr) {
		return f.Fail(ExitFailure, ErrCodeGeneric, "propagation failed", runErr)
	}
	for _, snap := range res.Snapshots {
		f.VerboseLog("iteration %d: changed=%t", snap.Iteration, snap.Changed)
		if st == nil {
			continue
		}
		if _, err := st.WriteSnapshot(ctx, sess.ID, snap); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to store snapshot", err)
		}
	}

	result := PropagateResult{
		SessionID:  sess.ID,
		Line:       line.Name,
		Strategy:   strategy,
		Feasible:   runErr == nil,
		Converged:  res.Converged,
		Iterations: res.Iterations,
		Failed:     res.Failed,
		Final:      res.Final,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	if opts.Out != "" && runErr == nil {
		data, err := codec.Marshal(enc, res.Final)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to encode snapshot", err)
		}
		if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write snapshot", err)
		}
		result.Output = opts.Out
	}

	if err := f.Success(result); err != nil {
		return err
	}
	switch {
	case modular.IsInfeasible(runErr):
		return NewExitError(ExitFailure, fmt.Sprintf("[%s] %s", ErrCodeInfeasible, runErr))
	case runErr != nil:
		return WrapExitError(ExitFailure, fmt.Sprintf("[%s] module failed", ErrCodeGeneric), runErr)
	case len(res.Failed) > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("[%s] %d module(s) failed", ErrCodeGeneric, len(res.Failed)))
	case !res.Converged:
		return NewExitError(ExitFailure, fmt.Sprintf("[%s] not converged after %d iterations", ErrCodeNotConverged, res.Iterations))
	}
	return nil
}
