package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/schedule"
	"github.com/roach88/shopsched/internal/solver"
	"github.com/roach88/shopsched/internal/store"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	Policy        string
	RankFactor    float64
	Seed          uint64
	MaxIterations int
	Timeout       time.Duration
	Database      string
	History       bool
	Out           string
	Encoding      string
	ProgressEvery int
}

// SolveResult is the outcome of a solve or resume.
type SolveResult struct {
	SessionID   string             `json:"session_id,omitempty"`
	Instance    string             `json:"instance"`
	Policy      solver.PolicyKind  `json:"policy"`
	Diagnostics solver.Diagnostics `json:"diagnostics"`
	Best        *schedule.Export   `json:"best,omitempty"`
	Output      string             `json:"output,omitempty"`
}

// String renders the result for text output.
func (r SolveResult) String() string {
	var b strings.Builder
	d := r.Diagnostics
	switch {
	case r.Best != nil && d.Optimal:
		fmt.Fprintf(&b, "%s: makespan %d (optimal)\n", r.Instance, r.Best.Makespan)
	case r.Best != nil:
		fmt.Fprintf(&b, "%s: makespan %d (lower bound %d)\n", r.Instance, r.Best.Makespan, d.LowerBound)
	case d.Optimal:
		fmt.Fprintf(&b, "%s: infeasible\n", r.Instance)
	default:
		fmt.Fprintf(&b, "%s: no schedule found\n", r.Instance)
	}
	fmt.Fprintf(&b, "  policy %s, stop %s after %d iterations in %s, frontier %d\n",
		r.Policy, d.StopReason, d.Iterations, d.Elapsed, d.Frontier)
	for _, e := range d.Cycle {
		fmt.Fprintf(&b, "  cycle: %d -> %d (%d)\n", e.Src, e.Dst, e.Weight)
	}
	if r.Best != nil {
		for _, m := range r.Best.Machines {
			fmt.Fprintf(&b, "  m%d:", m.Machine)
			for _, op := range m.Operations {
				fmt.Fprintf(&b, " %d/%d[%d,%d)", op.Job, op.Op, op.Start, op.End)
			}
			b.WriteByte('\n')
		}
	}
	if r.SessionID != "" {
		fmt.Fprintf(&b, "  session %s\n", r.SessionID)
	}
	if r.Output != "" {
		fmt.Fprintf(&b, "  wrote %s\n", r.Output)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve <instance>",
		Short: "Find a minimum-makespan schedule",
		Long: `Solve a job-shop instance read from a .cue, .json or .yaml file.

The search runs until it proves optimality, the budget is spent or it is
interrupted. With --db the session, every improving schedule and the final
search state are stored so the run can be resumed.

Exit codes:
  0 - A schedule was found (optimal or within budget)
  1 - No feasible schedule (infeasible or none found within budget)
  2 - Command error (invalid paths, bad flags, etc.)

Examples:
  shopsched solve shop.yaml
  shopsched solve shop.cue --policy adaptive --max-iterations 5000 --db runs.db
  shopsched solve shop.yaml --out best.cbor --encoding cbor`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", string(solver.PolicyBest), fmt.Sprintf("exploration policy %v", solver.PolicyKinds))
	cmd.Flags().Float64Var(&opts.RankFactor, "rank-factor", solver.DefaultRankFactor, "rank factor for the static policy, in [0, 1]")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for the random policy")
	addBudgetFlags(cmd, &opts.MaxIterations, &opts.Timeout)
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to record the session in")
	cmd.Flags().BoolVar(&opts.History, "history", false, "keep the full search history in the stored state")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the best schedule to this file")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", string(codec.JSON), "encoding for --out and the stored state (json|cbor)")
	cmd.Flags().IntVar(&opts.ProgressEvery, "progress-every", 1000, "log progress every n iterations")

	return cmd
}

func addBudgetFlags(cmd *cobra.Command, maxIter *int, timeout *time.Duration) {
	cmd.Flags().IntVar(maxIter, "max-iterations", 0, "stop after n expansions (0 = unlimited)")
	cmd.Flags().DurationVar(timeout, "timeout", 0, "stop after this wall-clock time (0 = unlimited)")
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	kind, err := solver.ParsePolicyKind(opts.Policy)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --policy", err)
	}
	policy := solver.Policy{Kind: kind, Seed: opts.Seed}
	if cmd.Flags().Changed("rank-factor") {
		policy.RankFactor = solver.Factor(opts.RankFactor)
	}
	if err := policy.Validate(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid policy", err)
	}
	enc, err := codec.ParseEncoding(opts.Encoding)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "invalid --encoding", err)
	}
	budget := solver.Budget{MaxIterations: opts.MaxIterations, Timeout: opts.Timeout}

	inst, err := loadInstance(f, path)
	if err != nil {
		return err
	}
	g, err := graph.Build(inst)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "invalid instance", err)
	}

	var st *store.Store
	var sess store.Session
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer closeStore(st)
		if sess, err = st.CreateSolveSession(cmd.Context(), inst, policy); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to create session", err)
		}
	}

	sv, err := solver.New(inst, g,
		solver.WithPolicy(policy),
		solver.WithHistory(opts.History),
		solver.WithProgressEvery(max(opts.ProgressEvery, 1)),
	)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to create solver", err)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	res, err := runWorker(ctx, sv, budget, f)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "search failed", err)
	}

	result := SolveResult{
		SessionID:   sess.ID,
		Instance:    inst.Name,
		Policy:      policy.Kind,
		Diagnostics: res.Diagnostics,
	}
	if st != nil {
		if err := persistRun(cmd.Context(), st, sess.ID, sv, res, enc, graph.PosInf); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to store run", err)
		}
	}
	return finishSolve(f, &result, res, opts.Out, enc)
}

// finishSolve writes --out, prints the result and maps infeasibility to
// ExitFailure.
func finishSolve(f *OutputFormatter, result *SolveResult, res solver.Result, out string, enc codec.Encoding) error {
	if best := res.Best(); best != nil {
		e := best.Export()
		result.Best = &e
		if out != "" {
			data, err := codec.Marshal(enc, e)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to encode schedule", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write schedule", err)
			}
			result.Output = out
		}
	}

	if err := f.Success(*result); err != nil {
		return err
	}
	if !result.Diagnostics.Feasible {
		if result.Diagnostics.Optimal {
			return NewExitError(ExitFailure, fmt.Sprintf("[%s] %s has no feasible schedule", ErrCodeInfeasible, result.Instance))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("no schedule for %s within budget", result.Instance))
	}
	return nil
}

// runWorker runs the search on its own goroutine and reports its events
// as they arrive.
func runWorker(ctx context.Context, sv *solver.Solver, budget solver.Budget, f *OutputFormatter) (solver.Result, error) {
	run := sv.Start(ctx, budget)
	for ev := range run.Events() {
		switch ev.Kind {
		case solver.EventImproved:
			f.VerboseLog("iteration %d: makespan %d", ev.Iteration, ev.UpperBound)
		case solver.EventProgress:
			f.VerboseLog("iteration %d: frontier %d, best %s", ev.Iteration, ev.Frontier, bound(ev.UpperBound))
		}
	}
	return run.Wait()
}

func bound(ub int64) string {
	if ub == graph.PosInf {
		return "none"
	}
	return fmt.Sprintf("%d", ub)
}

// persistRun stores the schedules that beat prevBest and the final state.
// Resumed runs pass the stored bound so earlier schedules are not stored
// twice.
func persistRun(ctx context.Context, st *store.Store, sessionID string, sv *solver.Solver, res solver.Result, enc codec.Encoding, prevBest int64) error {
	for _, ps := range res.Solutions {
		if ps.Makespan() >= prevBest {
			continue
		}
		if _, err := st.WriteSolution(ctx, sessionID, ps.Export()); err != nil {
			return err
		}
	}
	state, err := sv.State()
	if err != nil {
		return err
	}
	seq, err := st.WriteState(ctx, sessionID, state, res.Diagnostics, enc)
	if err != nil {
		return err
	}
	slog.Info("run stored", "session", sessionID, "seq", seq, "encoding", enc)
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
