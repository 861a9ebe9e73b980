package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/compiler"
	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Line bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Name       string                     `json:"name,omitempty"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
	Violations []schedule.Violation       `json:"violations,omitempty"`
	Makespan   *int64                     `json:"makespan,omitempty"`
	Earliest   *int64                     `json:"earliest_makespan,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <definition> [schedule]",
		Short: "Check a definition, and optionally a schedule against it",
		Long: `Check an instance or production-line definition for shape errors.

Given a schedule file (JSON or CBOR, as written by solve --out), also check
that every operation is placed, that no constraint edge or setup time is
violated, and that no machine runs two operations at once.

Exit codes:
  0 - Valid
  1 - Validation errors or schedule violations
  2 - Command error (invalid paths, unreadable files, etc.)

Examples:
  shopsched validate shop.cue
  shopsched validate line.yaml --line
  shopsched validate shop.yaml best.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Line, "line", false, "the definition is a production line")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	path := args[0]
	if opts.Line && len(args) > 1 {
		return f.Fail(ExitCommandError, ErrCodeBadFlag, "schedules can only be checked against an instance", nil)
	}
	if err := checkPath(f, path); err != nil {
		return err
	}

	var (
		inst *ir.Instance
		name string
		err  error
	)
	if opts.Line {
		var line *ir.ProductionLine
		line, err = compiler.LoadLine(path)
		if line != nil {
			name = line.Name
		}
	} else {
		inst, err = compiler.LoadInstance(path)
		if inst != nil {
			name = inst.Name
		}
	}
	if err != nil {
		var verrs compiler.ValidationErrors
		if errors.As(err, &verrs) {
			return outputValidationErrors(f, ValidationResult{Errors: verrs})
		}
		var cerr *compiler.CompileError
		if errors.As(err, &cerr) {
			return outputValidationErrors(f, ValidationResult{Errors: []compiler.ValidationError{{
				Field:   cerr.Field,
				Message: cerr.Error(),
				Code:    ErrCodeInvalid,
			}}})
		}
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load definition", err)
	}
	f.VerboseLog("%s is well formed", path)

	result := ValidationResult{Valid: true, Name: name}
	if len(args) > 1 {
		if err := checkSchedule(f, inst, args[1], &result); err != nil {
			return err
		}
		if len(result.Violations) > 0 {
			result.Valid = false
			return outputValidationErrors(f, result)
		}
	}
	return outputValidateSuccess(f, result)
}

// checkSchedule validates the schedule file at path against inst.
func checkSchedule(f *OutputFormatter, inst *ir.Instance, path string, result *ValidationResult) error {
	if err := checkPath(f, path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read schedule", err)
	}
	var e schedule.Export
	if err := codec.Unmarshal(codec.Sniff(data), data, &e); err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to decode schedule", err)
	}
	g, err := graph.Build(inst)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "invalid instance", err)
	}

	result.Violations = schedule.Validate(inst, g, e.Starts())
	makespan := e.Makespan
	result.Makespan = &makespan
	if ps, err := schedule.Import(inst, g, e); err == nil && ps.Complete() {
		earliest := ps.Makespan()
		result.Earliest = &earliest
	} else if err != nil {
		f.VerboseLog("machine orders cannot be rescheduled: %v", err)
	}
	return nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "✓ %s is valid\n", result.Name)
	if result.Makespan != nil {
		fmt.Fprintf(f.Writer, "  makespan %d", *result.Makespan)
		if result.Earliest != nil && *result.Earliest < *result.Makespan {
			fmt.Fprintf(f.Writer, " (same machine orders finish at %d)", *result.Earliest)
		}
		fmt.Fprintln(f.Writer)
	}
	return nil
}

// outputValidationErrors outputs shape errors or schedule violations.
func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	count := len(result.Errors) + len(result.Violations)
	if f.Format == "json" {
		first := fmt.Sprintf("%d problem(s)", count)
		code := ErrCodeInvalid
		if len(result.Errors) > 0 {
			first, code = result.Errors[0].Message, result.Errors[0].Code
		} else if len(result.Violations) > 0 {
			first = result.Violations[0].String()
		}
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: code, Message: first},
		}

		if err := f.Respond(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, err := range result.Errors {
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, v := range result.Violations {
		fmt.Fprintf(f.Writer, "  %s\n", v)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}
