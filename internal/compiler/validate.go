package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Validation error codes (E100-E199)
const (
	// Instance errors (E100-E119)
	ErrInstanceNoMachines = "E100" // at least one machine required
	ErrInstanceNoJobs     = "E101" // at least one job required
	ErrDuplicateMachine   = "E102" // machine listed twice
	ErrDuplicateJob       = "E103" // job id used twice
	ErrJobNoOperations    = "E104" // job has no operations
	ErrUnknownMachine     = "E105" // operation or setup on undeclared machine
	ErrNegativeTime       = "E106" // negative processing, release or setup
	ErrUnknownOperation   = "E107" // lag references a missing operation
	ErrLagBounds          = "E108" // lag max below min
	ErrDueBeforeRelease   = "E109" // due date earlier than release
	ErrUnknownSetupJob    = "E110" // setup references a missing job
	ErrDuplicateSetup     = "E111" // setup declared twice

	// Line errors (E120-E139)
	ErrLineNoModules      = "E120" // at least one module required
	ErrDuplicateModule    = "E121" // module name used twice
	ErrTransferTopology   = "E122" // transfer does not link adjacent modules
	ErrTransferMissing    = "E123" // adjacent modules without a transfer
	ErrTransferJobKey     = "E124" // job key is not an integer
	ErrTransferUnknownJob = "E125" // job not present in both modules
	ErrTransferBounds     = "E126" // due below setup, or negative setup
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a definition against the shape rules.
// Returns all errors found (does not fail-fast).
// Supports InstanceDef and LineDef.
func Validate(v any) []ValidationError {
	switch d := v.(type) {
	case *InstanceDef:
		return validateInstance("", d)
	case InstanceDef:
		return validateInstance("", &d)
	case *LineDef:
		return validateLine(d)
	case LineDef:
		return validateLine(&d)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported definition type: %T", v),
			Code:    "E199",
		}}
	}
}

func validateInstance(prefix string, d *InstanceDef) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: prefix + field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if len(d.Machines) == 0 {
		add("machines", ErrInstanceNoMachines, "at least one machine is required")
	}
	machines := make(map[int]bool, len(d.Machines))
	for i, m := range d.Machines {
		if machines[m] {
			add(fmt.Sprintf("machines[%d]", i), ErrDuplicateMachine, "machine %d listed twice", m)
		}
		machines[m] = true
	}

	if len(d.Jobs) == 0 {
		add("jobs", ErrInstanceNoJobs, "at least one job is required")
	}
	ops := make(map[int]int, len(d.Jobs))
	for i, job := range d.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		if _, dup := ops[job.ID]; dup {
			add(field+".id", ErrDuplicateJob, "job %d declared twice", job.ID)
		}
		ops[job.ID] = len(job.Operations)
		if len(job.Operations) == 0 {
			add(field+".operations", ErrJobNoOperations, "job %d has no operations", job.ID)
		}
		if job.Release < 0 {
			add(field+".release", ErrNegativeTime, "release %d is negative", job.Release)
		}
		if job.Due != nil && *job.Due < job.Release {
			add(field+".due", ErrDueBeforeRelease, "due %d is before release %d", *job.Due, job.Release)
		}
		for k, op := range job.Operations {
			of := fmt.Sprintf("%s.operations[%d]", field, k)
			if !machines[op.Machine] {
				add(of+".machine", ErrUnknownMachine, "machine %d is not declared", op.Machine)
			}
			if op.Processing < 0 {
				add(of+".processing", ErrNegativeTime, "processing time %d is negative", op.Processing)
			}
		}
	}

	hasOp := func(r RefDef) bool {
		n, ok := ops[r.Job]
		return ok && r.Op >= 0 && r.Op < n
	}
	for i, lag := range d.Lags {
		field := fmt.Sprintf("lags[%d]", i)
		if !hasOp(lag.From) {
			add(field+".from", ErrUnknownOperation, "operation %d.%d does not exist", lag.From.Job, lag.From.Op)
		}
		if !hasOp(lag.To) {
			add(field+".to", ErrUnknownOperation, "operation %d.%d does not exist", lag.To.Job, lag.To.Op)
		}
		if lag.Max != nil && *lag.Max < lag.Min {
			add(field+".max", ErrLagBounds, "max %d is below min %d", *lag.Max, lag.Min)
		}
	}

	type setupKey struct{ m, from, to int }
	seen := make(map[setupKey]bool, len(d.Setups))
	for i, s := range d.Setups {
		field := fmt.Sprintf("setups[%d]", i)
		if !machines[s.Machine] {
			add(field+".machine", ErrUnknownMachine, "machine %d is not declared", s.Machine)
		}
		for _, j := range []int{s.FromJob, s.ToJob} {
			if _, ok := ops[j]; !ok {
				add(field, ErrUnknownSetupJob, "job %d does not exist", j)
			}
		}
		if s.Duration < 0 {
			add(field+".duration", ErrNegativeTime, "setup %d is negative", s.Duration)
		}
		key := setupKey{s.Machine, s.FromJob, s.ToJob}
		if seen[key] {
			add(field, ErrDuplicateSetup, "setup %d->%d on machine %d declared twice", s.FromJob, s.ToJob, s.Machine)
		}
		seen[key] = true
	}
	return errs
}

func validateLine(d *LineDef) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if len(d.Modules) == 0 {
		add("modules", ErrLineNoModules, "at least one module is required")
	}
	names := make(map[string]bool, len(d.Modules))
	jobs := make([]map[int]bool, len(d.Modules))
	for i := range d.Modules {
		md := &d.Modules[i]
		field := fmt.Sprintf("modules[%d]", i)
		if strings.TrimSpace(md.Name) != "" {
			if names[md.Name] {
				add(field+".name", ErrDuplicateModule, "module %q declared twice", md.Name)
			}
			names[md.Name] = true
		}
		errs = append(errs, validateInstance(field+".instance.", &md.Instance)...)
		jobs[i] = make(map[int]bool, len(md.Instance.Jobs))
		for _, j := range md.Instance.Jobs {
			jobs[i][j.ID] = true
		}
	}

	linked := make(map[int]bool, len(d.Transfers))
	for i, td := range d.Transfers {
		field := fmt.Sprintf("transfers[%d]", i)
		if td.From < 0 || td.To != td.From+1 || td.To >= len(d.Modules) {
			add(field, ErrTransferTopology, "transfer %d->%d does not link adjacent modules", td.From, td.To)
			continue
		}
		if linked[td.From] {
			add(field, ErrTransferTopology, "duplicate transfer %d->%d", td.From, td.To)
		}
		linked[td.From] = true

		check := func(table string, m map[string]int64) {
			for _, k := range slices.Sorted(maps.Keys(m)) {
				v := m[k]
				kf := fmt.Sprintf("%s.%s[%s]", field, table, k)
				j, err := strconv.Atoi(k)
				if err != nil {
					add(kf, ErrTransferJobKey, "job key %q is not an integer", k)
					continue
				}
				if !jobs[td.From][j] || !jobs[td.To][j] {
					add(kf, ErrTransferUnknownJob, "job %d is not in both modules", j)
				}
				if table == "setup" && v < 0 {
					add(kf, ErrTransferBounds, "setup %d is negative", v)
				}
			}
		}
		check("setup", td.Setup)
		check("due", td.Due)
		for _, k := range slices.Sorted(maps.Keys(td.Due)) {
			due := td.Due[k]
			if setup := td.Setup[k]; due < setup {
				add(fmt.Sprintf("%s.due[%s]", field, k), ErrTransferBounds, "due %d is below setup %d", due, setup)
			}
		}
	}
	for i := 0; i+1 < len(d.Modules); i++ {
		if !linked[i] {
			add("transfers", ErrTransferMissing, "modules %d and %d have no transfer", i, i+1)
		}
	}
	return errs
}
