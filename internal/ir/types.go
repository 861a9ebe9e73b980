package ir

import (
	"fmt"
	"math"
)

// Sentinels for unbounded times. Arithmetic on them must go through AddSat.
const (
	NegInf int64 = math.MinInt64
	PosInf int64 = math.MaxInt64
)

// JobID identifies a job within an instance.
type JobID int

// OperationID is the position of an operation within its job (0-based).
// Duplex jobs may visit the same machine more than once, so operations of a
// job are an ordered sequence.
type OperationID int

// MachineID identifies a machine within an instance.
type MachineID int

// OpRef names one operation by (job, operation).
type OpRef struct {
	Job JobID       `json:"job" yaml:"job"`
	Op  OperationID `json:"op" yaml:"op"`
}

// String renders the reference as "job.op".
func (r OpRef) String() string {
	return fmt.Sprintf("%d.%d", r.Job, r.Op)
}

// Operation is one processing step of a job on a machine.
type Operation struct {
	Job            JobID       `json:"job"`
	ID             OperationID `json:"id"`
	Machine        MachineID   `json:"machine"`
	ProcessingTime int64       `json:"processing_time"`
}

// Ref returns the operation's reference.
func (o Operation) Ref() OpRef {
	return OpRef{Job: o.Job, Op: o.ID}
}

// Job is an ordered sequence of operations.
//
// DueDate bounds the completion of the last operation when HasDue is set.
type Job struct {
	ID          JobID       `json:"id"`
	Operations  []Operation `json:"operations"`
	ReleaseDate int64       `json:"release_date,omitempty"`
	DueDate     int64       `json:"due_date,omitempty"`
	HasDue      bool        `json:"has_due,omitempty"`
}

// TimeLag is a start-to-start constraint between two operations:
// Min <= start(To) - start(From) <= Max. Max is ignored unless HasMax.
type TimeLag struct {
	From   OpRef `json:"from"`
	To     OpRef `json:"to"`
	Min    int64 `json:"min"`
	Max    int64 `json:"max,omitempty"`
	HasMax bool  `json:"has_max,omitempty"`
}

// SetupTime is a sequence-dependent setup between two consecutive
// operations of different (or identical, for re-entrant flows) jobs on a
// machine.
type SetupTime struct {
	Machine  MachineID `json:"machine"`
	FromJob  JobID     `json:"from_job"`
	ToJob    JobID     `json:"to_job"`
	Duration int64     `json:"duration"`
}

// Instance is a parsed problem definition for one shop.
type Instance struct {
	Name     string      `json:"name"`
	Machines []MachineID `json:"machines"`
	Jobs     []Job       `json:"jobs"`
	Lags     []TimeLag   `json:"lags,omitempty"`
	Setups   []SetupTime `json:"setups,omitempty"`

	// FixedJobOrder requires operations with the same OperationID on a
	// machine to be sequenced in job declaration order. Only the interleaving
	// of different stages (e.g. the two passes of a duplex job) is decided.
	FixedJobOrder bool `json:"fixed_job_order,omitempty"`
}

// Operation returns the operation for ref, if present.
func (inst *Instance) Operation(ref OpRef) (Operation, bool) {
	idx := inst.JobIndex(ref.Job)
	if idx < 0 {
		return Operation{}, false
	}
	ops := inst.Jobs[idx].Operations
	if int(ref.Op) < 0 || int(ref.Op) >= len(ops) {
		return Operation{}, false
	}
	return ops[ref.Op], true
}

// JobIndex returns the declaration index of a job, or -1.
func (inst *Instance) JobIndex(id JobID) int {
	for i := range inst.Jobs {
		if inst.Jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// JobOrder returns job ids in declaration order.
func (inst *Instance) JobOrder() []JobID {
	ids := make([]JobID, len(inst.Jobs))
	for i := range inst.Jobs {
		ids[i] = inst.Jobs[i].ID
	}
	return ids
}

// NumOperations returns the total operation count.
func (inst *Instance) NumOperations() int {
	n := 0
	for i := range inst.Jobs {
		n += len(inst.Jobs[i].Operations)
	}
	return n
}

// Setup returns the setup duration between consecutive operations of
// fromJob and toJob on machine m (0 when not declared).
func (inst *Instance) Setup(m MachineID, fromJob, toJob JobID) int64 {
	for _, s := range inst.Setups {
		if s.Machine == m && s.FromJob == fromJob && s.ToJob == toJob {
			return s.Duration
		}
	}
	return 0
}

// Normalize fills operation Job/ID fields from their position, so callers
// that build jobs by hand only need Machine and ProcessingTime.
func (inst *Instance) Normalize() {
	for i := range inst.Jobs {
		for k := range inst.Jobs[i].Operations {
			inst.Jobs[i].Operations[k].Job = inst.Jobs[i].ID
			inst.Jobs[i].Operations[k].ID = OperationID(k)
		}
	}
}

// AddSat adds d to a time, leaving the sentinels unchanged and clamping on
// overflow. An infinite d yields the matching sentinel.
func AddSat(t, d int64) int64 {
	if t == NegInf || t == PosInf {
		return t
	}
	if d == NegInf || d == PosInf {
		return d
	}
	s := t + d
	if d > 0 && s < t {
		return PosInf
	}
	if d < 0 && s > t {
		return NegInf
	}
	return s
}
