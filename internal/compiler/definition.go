package compiler

import (
	"fmt"
	"strconv"

	"github.com/roach88/shopsched/internal/ir"
)

// InstanceDef is the on-disk form of one shop.
type InstanceDef struct {
	Name          string     `json:"name" yaml:"name"`
	FixedJobOrder bool       `json:"fixed_job_order,omitempty" yaml:"fixed_job_order,omitempty"`
	Machines      []int      `json:"machines" yaml:"machines"`
	Jobs          []JobDef   `json:"jobs" yaml:"jobs"`
	Lags          []LagDef   `json:"lags,omitempty" yaml:"lags,omitempty"`
	Setups        []SetupDef `json:"setups,omitempty" yaml:"setups,omitempty"`
}

// JobDef is one job. Due, when set, bounds the finish of its last
// operation.
type JobDef struct {
	ID         int            `json:"id" yaml:"id"`
	Release    int64          `json:"release,omitempty" yaml:"release,omitempty"`
	Due        *int64         `json:"due,omitempty" yaml:"due,omitempty"`
	Operations []OperationDef `json:"operations" yaml:"operations"`
}

// OperationDef is one processing step; its id is its position in the job.
type OperationDef struct {
	Machine    int   `json:"machine" yaml:"machine"`
	Processing int64 `json:"processing" yaml:"processing"`
}

// RefDef names an operation by job id and position.
type RefDef struct {
	Job int `json:"job" yaml:"job"`
	Op  int `json:"op" yaml:"op"`
}

// LagDef is a start-to-start lag. A nil Max is unbounded.
type LagDef struct {
	From RefDef `json:"from" yaml:"from"`
	To   RefDef `json:"to" yaml:"to"`
	Min  int64  `json:"min" yaml:"min"`
	Max  *int64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// SetupDef is a sequence-dependent setup on one machine.
type SetupDef struct {
	Machine  int   `json:"machine" yaml:"machine"`
	FromJob  int   `json:"from_job" yaml:"from_job"`
	ToJob    int   `json:"to_job" yaml:"to_job"`
	Duration int64 `json:"duration" yaml:"duration"`
}

// LineDef is the on-disk form of a production line.
type LineDef struct {
	Name      string        `json:"name" yaml:"name"`
	Modules   []ModuleDef   `json:"modules" yaml:"modules"`
	Transfers []TransferDef `json:"transfers,omitempty" yaml:"transfers,omitempty"`
}

// ModuleDef is one module of a line.
type ModuleDef struct {
	Name     string      `json:"name" yaml:"name"`
	Instance InstanceDef `json:"instance" yaml:"instance"`
}

// TransferDef links module From to module To. Setup and Due are keyed by
// job id.
type TransferDef struct {
	From  int              `json:"from" yaml:"from"`
	To    int              `json:"to" yaml:"to"`
	Setup map[string]int64 `json:"setup,omitempty" yaml:"setup,omitempty"`
	Due   map[string]int64 `json:"due,omitempty" yaml:"due,omitempty"`
}

// Instance converts d into an ir.Instance. It does not validate; call
// Validate first or use CompileInstanceDef.
func (d InstanceDef) Instance() *ir.Instance {
	inst := &ir.Instance{
		Name:          d.Name,
		FixedJobOrder: d.FixedJobOrder,
	}
	for _, m := range d.Machines {
		inst.Machines = append(inst.Machines, ir.MachineID(m))
	}
	for _, jd := range d.Jobs {
		job := ir.Job{ID: ir.JobID(jd.ID), ReleaseDate: jd.Release}
		if jd.Due != nil {
			job.DueDate, job.HasDue = *jd.Due, true
		}
		for _, od := range jd.Operations {
			job.Operations = append(job.Operations, ir.Operation{
				Machine:        ir.MachineID(od.Machine),
				ProcessingTime: od.Processing,
			})
		}
		inst.Jobs = append(inst.Jobs, job)
	}
	for _, ld := range d.Lags {
		lag := ir.TimeLag{From: ld.From.ref(), To: ld.To.ref(), Min: ld.Min}
		if ld.Max != nil {
			lag.Max, lag.HasMax = *ld.Max, true
		}
		inst.Lags = append(inst.Lags, lag)
	}
	for _, sd := range d.Setups {
		inst.Setups = append(inst.Setups, ir.SetupTime{
			Machine:  ir.MachineID(sd.Machine),
			FromJob:  ir.JobID(sd.FromJob),
			ToJob:    ir.JobID(sd.ToJob),
			Duration: sd.Duration,
		})
	}
	inst.Normalize()
	return inst
}

func (r RefDef) ref() ir.OpRef {
	return ir.OpRef{Job: ir.JobID(r.Job), Op: ir.OperationID(r.Op)}
}

// Line converts d into an ir.ProductionLine. Job keys must parse as
// integers; Validate reports those that do not.
func (d LineDef) Line() (*ir.ProductionLine, error) {
	line := &ir.ProductionLine{Name: d.Name}
	for _, md := range d.Modules {
		line.Modules = append(line.Modules, ir.Module{Name: md.Name, Instance: *md.Instance.Instance()})
	}
	for _, td := range d.Transfers {
		setup, err := jobTable(td.Setup)
		if err != nil {
			return nil, fmt.Errorf("transfer %d->%d setup: %w", td.From, td.To, err)
		}
		due, err := jobTable(td.Due)
		if err != nil {
			return nil, fmt.Errorf("transfer %d->%d due: %w", td.From, td.To, err)
		}
		line.Transfers = append(line.Transfers, ir.TransferConstraint{
			From: td.From, To: td.To, Setup: setup, Due: due,
		})
	}
	return line, nil
}

func jobTable(in map[string]int64) (map[ir.JobID]int64, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[ir.JobID]int64, len(in))
	for k, v := range in {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("job key %q is not an integer", k)
		}
		out[ir.JobID(id)] = v
	}
	return out, nil
}

// FromInstance renders inst back into its definition form.
func FromInstance(inst *ir.Instance) InstanceDef {
	d := InstanceDef{Name: inst.Name, FixedJobOrder: inst.FixedJobOrder}
	for _, m := range inst.Machines {
		d.Machines = append(d.Machines, int(m))
	}
	for _, job := range inst.Jobs {
		jd := JobDef{ID: int(job.ID), Release: job.ReleaseDate}
		if job.HasDue {
			due := job.DueDate
			jd.Due = &due
		}
		for _, op := range job.Operations {
			jd.Operations = append(jd.Operations, OperationDef{Machine: int(op.Machine), Processing: op.ProcessingTime})
		}
		d.Jobs = append(d.Jobs, jd)
	}
	for _, lag := range inst.Lags {
		ld := LagDef{
			From: RefDef{Job: int(lag.From.Job), Op: int(lag.From.Op)},
			To:   RefDef{Job: int(lag.To.Job), Op: int(lag.To.Op)},
			Min:  lag.Min,
		}
		if lag.HasMax {
			hi := lag.Max
			ld.Max = &hi
		}
		d.Lags = append(d.Lags, ld)
	}
	for _, s := range inst.Setups {
		d.Setups = append(d.Setups, SetupDef{
			Machine: int(s.Machine), FromJob: int(s.FromJob), ToJob: int(s.ToJob), Duration: s.Duration,
		})
	}
	return d
}
