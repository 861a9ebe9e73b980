package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func validInstance() InstanceDef {
	return InstanceDef{
		Name:     "shop",
		Machines: []int{0, 1},
		Jobs: []JobDef{
			{ID: 1, Operations: []OperationDef{{Machine: 0, Processing: 3}, {Machine: 1, Processing: 2}}},
			{ID: 2, Operations: []OperationDef{{Machine: 0, Processing: 2}}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateInstance(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *InstanceDef)
		want   []string
	}{
		{name: "valid", mutate: func(d *InstanceDef) {}},
		{
			name:   "no machines",
			mutate: func(d *InstanceDef) { d.Machines = nil },
			want:   []string{ErrInstanceNoMachines, ErrUnknownMachine, ErrUnknownMachine, ErrUnknownMachine},
		},
		{
			name:   "no jobs",
			mutate: func(d *InstanceDef) { d.Jobs = nil },
			want:   []string{ErrInstanceNoJobs},
		},
		{
			name:   "duplicate machine",
			mutate: func(d *InstanceDef) { d.Machines = append(d.Machines, 1) },
			want:   []string{ErrDuplicateMachine},
		},
		{
			name:   "duplicate job",
			mutate: func(d *InstanceDef) { d.Jobs[1].ID = 1 },
			want:   []string{ErrDuplicateJob},
		},
		{
			name:   "empty job",
			mutate: func(d *InstanceDef) { d.Jobs[1].Operations = nil },
			want:   []string{ErrJobNoOperations},
		},
		{
			name:   "negative processing",
			mutate: func(d *InstanceDef) { d.Jobs[0].Operations[0].Processing = -1 },
			want:   []string{ErrNegativeTime},
		},
		{
			name:   "due before release",
			mutate: func(d *InstanceDef) { d.Jobs[0].Release = 5; d.Jobs[0].Due = ptr(2) },
			want:   []string{ErrDueBeforeRelease},
		},
		{
			name: "lag to missing operation",
			mutate: func(d *InstanceDef) {
				d.Lags = []LagDef{{From: RefDef{Job: 1, Op: 1}, To: RefDef{Job: 2, Op: 1}, Min: 0}}
			},
			want: []string{ErrUnknownOperation},
		},
		{
			name: "lag max below min",
			mutate: func(d *InstanceDef) {
				d.Lags = []LagDef{{From: RefDef{Job: 1}, To: RefDef{Job: 2}, Min: 4, Max: ptr(3)}}
			},
			want: []string{ErrLagBounds},
		},
		{
			name: "setup problems",
			mutate: func(d *InstanceDef) {
				d.Setups = []SetupDef{
					{Machine: 0, FromJob: 1, ToJob: 9, Duration: 1},
					{Machine: 0, FromJob: 1, ToJob: 9, Duration: -1},
				}
			},
			want: []string{ErrUnknownSetupJob, ErrUnknownSetupJob, ErrNegativeTime, ErrDuplicateSetup},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validInstance()
			tt.mutate(&d)
			errs := Validate(&d)
			if len(tt.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, codes(errs))
		})
	}
}

func validLine() LineDef {
	return LineDef{
		Name: "line",
		Modules: []ModuleDef{
			{Name: "a", Instance: validInstance()},
			{Name: "b", Instance: validInstance()},
		},
		Transfers: []TransferDef{{From: 0, To: 1, Setup: map[string]int64{"1": 1}, Due: map[string]int64{"1": 4}}},
	}
}

func TestValidateLine(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *LineDef)
		want   []string
	}{
		{name: "valid", mutate: func(d *LineDef) {}},
		{
			name:   "no modules",
			mutate: func(d *LineDef) { d.Modules = nil; d.Transfers = nil },
			want:   []string{ErrLineNoModules},
		},
		{
			name:   "duplicate module",
			mutate: func(d *LineDef) { d.Modules[1].Name = "a" },
			want:   []string{ErrDuplicateModule},
		},
		{
			name:   "module instance error is prefixed",
			mutate: func(d *LineDef) { d.Modules[1].Instance.Jobs = nil },
			want:   []string{ErrInstanceNoJobs, ErrTransferUnknownJob, ErrTransferUnknownJob},
		},
		{
			name:   "non adjacent transfer",
			mutate: func(d *LineDef) { d.Transfers[0].To = 2 },
			want:   []string{ErrTransferTopology, ErrTransferMissing},
		},
		{
			name:   "missing transfer",
			mutate: func(d *LineDef) { d.Transfers = nil },
			want:   []string{ErrTransferMissing},
		},
		{
			name:   "bad job key",
			mutate: func(d *LineDef) { d.Transfers[0].Setup = map[string]int64{"one": 1} },
			want:   []string{ErrTransferJobKey},
		},
		{
			name:   "due below setup",
			mutate: func(d *LineDef) { d.Transfers[0].Due["1"] = 0 },
			want:   []string{ErrTransferBounds},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validLine()
			tt.mutate(&d)
			errs := Validate(&d)
			if len(tt.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, codes(errs))
		})
	}
}

func TestValidateFieldPrefix(t *testing.T) {
	d := validLine()
	d.Modules[1].Instance.Jobs[0].Operations[0].Machine = 7
	errs := Validate(d)
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "modules[1].instance.jobs[0].operations[0].machine", errs[0].Field)
	}
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate(42)
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "type", errs[0].Field)
	}
}
