package testutil

import "github.com/roach88/shopsched/internal/ir"

// Machines of the printing flow shop.
const (
	MachineLoad ir.MachineID = iota
	MachinePrint1
	MachinePrint2
	MachineUnload
)

// FlowShopMakespan is the optimal makespan of FlowShop(5), computed by
// hand: print1 is the bottleneck, its five runs start at 3, 8, 13, 18
// and 23, and the last job then needs 6 + 6 + 2 more.
const FlowShopMakespan = 37

// FlowShop returns the homogeneous load -> print1 -> print2 -> unload
// flow shop with n identical jobs. Consecutive stages of a job are at least
// p+1 apart (one unit of transport), and printing must begin at most 10
// after loading. Jobs keep their order on every machine.
func FlowShop(n int) *ir.Instance {
	inst := &ir.Instance{
		Name:          "flowshop",
		Machines:      []ir.MachineID{MachineLoad, MachinePrint1, MachinePrint2, MachineUnload},
		FixedJobOrder: true,
	}
	stages := []struct {
		m ir.MachineID
		p int64
	}{
		{MachineLoad, 2},
		{MachinePrint1, 5},
		{MachinePrint2, 5},
		{MachineUnload, 2},
	}
	for j := 1; j <= n; j++ {
		job := ir.Job{ID: ir.JobID(j)}
		for _, s := range stages {
			job.Operations = append(job.Operations, ir.Operation{Machine: s.m, ProcessingTime: s.p})
		}
		inst.Jobs = append(inst.Jobs, job)

		for k := 0; k+1 < len(stages); k++ {
			lag := ir.TimeLag{
				From: ir.OpRef{Job: job.ID, Op: ir.OperationID(k)},
				To:   ir.OpRef{Job: job.ID, Op: ir.OperationID(k + 1)},
				Min:  stages[k].p + 1,
			}
			if k == 0 {
				lag.Max, lag.HasMax = 10, true
			}
			inst.Lags = append(inst.Lags, lag)
		}
	}
	inst.Normalize()
	return inst
}

// TwoJobs returns a two-machine instance small enough to schedule by hand:
// job 1 runs m0 (3) then m1 (2); job 2 runs m0 (2) and is released at 4.
func TwoJobs() *ir.Instance {
	inst := &ir.Instance{
		Name:     "two-jobs",
		Machines: []ir.MachineID{0, 1},
		Jobs: []ir.Job{
			{ID: 1, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 3}, {Machine: 1, ProcessingTime: 2}}},
			{ID: 2, ReleaseDate: 4, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 2}}},
		},
	}
	inst.Normalize()
	return inst
}

// Duplex returns a re-entrant shop: every job prints its front side on
// machine 0, dries on machine 1, and returns to machine 0 for the back
// side. Machine 0 has sequence-dependent setups and job 1 must dry within
// 3 units of finishing its front side.
func Duplex() *ir.Instance {
	times := map[ir.JobID][3]int64{
		1: {3, 2, 3},
		2: {2, 4, 2},
		3: {4, 1, 2},
	}
	inst := &ir.Instance{
		Name:     "duplex",
		Machines: []ir.MachineID{0, 1},
		Setups: []ir.SetupTime{
			{Machine: 0, FromJob: 1, ToJob: 2, Duration: 2},
			{Machine: 0, FromJob: 2, ToJob: 3, Duration: 1},
			{Machine: 0, FromJob: 3, ToJob: 1, Duration: 1},
		},
		Lags: []ir.TimeLag{
			{From: ir.OpRef{Job: 1, Op: 0}, To: ir.OpRef{Job: 1, Op: 1}, Min: 3, Max: 6, HasMax: true},
		},
	}
	for _, id := range []ir.JobID{1, 2, 3} {
		p := times[id]
		inst.Jobs = append(inst.Jobs, ir.Job{ID: id, Operations: []ir.Operation{
			{Machine: 0, ProcessingTime: p[0]},
			{Machine: 1, ProcessingTime: p[1]},
			{Machine: 0, ProcessingTime: p[2]},
		}})
	}
	inst.Normalize()
	return inst
}

// Line returns a two-module production line. The print module spaces the
// jobs 3 to 6 apart; the finish module has no constraints of its own, so
// everything it learns comes across the transfer, which takes 1 to 4 per
// job.
func Line() *ir.ProductionLine {
	printing := ir.Instance{
		Name:     "print",
		Machines: []ir.MachineID{0},
		Jobs: []ir.Job{
			{ID: 1, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 3}}},
			{ID: 2, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 2}}},
		},
		Lags: []ir.TimeLag{
			{From: ir.OpRef{Job: 1}, To: ir.OpRef{Job: 2}, Min: 3, Max: 6, HasMax: true},
		},
	}
	finish := ir.Instance{
		Name:     "finish",
		Machines: []ir.MachineID{0},
		Jobs: []ir.Job{
			{ID: 1, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 2}}},
			{ID: 2, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 2}}},
		},
	}
	printing.Normalize()
	finish.Normalize()

	return &ir.ProductionLine{
		Name:    "line",
		Modules: []ir.Module{{Name: "print", Instance: printing}, {Name: "finish", Instance: finish}},
		Transfers: []ir.TransferConstraint{{
			From:  0,
			To:    1,
			Setup: map[ir.JobID]int64{1: 1, 2: 1},
			Due:   map[ir.JobID]int64{1: 4, 2: 4},
		}},
	}
}
