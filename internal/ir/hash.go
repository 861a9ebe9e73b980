package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainInstance = "shopsched/instance/v1"
	DomainLine     = "shopsched/line/v1"
)

// hashWithDomain computes SHA-256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InstanceHash computes a content hash of an instance. Vertex and edge ids
// of a graph built from the instance are only meaningful next to this hash.
func InstanceHash(inst *Instance) (string, error) {
	data, err := MarshalCanonical(instanceDoc(inst))
	if err != nil {
		return "", fmt.Errorf("InstanceHash: %w", err)
	}
	return hashWithDomain(DomainInstance, data), nil
}

// LineHash computes a content hash of a production line.
func LineHash(line *ProductionLine) (string, error) {
	modules := make([]any, len(line.Modules))
	for i := range line.Modules {
		modules[i] = map[string]any{
			"name":     line.Modules[i].Name,
			"instance": instanceDoc(&line.Modules[i].Instance),
		}
	}
	transfers := make([]any, len(line.Transfers))
	for i, t := range line.Transfers {
		setup := map[string]any{}
		for j, v := range t.Setup {
			setup[fmt.Sprintf("%d", j)] = v
		}
		due := map[string]any{}
		for j, v := range t.Due {
			due[fmt.Sprintf("%d", j)] = v
		}
		transfers[i] = map[string]any{"from": t.From, "to": t.To, "setup": setup, "due": due}
	}
	data, err := MarshalCanonical(map[string]any{
		"name":      line.Name,
		"modules":   modules,
		"transfers": transfers,
	})
	if err != nil {
		return "", fmt.Errorf("LineHash: %w", err)
	}
	return hashWithDomain(DomainLine, data), nil
}

func instanceDoc(inst *Instance) map[string]any {
	machines := make([]any, len(inst.Machines))
	for i, m := range inst.Machines {
		machines[i] = int(m)
	}
	jobs := make([]any, len(inst.Jobs))
	for i, j := range inst.Jobs {
		ops := make([]any, len(j.Operations))
		for k, op := range j.Operations {
			ops[k] = map[string]any{"machine": int(op.Machine), "processing": op.ProcessingTime}
		}
		job := map[string]any{"id": int(j.ID), "release": j.ReleaseDate, "operations": ops}
		if j.HasDue {
			job["due"] = j.DueDate
		}
		jobs[i] = job
	}
	lags := make([]any, len(inst.Lags))
	for i, l := range inst.Lags {
		lag := map[string]any{
			"from": l.From.String(),
			"to":   l.To.String(),
			"min":  l.Min,
		}
		if l.HasMax {
			lag["max"] = l.Max
		}
		lags[i] = lag
	}
	setups := make([]any, len(inst.Setups))
	for i, s := range inst.Setups {
		setups[i] = map[string]any{
			"machine":  int(s.Machine),
			"from_job": int(s.FromJob),
			"to_job":   int(s.ToJob),
			"duration": s.Duration,
		}
	}
	return map[string]any{
		"name":            inst.Name,
		"fixed_job_order": inst.FixedJobOrder,
		"machines":        machines,
		"jobs":            jobs,
		"lags":            lags,
		"setups":          setups,
	}
}
