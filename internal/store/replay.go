package store

import (
	"context"
	"fmt"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/solver"
)

// Resumable is everything a paused solve needs to continue.
type Resumable struct {
	Session  Session
	Instance *ir.Instance
	Policy   solver.Policy
	State    solver.State
	Record   StateRecord
}

// LoadResumable restores the latest state of a solve session together with
// the instance it ran on. The stored definition is checked against its
// hash so a tampered row cannot be resumed against the wrong graph.
func (s *Store) LoadResumable(ctx context.Context, sessionID string) (Resumable, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return Resumable{}, err
	}
	if sess.Kind != KindSolve {
		return Resumable{}, fmt.Errorf("session %s is a %s session, not solve", sessionID, sess.Kind)
	}

	inst, err := sess.Instance()
	if err != nil {
		return Resumable{}, err
	}
	var policy solver.Policy
	if err := codec.Unmarshal(codec.JSON, sess.Settings, &policy); err != nil {
		return Resumable{}, fmt.Errorf("session %s settings: %w", sessionID, err)
	}

	rec, err := s.LatestState(ctx, sessionID)
	if err != nil {
		return Resumable{}, err
	}
	var st solver.State
	if err := codec.Unmarshal(rec.Encoding, rec.Data, &st); err != nil {
		return Resumable{}, fmt.Errorf("state %d: %w", rec.Seq, err)
	}

	return Resumable{Session: sess, Instance: inst, Policy: policy, State: st, Record: rec}, nil
}

// Instance decodes the definition of a solve session and verifies its
// hash.
func (sess Session) Instance() (*ir.Instance, error) {
	var inst ir.Instance
	if err := codec.Unmarshal(codec.JSON, sess.Definition, &inst); err != nil {
		return nil, fmt.Errorf("session %s definition: %w", sess.ID, err)
	}
	hash, err := ir.InstanceHash(&inst)
	if err != nil {
		return nil, err
	}
	if hash != sess.DefinitionHash {
		return nil, fmt.Errorf("session %s definition hash %s does not match stored %s", sess.ID, hash, sess.DefinitionHash)
	}
	return &inst, nil
}

// Line decodes the definition and settings of a propagate session and
// verifies its hash.
func (sess Session) Line() (*ir.ProductionLine, PropagateSettings, error) {
	var line ir.ProductionLine
	if err := codec.Unmarshal(codec.JSON, sess.Definition, &line); err != nil {
		return nil, PropagateSettings{}, fmt.Errorf("session %s definition: %w", sess.ID, err)
	}
	hash, err := ir.LineHash(&line)
	if err != nil {
		return nil, PropagateSettings{}, err
	}
	if hash != sess.DefinitionHash {
		return nil, PropagateSettings{}, fmt.Errorf("session %s definition hash %s does not match stored %s", sess.ID, hash, sess.DefinitionHash)
	}
	var settings PropagateSettings
	if err := codec.Unmarshal(codec.JSON, sess.Settings, &settings); err != nil {
		return nil, PropagateSettings{}, fmt.Errorf("session %s settings: %w", sess.ID, err)
	}
	return &line, settings, nil
}
