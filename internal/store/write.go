package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/schedule"
	"github.com/roach88/shopsched/internal/solver"
)

// CreateSession inserts a session. An empty ID is replaced with a fresh
// UUIDv7; Seq, LastSeq and the version columns are assigned here.
func (s *Store) CreateSession(ctx context.Context, sess Session) (Session, error) {
	if sess.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Session{}, fmt.Errorf("create session: %w", err)
		}
		sess.ID = id.String()
	}
	if sess.Settings == nil {
		sess.Settings = []byte("{}")
	}
	sess.EngineVersion = ir.EngineVersion
	sess.IRVersion = ir.IRVersion
	sess.LastSeq = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("create session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions`).Scan(&sess.Seq); err != nil {
		return Session{}, fmt.Errorf("create session: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, kind, name, definition_hash, definition, settings, seq, last_seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`,
		sess.ID,
		string(sess.Kind),
		sess.Name,
		sess.DefinitionHash,
		sess.Definition,
		sess.Settings,
		sess.Seq,
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("create session: commit: %w", err)
	}
	return sess, nil
}

// CreateSolveSession records a solve run over inst.
func (s *Store) CreateSolveSession(ctx context.Context, inst *ir.Instance, policy solver.Policy) (Session, error) {
	hash, err := ir.InstanceHash(inst)
	if err != nil {
		return Session{}, err
	}
	def, err := codec.Marshal(codec.JSON, inst)
	if err != nil {
		return Session{}, err
	}
	settings, err := codec.Marshal(codec.JSON, policy)
	if err != nil {
		return Session{}, err
	}
	return s.CreateSession(ctx, Session{
		Kind:           KindSolve,
		Name:           inst.Name,
		DefinitionHash: hash,
		Definition:     def,
		Settings:       settings,
	})
}

// PropagateSettings are the options a propagation ran with.
type PropagateSettings struct {
	Strategy      modular.Strategy `json:"strategy"`
	MaxIterations int              `json:"max_iterations"`
	Sequenced     bool             `json:"sequenced,omitempty"`
}

// CreatePropagateSession records a propagation over line.
func (s *Store) CreatePropagateSession(ctx context.Context, line *ir.ProductionLine, settings PropagateSettings) (Session, error) {
	hash, err := ir.LineHash(line)
	if err != nil {
		return Session{}, err
	}
	def, err := codec.Marshal(codec.JSON, line)
	if err != nil {
		return Session{}, err
	}
	set, err := codec.Marshal(codec.JSON, settings)
	if err != nil {
		return Session{}, err
	}
	return s.CreateSession(ctx, Session{
		Kind:           KindPropagate,
		Name:           line.Name,
		DefinitionHash: hash,
		Definition:     def,
		Settings:       set,
	})
}

// nextSeq advances the session's logical clock inside tx.
func nextSeq(ctx context.Context, tx *sql.Tx, sessionID string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		UPDATE sessions SET last_seq = last_seq + 1
		WHERE id = ?
		RETURNING last_seq
	`, sessionID).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, notFound("session", sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

// withSeq runs insert inside a transaction with the next seq of the
// session.
func (s *Store) withSeq(ctx context.Context, sessionID, what string, insert func(tx *sql.Tx, seq int64) error) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write %s: begin tx: %w", what, err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := nextSeq(ctx, tx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", what, err)
	}
	if err := insert(tx, seq); err != nil {
		return 0, fmt.Errorf("write %s: %w", what, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write %s: commit: %w", what, err)
	}
	return seq, nil
}

// WriteState appends a solver state and the diagnostics of the run that
// produced it.
func (s *Store) WriteState(ctx context.Context, sessionID string, st solver.State, diag solver.Diagnostics, enc codec.Encoding) (int64, error) {
	data, err := codec.Marshal(enc, st)
	if err != nil {
		return 0, fmt.Errorf("write state: %w", err)
	}
	return s.withSeq(ctx, sessionID, "state", func(tx *sql.Tx, seq int64) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO states
			(session_id, seq, encoding, data, iterations, upper_bound, stop_reason, optimal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			sessionID,
			seq,
			string(enc),
			data,
			diag.Iterations,
			diag.UpperBound,
			string(diag.StopReason),
			diag.Optimal,
		)
		return err
	})
}

// WriteSolution appends an improving schedule.
func (s *Store) WriteSolution(ctx context.Context, sessionID string, e schedule.Export) (int64, error) {
	data, err := codec.Marshal(codec.JSON, e)
	if err != nil {
		return 0, fmt.Errorf("write solution: %w", err)
	}
	return s.withSeq(ctx, sessionID, "solution", func(tx *sql.Tx, seq int64) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO solutions (session_id, seq, makespan, complete, data)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, seq, e.Makespan, e.Complete, data)
		return err
	})
}

// WriteSnapshot appends a propagation iteration. Writing an iteration that
// is already stored is silently ignored and returns seq 0.
func (s *Store) WriteSnapshot(ctx context.Context, sessionID string, snap modular.Snapshot) (int64, error) {
	data, err := codec.Marshal(codec.JSON, snap)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM snapshots WHERE session_id = ? AND iteration = ?
	`, sessionID, snap.Iteration).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	if exists > 0 {
		return 0, nil
	}

	seq, err := nextSeq(ctx, tx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, seq, iteration, changed, data)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, seq, snap.Iteration, snap.Changed, data)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return seq, nil
}
