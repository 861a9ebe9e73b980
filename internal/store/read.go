package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/schedule"
)

const sessionColumns = `id, kind, name, definition_hash, definition, settings, seq, last_seq, engine_version, ir_version`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var kind string
	err := row.Scan(
		&sess.ID,
		&kind,
		&sess.Name,
		&sess.DefinitionHash,
		&sess.Definition,
		&sess.Settings,
		&sess.Seq,
		&sess.LastSeq,
		&sess.EngineVersion,
		&sess.IRVersion,
	)
	sess.Kind = SessionKind(kind)
	return sess, err
}

// ReadSession retrieves a session by ID. Returns ErrNotFound if absent.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, notFound("session", id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestState returns the most recent state of a session. Returns
// ErrNotFound if the session has none.
func (s *Store) LatestState(ctx context.Context, sessionID string) (StateRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, seq, encoding, data, iterations, upper_bound, stop_reason, optimal
		FROM states
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, sessionID)
	rec, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, notFound("state for session", sessionID)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("read state: %w", err)
	}
	return rec, nil
}

// ReadStates returns every state of a session ordered by seq.
func (s *Store) ReadStates(ctx context.Context, sessionID string) ([]StateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, encoding, data, iterations, upper_bound, stop_reason, optimal
		FROM states
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	states := []StateRecord{}
	for rows.Next() {
		rec, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}
	return states, nil
}

func scanState(row scanner) (StateRecord, error) {
	var rec StateRecord
	var enc string
	err := row.Scan(&rec.SessionID, &rec.Seq, &enc, &rec.Data, &rec.Iterations, &rec.UpperBound, &rec.StopReason, &rec.Optimal)
	rec.Encoding = codec.Encoding(enc)
	return rec, err
}

// ReadSolutions returns every improving schedule of a session ordered by
// seq.
func (s *Store) ReadSolutions(ctx context.Context, sessionID string) ([]SolutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, makespan, complete, data
		FROM solutions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query solutions: %w", err)
	}
	defer rows.Close()

	solutions := []SolutionRecord{}
	for rows.Next() {
		var rec SolutionRecord
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Makespan, &rec.Complete, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		solutions = append(solutions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solutions: %w", err)
	}
	return solutions, nil
}

// Export decodes the stored schedule.
func (r SolutionRecord) Export() (schedule.Export, error) {
	var e schedule.Export
	if err := codec.Unmarshal(codec.JSON, r.Data, &e); err != nil {
		return schedule.Export{}, fmt.Errorf("solution %d: %w", r.Seq, err)
	}
	return e, nil
}

// ReadSnapshots returns the bound snapshots of a session in iteration
// order.
func (s *Store) ReadSnapshots(ctx context.Context, sessionID string) ([]modular.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, data
		FROM snapshots
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []modular.Snapshot{}
	for rows.Next() {
		var seq int64
		var data []byte
		if err := rows.Scan(&seq, &data); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap modular.Snapshot
		if err := codec.Unmarshal(codec.JSON, data, &snap); err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", seq, err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// History merges the three logs of a session into one seq-ordered list.
func (s *Store) History(ctx context.Context, sessionID string) ([]Entry, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, 'state',
		       printf('iterations=%d upper_bound=%d stop=%s optimal=%d', iterations, upper_bound, stop_reason, optimal)
		FROM states WHERE session_id = ?
		UNION ALL
		SELECT seq, 'solution', printf('makespan=%d complete=%d', makespan, complete)
		FROM solutions WHERE session_id = ?
		UNION ALL
		SELECT seq, 'snapshot', printf('iteration=%d changed=%d', iteration, changed)
		FROM snapshots WHERE session_id = ?
		ORDER BY 1 ASC
	`, sessionID, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.Seq, &kind, &e.Summary); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Kind = EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
