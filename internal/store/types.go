package store

import (
	"errors"
	"fmt"

	"github.com/roach88/shopsched/internal/codec"
)

// SessionKind says what a session ran.
type SessionKind string

const (
	KindSolve     SessionKind = "solve"
	KindPropagate SessionKind = "propagate"
)

// ErrNotFound is returned when a session or record does not exist.
var ErrNotFound = errors.New("not found")

// Session is one solve or propagate run, possibly resumed several times.
type Session struct {
	ID             string
	Kind           SessionKind
	Name           string
	DefinitionHash string
	Definition     []byte // JSON
	Settings       []byte // JSON
	Seq            int64
	LastSeq        int64
	EngineVersion  string
	IRVersion      string
}

// StateRecord is a persisted solver state with its summary columns.
type StateRecord struct {
	SessionID  string
	Seq        int64
	Encoding   codec.Encoding
	Data       []byte
	Iterations int
	UpperBound int64
	StopReason string
	Optimal    bool
}

// SolutionRecord is one improving schedule.
type SolutionRecord struct {
	SessionID string
	Seq       int64
	Makespan  int64
	Complete  bool
	Data      []byte // JSON schedule.Export
}

// SnapshotRecord is one propagation iteration.
type SnapshotRecord struct {
	SessionID string
	Seq       int64
	Iteration int
	Changed   bool
	Data      []byte // JSON modular.Snapshot
}

// EntryKind labels a history entry.
type EntryKind string

const (
	EntryState    EntryKind = "state"
	EntrySolution EntryKind = "solution"
	EntrySnapshot EntryKind = "snapshot"
)

// Entry is one line of a session's history.
type Entry struct {
	Seq     int64
	Kind    EntryKind
	Summary string
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}
