package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/solver"
)

func TestHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "--format", "json", "solve", twoJobsPath, "--db", db)
	require.NoError(t, err)
	var solved SolveResult
	decodeData(t, out, &solved)
	require.NotEmpty(t, solved.SessionID)

	_, err = execute(t, "propagate", linePath, "--db", db)
	require.NoError(t, err)

	out, err = execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)
	var list SessionList
	decodeData(t, out, &list)
	require.Len(t, list.Sessions, 2)
	assert.Equal(t, solved.SessionID, list.Sessions[0].ID)
	assert.Equal(t, "solve", list.Sessions[0].Kind)
	assert.Equal(t, "two-jobs", list.Sessions[0].Name)
	assert.Equal(t, "propagate", list.Sessions[1].Kind)
	assert.Equal(t, int64(3), list.Sessions[1].LastSeq)

	out, err = execute(t, "history", solved.SessionID, "--db", db)
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "solve two-jobs")
	assert.Contains(t, out, "solution  makespan=6 complete=1")
	assert.Contains(t, out, "state     iterations=")
}

func TestHistoryErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, "history", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "solve", twoJobsPath, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "history", "no-such-session", "--db", db)
	require.Error(t, err)
	resp := decodeData(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	_, err = execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestResume(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	full, err := execute(t, "--format", "json", "solve", duplexPath)
	require.NoError(t, err)
	var want SolveResult
	decodeData(t, full, &want)
	require.NotNil(t, want.Best)

	// The first leg may or may not find a schedule; either way its state
	// is stored.
	out, err := execute(t, "--format", "json", "solve", duplexPath, "--policy", "depth", "--max-iterations", "4", "--db", db, "--encoding", "cbor")
	require.Contains(t, []int{ExitSuccess, ExitFailure}, GetExitCode(err))
	var first SolveResult
	decodeData(t, out, &first)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, solver.StopIterations, first.Diagnostics.StopReason)

	out, err = execute(t, "--format", "json", "resume", first.SessionID, "--db", db)
	require.NoError(t, err)
	var resumed SolveResult
	decodeData(t, out, &resumed)
	assert.Equal(t, first.SessionID, resumed.SessionID)
	assert.True(t, resumed.Diagnostics.Optimal)
	require.NotNil(t, resumed.Best)
	assert.Equal(t, want.Best.Makespan, resumed.Best.Makespan)
	assert.Greater(t, resumed.Diagnostics.Iterations, first.Diagnostics.Iterations)

	out, err = execute(t, "history", first.SessionID, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "state "))
}

func TestResumeErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, "propagate", linePath, "--db", db)
	require.NoError(t, err)
	out, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)
	var list SessionList
	decodeData(t, out, &list)
	require.Len(t, list.Sessions, 1)

	_, err = execute(t, "resume", list.Sessions[0].ID, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = execute(t, "--format", "json", "resume", "no-such-session", "--db", db)
	require.Error(t, err)
	resp := decodeData(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	_, err = execute(t, "resume", list.Sessions[0].ID, "--db", db, "--encoding", "xml")
	require.Error(t, err)
}
