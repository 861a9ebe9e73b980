package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/schedule"
	"github.com/roach88/shopsched/internal/solver"
	"github.com/roach88/shopsched/internal/store"
)

func TestSolveText(t *testing.T) {
	out, err := execute(t, "solve", twoJobsPath)
	require.NoError(t, err)

	assert.Contains(t, out, "two-jobs: makespan 6 (optimal)")
	assert.Contains(t, out, "policy best, stop exhausted")
	assert.Contains(t, out, "m0: 1/0[0,3) 2/0[4,6)")
	assert.Contains(t, out, "m1: 1/1[3,5)")
	assert.NotContains(t, out, "session")
}

func TestSolveJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "solve", twoJobsPath, "--policy", "depth")
	require.NoError(t, err)

	var result SolveResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "two-jobs", result.Instance)
	assert.Equal(t, solver.PolicyDepth, result.Policy)
	assert.True(t, result.Diagnostics.Feasible)
	assert.True(t, result.Diagnostics.Optimal)
	require.NotNil(t, result.Best)
	assert.Equal(t, int64(6), result.Best.Makespan)
}

func TestSolveWritesSchedule(t *testing.T) {
	for _, enc := range codec.Encodings {
		t.Run(string(enc), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "best."+string(enc))

			out, err := execute(t, "solve", twoJobsPath, "--out", path, "--encoding", string(enc))
			require.NoError(t, err)
			assert.Contains(t, out, "wrote "+path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, enc, codec.Sniff(data))

			var e schedule.Export
			require.NoError(t, codec.Unmarshal(enc, data, &e))
			assert.Equal(t, "two-jobs", e.Instance)
			assert.Equal(t, int64(6), e.Makespan)
			assert.True(t, e.Complete)
		})
	}
}

func TestSolveInfeasible(t *testing.T) {
	out, err := execute(t, "solve", overduePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInfeasible)
	assert.Contains(t, out, "overdue: infeasible")
	assert.Contains(t, out, "cycle:")
}

func TestSolveBudgetWithoutSchedule(t *testing.T) {
	out, err := execute(t, "solve", duplexPath, "--max-iterations", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "within budget")
	assert.Contains(t, out, "duplex: no schedule found")
	assert.Contains(t, out, "stop iterations")
}

func TestSolveCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing_file", []string{"solve", "/nonexistent/shop.yaml"}, ErrCodeNotFound},
		{"bad_policy", []string{"solve", twoJobsPath, "--policy", "widest"}, ErrCodeBadFlag},
		{"bad_rank_factor", []string{"solve", twoJobsPath, "--policy", "static", "--rank-factor", "2"}, ErrCodeBadFlag},
		{"bad_encoding", []string{"solve", twoJobsPath, "--encoding", "xml"}, ErrCodeBadFlag},
		{"line_as_instance", []string{"solve", linePath}, ErrCodeLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeData(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestSolveRankFactorFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want *float64
	}{
		{"explicit_zero", []string{"--rank-factor", "0"}, solver.Factor(0)},
		{"explicit", []string{"--rank-factor", "0.7"}, solver.Factor(0.7)},
		{"unset", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := filepath.Join(t.TempDir(), "runs.db")
			args := append([]string{"--format", "json", "solve", twoJobsPath, "--policy", "static", "--db", db}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)

			var result SolveResult
			decodeData(t, out, &result)
			require.NotEmpty(t, result.SessionID)
			assert.Equal(t, int64(6), result.Best.Makespan)

			st, err := store.Open(db)
			require.NoError(t, err)
			defer st.Close()
			r, err := st.LoadResumable(context.Background(), result.SessionID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Policy.RankFactor)
		})
	}
}
