package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestOutputFormatter_JSON(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}

		require.NoError(t, f.Success(map[string]int{"makespan": 6}))
		resp := decodeResponse(t, buf)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, map[string]any{"makespan": float64(6)}, resp.Data)
		assert.Nil(t, resp.Error)
		assert.Contains(t, buf.String(), "\n  \"status\": \"ok\"")
	})

	t.Run("error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}

		require.NoError(t, f.Error(ErrCodeLoadFailed, "failed to load instance", nil))
		resp := decodeResponse(t, buf)
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeLoadFailed, resp.Error.Code)
		assert.Equal(t, "failed to load instance", resp.Error.Message)
		assert.Nil(t, resp.Error.Details)
	})

	t.Run("error with details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}

		require.NoError(t, f.Error(ErrCodeBadFlag, "invalid --policy", "unknown policy \"widest\""))
		resp := decodeResponse(t, buf)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "unknown policy \"widest\"", resp.Error.Details)
	})
}

type stringerResult struct{ makespan int }

func (r stringerResult) String() string { return fmt.Sprintf("makespan %d", r.makespan) }

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		write   func(f *OutputFormatter) error
		want    string
	}{
		{
			name:  "plain success",
			write: func(f *OutputFormatter) error { return f.Success("two-jobs: makespan 6 (optimal)") },
			want:  "two-jobs: makespan 6 (optimal)\n",
		},
		{
			name:  "stringer success",
			write: func(f *OutputFormatter) error { return f.Success(stringerResult{makespan: 6}) },
			want:  "makespan 6\n",
		},
		{
			name:  "error hides details",
			write: func(f *OutputFormatter) error { return f.Error(ErrCodeNotFound, "session not found", "abc") },
			want:  "Error [E005]: session not found\n",
		},
		{
			name:    "verbose error shows details",
			verbose: true,
			write:   func(f *OutputFormatter) error { return f.Error(ErrCodeNotFound, "session not found", "abc") },
			want:    "Error [E005]: session not found\nDetails: abc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, tt.write(f))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		f.VerboseLog("iteration %d", 3)
		assert.Empty(t, buf.String())
	})

	t.Run("falls back to writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
		f.VerboseLog("loaded %s", "shop.cue")
		assert.Equal(t, "loaded shop.cue\n", buf.String())
	})

	t.Run("prefers err writer", func(t *testing.T) {
		out := &bytes.Buffer{}
		errOut := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
		f.VerboseLog("iteration %d", 3)
		assert.Empty(t, out.String())
		assert.Equal(t, "iteration 3\n", errOut.String())
	})
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	cause := errors.New("disk full")

	err := f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write schedule", cause)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "[E007] failed to write schedule")

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeWriteFailed, resp.Error.Code)
	assert.Equal(t, "disk full", resp.Error.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "infeasible")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag")))

	wrapped := WrapExitError(ExitFailure, "search failed", errors.New("boom"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "search failed: boom", wrapped.Error())
	assert.Equal(t, "boom", errors.Unwrap(wrapped).Error())

	outer := fmt.Errorf("command: %w", NewExitError(ExitFailure, "not converged"))
	assert.Equal(t, ExitFailure, GetExitCode(outer))
}
