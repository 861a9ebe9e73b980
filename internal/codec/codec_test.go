package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/schedule"
	"github.com/roach88/shopsched/internal/solver"
	"github.com/roach88/shopsched/internal/testutil"
)

func roundTrip[T any](t *testing.T, enc Encoding, v T) T {
	t.Helper()
	data, err := Marshal(enc, v)
	require.NoError(t, err)
	assert.Equal(t, enc, Sniff(data))

	var out T
	require.NoError(t, Unmarshal(enc, data, &out))
	return out
}

func TestParseEncoding(t *testing.T) {
	for _, s := range []string{"json", "JSON", " cbor "} {
		_, err := ParseEncoding(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseEncoding("xml")
	assert.Error(t, err)
}

func TestSolutionRoundTrip(t *testing.T) {
	inst := testutil.Duplex()
	res, err := solver.Solve(context.Background(), inst, solver.DefaultPolicy(), solver.Budget{})
	require.NoError(t, err)
	best := res.Best()
	require.NotNil(t, best)

	for _, enc := range Encodings {
		t.Run(string(enc), func(t *testing.T) {
			e := roundTrip(t, enc, best.Export())
			assert.Equal(t, best.Export(), e)

			g, err := graph.Build(inst)
			require.NoError(t, err)
			ps, err := schedule.Import(inst, g, e)
			require.NoError(t, err)
			assert.Equal(t, best.Makespan(), ps.Makespan())
			assert.Empty(t, ps.Validate())
		})
	}
}

func TestStateRoundTripResumes(t *testing.T) {
	inst := testutil.Duplex()
	policy := solver.Policy{Kind: solver.PolicyRandom, Seed: 3}

	full, err := solver.Solve(context.Background(), inst, policy, solver.Budget{})
	require.NoError(t, err)

	for _, enc := range Encodings {
		t.Run(string(enc), func(t *testing.T) {
			g, err := graph.Build(inst)
			require.NoError(t, err)
			s, err := solver.New(inst, g, solver.WithPolicy(policy))
			require.NoError(t, err)
			_, err = s.Run(context.Background(), solver.Budget{MaxIterations: 5})
			require.NoError(t, err)

			st, err := s.State()
			require.NoError(t, err)
			back := roundTrip(t, enc, st)
			assert.Equal(t, st.Frontier, back.Frontier)
			assert.Equal(t, st.RandState, back.RandState)

			g2, err := graph.Build(inst)
			require.NoError(t, err)
			resumed, err := solver.Resume(inst, g2, back)
			require.NoError(t, err)
			got, err := resumed.Run(context.Background(), solver.Budget{})
			require.NoError(t, err)
			assert.Equal(t, full.Diagnostics.UpperBound, got.Diagnostics.UpperBound)
			assert.Equal(t, full.Diagnostics.Iterations, got.Diagnostics.Iterations)
		})
	}
}

func TestBoundsRoundTrip(t *testing.T) {
	p, err := modular.New(testutil.Line())
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	for _, enc := range Encodings {
		back := roundTrip(t, enc, res)
		assert.Equal(t, res, back, string(enc))

		in, err := back.Input(1)
		require.NoError(t, err)
		want, err := res.Input(1)
		require.NoError(t, err)
		assert.True(t, want.Equal(in))
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	p, err := modular.New(testutil.Line())
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	a, err := Marshal(CBOR, res)
	require.NoError(t, err)
	b, err := Marshal(CBOR, res)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	j, err := Marshal(JSON, res)
	require.NoError(t, err)
	assert.Less(t, len(a), len(j))
}

func TestUnmarshalRejectsUnknownJSONFields(t *testing.T) {
	var e schedule.Export
	err := Unmarshal(JSON, []byte(`{"instance":"x","colour":"red"}`), &e)
	assert.Error(t, err)
}

func TestUnknownEncoding(t *testing.T) {
	_, err := Marshal("xml", 1)
	assert.Error(t, err)
	assert.Error(t, Unmarshal("xml", nil, new(int)))
}
