package solver

import (
	"fmt"
	"strings"

	"github.com/roach88/shopsched/internal/ir"
)

// PolicyKind selects the exploration order of the frontier.
type PolicyKind string

const (
	// PolicyBreadth expands in insertion order (FIFO over depth levels).
	PolicyBreadth PolicyKind = "breadth"
	// PolicyDepth expands the most recently created vertex (LIFO).
	PolicyDepth PolicyKind = "depth"
	// PolicyBest expands the lowest lower bound, deeper vertices first on ties.
	PolicyBest PolicyKind = "best"
	// PolicyStaticRank expands the lowest rank with a fixed rank factor.
	PolicyStaticRank PolicyKind = "static"
	// PolicyAdaptiveRank expands the lowest rank, the factor following an
	// AlphaSchedule over the iterations.
	PolicyAdaptiveRank PolicyKind = "adaptive"
	// PolicyRandom expands in a seeded random order.
	PolicyRandom PolicyKind = "random"
)

// PolicyKinds lists every kind in a stable order.
var PolicyKinds = []PolicyKind{
	PolicyBreadth, PolicyDepth, PolicyBest, PolicyStaticRank, PolicyAdaptiveRank, PolicyRandom,
}

// ParsePolicyKind accepts a policy name, case-insensitively.
func ParsePolicyKind(s string) (PolicyKind, error) {
	k := PolicyKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PolicyKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown policy %q (want one of %v)", s, PolicyKinds)
}

// DefaultRankFactor is the rank factor used when a rank policy leaves it
// unset.
const DefaultRankFactor = 0.5

// Factor returns a pointer to f for Policy.RankFactor.
func Factor(f float64) *float64 {
	return &f
}

// Policy configures exploration.
//
// The rank of a vertex is
//
//	alpha*(1 - depth/totalOps) + (1-alpha)*(lowerBound/upperBound)
//
// and is a cost: the lowest rank is expanded first, so a large alpha
// drives the search towards complete schedules and a small one towards
// tight bounds. Without an incumbent the bound term is zero.
type Policy struct {
	Kind PolicyKind `json:"kind"`

	// RankFactor is alpha for PolicyStaticRank, in [0, 1]. Nil means
	// DefaultRankFactor; an explicit 0 ranks by bound only.
	RankFactor *float64 `json:"rank_factor,omitempty"`

	// Ramp is the adaptive schedule in serializable form. Schedule, when
	// set, takes precedence.
	Ramp *LinearRamp `json:"ramp,omitempty"`

	// Schedule overrides Ramp for PolicyAdaptiveRank.
	Schedule AlphaSchedule `json:"-"`

	// Seed drives PolicyRandom.
	Seed uint64 `json:"seed,omitempty"`
}

// DefaultPolicy is best-first.
func DefaultPolicy() Policy {
	return Policy{Kind: PolicyBest}
}

// Validate checks the policy's parameters.
func (p Policy) Validate() error {
	if _, err := ParsePolicyKind(string(p.Kind)); err != nil {
		return err
	}
	if f := p.RankFactor; f != nil && (*f < 0 || *f > 1) {
		return fmt.Errorf("rank factor %v outside [0, 1]", *f)
	}
	if p.Ramp != nil {
		return p.Ramp.validate()
	}
	return nil
}

func (p Policy) ranked() bool {
	return p.Kind == PolicyStaticRank || p.Kind == PolicyAdaptiveRank
}

// alpha returns the rank factor in effect at the given iteration.
func (p Policy) alpha(iteration int) float64 {
	switch p.Kind {
	case PolicyStaticRank:
		if p.RankFactor == nil {
			return DefaultRankFactor
		}
		return *p.RankFactor
	case PolicyAdaptiveRank:
		if p.Schedule != nil {
			return clamp01(p.Schedule.Alpha(iteration))
		}
		if p.Ramp != nil {
			return p.Ramp.Alpha(iteration)
		}
		return DefaultRamp().Alpha(iteration)
	}
	return 0
}

// AlphaSchedule yields the rank factor for an iteration count.
type AlphaSchedule interface {
	Alpha(iteration int) float64
}

// LinearRamp moves alpha linearly from Start to End over Span iterations
// and holds End afterwards.
type LinearRamp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Span  int     `json:"span"`
}

// DefaultRamp favours depth early and bound quality later.
func DefaultRamp() LinearRamp {
	return LinearRamp{Start: 0.9, End: 0.1, Span: 10000}
}

// Alpha implements AlphaSchedule.
func (r LinearRamp) Alpha(iteration int) float64 {
	if r.Span <= 0 || iteration >= r.Span {
		return clamp01(r.End)
	}
	f := float64(iteration) / float64(r.Span)
	return clamp01(r.Start + (r.End-r.Start)*f)
}

func (r LinearRamp) validate() error {
	if r.Start < 0 || r.Start > 1 || r.End < 0 || r.End > 1 {
		return fmt.Errorf("ramp %v..%v outside [0, 1]", r.Start, r.End)
	}
	if r.Span < 0 {
		return fmt.Errorf("ramp span %d is negative", r.Span)
	}
	return nil
}

func clamp01(x float64) float64 {
	return min(1, max(0, x))
}

// rank scores a vertex; lower is expanded first.
func rank(alpha float64, depth, total int, lb, ub int64) float64 {
	var r float64
	if total > 0 {
		r = alpha * (1 - float64(depth)/float64(total))
	}
	if ub != ir.PosInf && ub > 0 {
		r += (1 - alpha) * float64(lb) / float64(ub)
	}
	return r
}
