package optimizer

import (
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/simulator"
)

var ErrInvalidPolicy = errors.New("invalid optimizer policy")

type State int

const (
	SEARCHING State = iota
	CONVERGED
	BEST_EFFORT
)

func (s State) String() string {
	switch s {
	case SEARCHING:
		return "searching"
	case CONVERGED:
		return "converged"
	case BEST_EFFORT:
		return "best_effort"
	}
	return "unknown"
}

// Policy bounds the projected SoC band.
type Policy struct {
	SafetyMargin      float64
	RequireRecharge   bool
	RechargeTarget    float64
	OverchargeCeiling float64
	MaxIterations     int
	AbsoluteMaxLimit  float64
	SnapThreshold     float64
}

func DefaultPolicy() Policy {
	return Policy{
		SafetyMargin:      5,
		RequireRecharge:   false,
		RechargeTarget:    85,
		OverchargeCeiling: 95,
		MaxIterations:     10,
		AbsoluteMaxLimit:  2000,
		SnapThreshold:     2,
	}
}

func (p Policy) Validate() error {
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive", ErrInvalidPolicy)
	}
	if p.AbsoluteMaxLimit <= 0 {
		return fmt.Errorf("%w: absolute max limit must be positive", ErrInvalidPolicy)
	}
	if p.SnapThreshold < 0 || p.SafetyMargin < 0 {
		return fmt.Errorf("%w: negative threshold", ErrInvalidPolicy)
	}
	if p.OverchargeCeiling <= 0 || p.OverchargeCeiling > 100 {
		return fmt.Errorf("%w: overcharge ceiling out of range", ErrInvalidPolicy)
	}
	return nil
}

// Outcome of one optimization run.
type Outcome struct {
	Limit      float64
	State      State
	Iterations int
	LowerBound float64
	UpperBound float64
	Trajectory simulator.Result
}

// Optimize bisects the discharge power limit until the projected SoC stays inside the policy band.
// The run always stops after MaxIterations, returning the last candidate as a best effort limit.
func Optimize(h forecast.Horizon, startSoC float64, b simulator.Battery, p Policy) (Outcome, error) {
	if err := b.Validate(); err != nil {
		return Outcome{}, err
	}
	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}
	if len(h) == 0 {
		return Outcome{}, forecast.ErrEmptyHorizon
	}

	lower, upper := 0.0, p.AbsoluteMaxLimit
	candidate := (lower + upper) / 2
	state := SEARCHING
	iterations := 0

	for iterations < p.MaxIterations {
		iterations++
		res := simulator.Simulate(h, startSoC, candidate, b)
		if res.SoCMin < b.MinSoC+p.SafetyMargin || (p.RequireRecharge && res.SoCMax < p.RechargeTarget) {
			upper = candidate
			candidate = (candidate + lower) / 2
		} else if res.SoCMax > p.OverchargeCeiling {
			lower = candidate
			candidate = (upper + candidate) / 2
		} else {
			state = CONVERGED
			break
		}
	}
	if state == SEARCHING {
		state = BEST_EFFORT
	}

	limit := p.snap(candidate)
	return Outcome{
		Limit:      limit,
		State:      state,
		Iterations: iterations,
		LowerBound: lower,
		UpperBound: upper,
		Trajectory: simulator.Simulate(h, startSoC, limit, b),
	}, nil
}

func (p Policy) snap(limit float64) float64 {
	if limit < p.SnapThreshold {
		return 0
	}
	if limit > p.AbsoluteMaxLimit-p.SnapThreshold {
		return p.AbsoluteMaxLimit
	}
	return limit
}
