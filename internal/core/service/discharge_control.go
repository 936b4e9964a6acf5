package service

import (
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"github.com/berfenger/solcast2mqtt/internal/core/simulator"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_WRITE_DEADBAND = 2
)

type DefaultDischargeControlLogic struct {
	Builder  *forecast.Builder
	Deadband float64
	Logger   *zap.Logger
	policy   optimizer.Policy
}

func NewDischargeControlLogic(builder *forecast.Builder, policy optimizer.Policy, deadband float64,
	logger *zap.Logger) *DefaultDischargeControlLogic {
	if deadband < 0 {
		deadband = DEFAULT_WRITE_DEADBAND
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultDischargeControlLogic{
		Builder:  builder,
		Deadband: deadband,
		Logger:   logger,
		policy:   policy,
	}
}

// Run builds the horizon from the last forecast and the consumption table, then searches
// the discharge limit for the current battery state.
func (c *DefaultDischargeControlLogic) Run(records []forecast.Record, table *consumption.Table, startSoC float64,
	battery simulator.Battery, now time.Time) (optimizer.Outcome, error) {

	h, err := c.Builder.Build(records, table, now)
	if err != nil {
		return optimizer.Outcome{}, err
	}
	outcome, err := optimizer.Optimize(h, startSoC, battery, c.policy)
	if err != nil {
		return optimizer.Outcome{}, err
	}
	c.Logger.Sugar().Debugf("optimizer: %s after %d iterations, limit %.0f W, soc [%.2f, %.2f] over %d periods",
		outcome.State, outcome.Iterations, outcome.Limit,
		outcome.Trajectory.SoCMin, outcome.Trajectory.SoCMax, len(outcome.Trajectory.Periods))
	return outcome, nil
}

// ShouldWrite reports whether a new limit is worth writing to the device.
func (c *DefaultDischargeControlLogic) ShouldWrite(authorized bool, limit float64, current float64) bool {
	if !authorized {
		return false
	}
	return math.Abs(limit-current) > c.Deadband
}

// ResetDay clears the slots retained across builds.
func (c *DefaultDischargeControlLogic) ResetDay() {
	c.Builder.Reset()
}

func (c *DefaultDischargeControlLogic) Policy() optimizer.Policy {
	return c.policy
}

// SetPolicy replaces the policy used by the next runs. An invalid policy is rejected and the
// previous one is kept.
func (c *DefaultDischargeControlLogic) SetPolicy(policy optimizer.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	c.policy = policy
	return nil
}

// ensure interface compliance
var _ port.DischargeControlLogic = (*DefaultDischargeControlLogic)(nil)
