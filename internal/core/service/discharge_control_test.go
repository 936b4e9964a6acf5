package service

import (
	"errors"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/simulator"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var battery = simulator.Battery{StateOfHealth: 100, CapacityAh: 200, MinSoC: 10}

func newLogic() *DefaultDischargeControlLogic {
	b := forecast.NewBuilder(forecast.BuilderOptions{Location: time.UTC, Mode: forecast.MODE_ROLLING})
	return NewDischargeControlLogic(b, optimizer.DefaultPolicy(), DEFAULT_WRITE_DEADBAND, nil)
}

func fixture(t *testing.T) ([]forecast.Record, *consumption.Table) {
	start := time.Date(2024, 5, 1, 0, 30, 0, 0, time.UTC)
	pv := []float64{0, 0, 10, 10}
	table := consumption.NewTable()
	var records []forecast.Record
	for i, v := range pv {
		end := start.Add(time.Duration(i) * 30 * time.Minute)
		records = append(records, forecast.Record{
			PeriodEnd:             end.Format("2006-01-02T15:04:05.0000000Z"),
			EstimatedProductionKW: v,
			Period:                "PT30M",
		})
		require.NoError(t, table.Set(consumption.SlotKey(end), 2))
	}
	return records, table
}

func TestRunOptimizesTheBuiltHorizon(t *testing.T) {

	records, table := fixture(t)
	logic := newLogic()

	out, err := logic.Run(records, table, 50, battery, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, optimizer.CONVERGED, out.State)
	assert.Equal(t, 1500.0, out.Limit)
	require.Len(t, out.Trajectory.Periods, 4)
	assert.InDelta(t, 5.0, out.Trajectory.Periods[2].Produced, 1e-9)
	assert.InDelta(t, 8.0, out.Trajectory.TotalConsumed, 1e-9)
}

func TestRunFailsOnMissingConsumption(t *testing.T) {

	records, _ := fixture(t)
	table, err := consumption.TableFromMap(map[string]float64{"00:30": 1})
	require.NoError(t, err)

	_, err = newLogic().Run(records, table, 50, battery, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, forecast.ErrMissingConsumption))
}

func TestRunFailsWhenForecastIsInThePast(t *testing.T) {

	records, table := fixture(t)
	_, err := newLogic().Run(records, table, 50, battery, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, forecast.ErrEmptyHorizon))
}

func TestRunRejectsInvalidBattery(t *testing.T) {

	records, table := fixture(t)
	_, err := newLogic().Run(records, table, 50, simulator.Battery{StateOfHealth: 0, CapacityAh: 200},
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, simulator.ErrInvalidBattery))
}

func TestShouldWrite(t *testing.T) {

	logic := newLogic()
	assert.False(t, logic.ShouldWrite(false, 1500, 0), "not authorized")
	assert.False(t, logic.ShouldWrite(true, 1500, 1500))
	assert.False(t, logic.ShouldWrite(true, 1502, 1500), "inside deadband")
	assert.True(t, logic.ShouldWrite(true, 1503, 1500))
	assert.True(t, logic.ShouldWrite(true, 0, 2000))
}

func TestSetPolicy(t *testing.T) {

	logic := newLogic()
	p := logic.Policy()
	p.SafetyMargin = 20
	require.NoError(t, logic.SetPolicy(p))
	assert.Equal(t, 20.0, logic.Policy().SafetyMargin)

	p.MaxIterations = 0
	assert.True(t, errors.Is(logic.SetPolicy(p), optimizer.ErrInvalidPolicy))
	assert.Equal(t, 10, logic.Policy().MaxIterations, "previous policy is kept")
}
