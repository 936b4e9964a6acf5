package simulator

import (
	"errors"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHorizon(produced, consumed []float64) forecast.Horizon {
	start := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	h := make(forecast.Horizon, len(produced))
	for i := range produced {
		h[i] = forecast.Slot{
			Index:     i,
			PeriodEnd: start.Add(time.Duration(i) * 30 * time.Minute),
			Produced:  produced[i],
			Consumed:  consumed[i],
		}
	}
	return h
}

func testBattery() Battery {
	return Battery{StateOfHealth: 100, CapacityAh: 200, MinSoC: 10}
}

func TestValidate(t *testing.T) {

	assert.NoError(t, testBattery().Validate())
	assert.True(t, errors.Is(Battery{StateOfHealth: 0, CapacityAh: 200}.Validate(), ErrInvalidBattery))
	assert.True(t, errors.Is(Battery{StateOfHealth: 100, CapacityAh: -1}.Validate(), ErrInvalidBattery))
	assert.True(t, errors.Is(Battery{StateOfHealth: 100, CapacityAh: 1, MinSoC: 100}.Validate(), ErrInvalidBattery))
}

func TestSimulateKnownTrajectory(t *testing.T) {

	h := testHorizon([]float64{0, 0, 5, 5}, []float64{2, 2, 2, 2})
	res := Simulate(h, 50, 1000, testBattery())

	require.Len(t, res.Periods, 4)
	// 0.5 kWh per slot at 1000 W
	assert.InDelta(t, 0.5, res.Periods[0].Released, 1e-9)
	assert.InDelta(t, 1.5, res.Periods[0].Imported, 1e-9)
	assert.InDelta(t, 50-0.5/0.048/2, res.Periods[0].SoCEnd, 1e-9)
	assert.InDelta(t, res.Periods[0].SoCEnd, res.Periods[1].SoCStart, 1e-12)
	assert.InDelta(t, 3.0, res.Periods[2].Retained, 1e-9)
	assert.InDelta(t, 0.0, res.Periods[2].Exported, 1e-9)
	assert.InDelta(t, 2.0, res.Periods[2].SelfConsumed, 1e-9)
	assert.InDelta(t, 10.0, res.TotalProduced, 1e-9)
	assert.InDelta(t, 8.0, res.TotalConsumed, 1e-9)
	assert.InDelta(t, res.Periods[1].SoCEnd, res.SoCMin, 1e-12)
	assert.InDelta(t, res.Periods[3].SoCEnd, res.SoCMax, 1e-12)
	assert.Equal(t, res.Periods[3].SoCEnd, res.EndSoC())
}

func TestDischargeStopsAtFloor(t *testing.T) {

	h := testHorizon(make([]float64, 10), []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5})
	res := Simulate(h, 20, 2000, testBattery())

	assert.InDelta(t, 10.0, res.SoCMin, 1e-9)
	for _, p := range res.Periods[2:] {
		assert.InDelta(t, 0.0, p.Released, 1e-9)
		assert.InDelta(t, 5.0, p.Imported, 1e-9)
	}
}

func TestChargeStopsAtFull(t *testing.T) {

	h := testHorizon([]float64{20, 20, 20}, []float64{0, 0, 0})
	res := Simulate(h, 90, 0, testBattery())

	assert.InDelta(t, 100.0, res.SoCMax, 1e-9)
	assert.InDelta(t, 20.0, res.Periods[2].Exported, 1e-9)
}

func TestGridSetpointReducesDischarge(t *testing.T) {

	b := testBattery()
	b.GridSetpointW = 3000
	h := testHorizon([]float64{0}, []float64{2})
	res := Simulate(h, 50, 2000, b)

	// 1.5 kWh of the shortfall is left to the grid
	assert.InDelta(t, 0.5, res.Periods[0].Released, 1e-9)
	assert.InDelta(t, 1.5, res.Periods[0].Imported, 1e-9)
}

func TestBelowFloorReleasesNothing(t *testing.T) {

	h := testHorizon([]float64{0, 0}, []float64{1, 1})
	res := Simulate(h, 5, 2000, testBattery())

	for _, p := range res.Periods {
		assert.Equal(t, 0.0, p.Released)
		assert.InDelta(t, 5.0, p.SoCEnd, 1e-12)
	}
}

func TestSimulatorInvariants(t *testing.T) {

	produced := make([]float64, 96)
	consumed := make([]float64, 96)
	for i := range produced {
		if i >= 14 && i < 38 {
			produced[i] = float64(i%7) * 0.9
		}
		consumed[i] = 0.2 + float64(i%5)*0.35
	}
	h := testHorizon(produced, consumed)

	for _, start := range []float64{0, 10, 35, 80, 100} {
		for limit := 0.0; limit <= 2000; limit += 125 {
			res := Simulate(h, start, limit, testBattery())
			for _, p := range res.Periods {
				assert.GreaterOrEqual(t, p.Released, 0.0)
				assert.GreaterOrEqual(t, p.Retained, 0.0)
				assert.GreaterOrEqual(t, p.Imported, 0.0)
				assert.GreaterOrEqual(t, p.Exported, 0.0)
				assert.LessOrEqual(t, p.Released, limit/LIMIT_SCALE+1e-12)
				assert.GreaterOrEqual(t, p.SoCEnd, -1e-9)
				assert.LessOrEqual(t, p.SoCEnd, 100+1e-9)
				// energy balance of the slot
				assert.InDelta(t, p.Consumed+p.Retained+p.Exported, p.Produced+p.Released+p.Imported, 1e-9)
			}
		}
	}
}

func TestSimulateIsIdempotent(t *testing.T) {

	h := testHorizon([]float64{0, 1, 3, 4, 0.5, 0}, []float64{1, 1, 1, 2, 2, 1})
	a := Simulate(h, 42, 730, testBattery())
	b := Simulate(h, 42, 730, testBattery())
	assert.Equal(t, a, b)
}

func TestEmptyHorizon(t *testing.T) {

	res := Simulate(nil, 60, 1000, testBattery())
	assert.Empty(t, res.Periods)
	assert.Equal(t, 60.0, res.SoCMin)
	assert.Equal(t, 60.0, res.SoCMax)
	assert.Equal(t, 60.0, res.EndSoC())
}
