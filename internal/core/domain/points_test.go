package domain

import (
	"errors"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizerParametersFrom(t *testing.T) {
	values := PointValues{
		gx_modbus.POINT_GRID_SETPOINT:       50,
		gx_modbus.POINT_MAX_DISCHARGE_POWER: 3000,
		gx_modbus.POINT_MINIMUM_SOC_LIMIT:   20,
		gx_modbus.POINT_BATTERY_SOC:         64.5,
		gx_modbus.POINT_BATTERY_SOH:         98,
		gx_modbus.POINT_BATTERY_CAPACITY:    280,
	}

	params, err := OptimizerParametersFrom(values)
	require.NoError(t, err)
	assert.Equal(t, 64.5, params.SoC)
	assert.Equal(t, 3000.0, params.CurrentLimitW)
	assert.Equal(t, 98.0, params.Battery.StateOfHealth)
	assert.Equal(t, 280.0, params.Battery.CapacityAh)
	assert.Equal(t, 20.0, params.Battery.MinSoC)
	assert.Equal(t, 50.0, params.Battery.GridSetpointW)

	delete(values, gx_modbus.POINT_BATTERY_SOC)
	_, err = OptimizerParametersFrom(values)
	assert.True(t, errors.Is(err, ErrParameterUnavailable))
	assert.Contains(t, err.Error(), gx_modbus.POINT_BATTERY_SOC)
}

func TestMeterPointsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, point := range MeterPoints() {
		assert.False(t, seen[point], point)
		seen[point] = true
	}
	assert.Len(t, seen, 5)

	values := PointValues{gx_modbus.POINT_PV_PRODUCED_ENERGY: 12.5}
	v, ok := values.Read(gx_modbus.POINT_PV_PRODUCED_ENERGY)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	_, ok = values.Read(gx_modbus.POINT_GRID_IMPORTED_ENERGY)
	assert.False(t, ok)
}
