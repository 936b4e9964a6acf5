package domain

import (
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/simulator"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
)

var ErrParameterUnavailable = errors.New("optimizer parameter unavailable")

// PointValues holds the last read value of each device point. A point that could not be read is absent.
type PointValues map[string]float64

func (v PointValues) Read(point string) (float64, bool) {
	value, ok := v[point]
	return value, ok
}

var _ consumption.Reader = PointValues(nil)

// MeterPoints maps every consumption meter to the device point it is read from.
func MeterPoints() map[consumption.MeterKind]string {
	return map[consumption.MeterKind]string{
		consumption.METER_RELEASED: gx_modbus.POINT_BATTERY_DISCHARGED_ENERGY,
		consumption.METER_RETAINED: gx_modbus.POINT_BATTERY_CHARGED_ENERGY,
		consumption.METER_IMPORTED: gx_modbus.POINT_GRID_IMPORTED_ENERGY,
		consumption.METER_EXPORTED: gx_modbus.POINT_GRID_EXPORTED_ENERGY,
		consumption.METER_PRODUCED: gx_modbus.POINT_PV_PRODUCED_ENERGY,
	}
}

// ParameterPoints are the points read before every optimizer run.
func ParameterPoints() []string {
	return []string{
		gx_modbus.POINT_GRID_SETPOINT,
		gx_modbus.POINT_MAX_DISCHARGE_POWER,
		gx_modbus.POINT_MINIMUM_SOC_LIMIT,
		gx_modbus.POINT_BATTERY_SOC,
		gx_modbus.POINT_BATTERY_SOH,
		gx_modbus.POINT_BATTERY_CAPACITY,
	}
}

// OptimizerParameters is the battery state an optimizer run starts from.
type OptimizerParameters struct {
	Battery       simulator.Battery
	SoC           float64
	CurrentLimitW float64
}

// OptimizerParametersFrom fails when any parameter point is missing.
func OptimizerParametersFrom(values PointValues) (OptimizerParameters, error) {
	for _, name := range ParameterPoints() {
		if _, ok := values[name]; !ok {
			return OptimizerParameters{}, fmt.Errorf("%w: %s", ErrParameterUnavailable, name)
		}
	}
	return OptimizerParameters{
		Battery: simulator.Battery{
			StateOfHealth: values[gx_modbus.POINT_BATTERY_SOH],
			CapacityAh:    values[gx_modbus.POINT_BATTERY_CAPACITY],
			MinSoC:        values[gx_modbus.POINT_MINIMUM_SOC_LIMIT],
			GridSetpointW: values[gx_modbus.POINT_GRID_SETPOINT],
		},
		SoC:           values[gx_modbus.POINT_BATTERY_SOC],
		CurrentLimitW: values[gx_modbus.POINT_MAX_DISCHARGE_POWER],
	}, nil
}
