package events

import (
	. "github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"math"
	"time"
)

const (
	FIXED_POINT_SCALE = 100
)

func OutcomeToUpdateEvents(out optimizer.Outcome) []any {
	var events []any

	// Computed limit
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_MAX_DISCHARGE_POWER,
		},
		Value:    out.Limit,
		Decimals: 0,
	})
	// Totals over the horizon
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_FORECAST_PRODUCTION,
		},
		Value:    out.Trajectory.TotalProduced,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_FORECAST_CONSUMPTION,
		},
		Value:    out.Trajectory.TotalConsumed,
		Decimals: 2,
	})
	// Projected SoC band
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PROJECTED_SOC_MIN,
		},
		Value:    out.Trajectory.SoCMin,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PROJECTED_SOC_MAX,
		},
		Value:    out.Trajectory.SoCMax,
		Decimals: 2,
	})
	// Search diagnostics
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OPTIMIZER_STATE,
		},
		Value: out.State.String(),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OPTIMIZER_ITERATIONS,
		},
		Value:    float64(out.Iterations),
		Decimals: 0,
	})

	return events
}

func ConsumptionUpdateEvents(lastCommitted, dailyTotal float64) []any {
	var events []any
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_LAST_CONSUMPTION,
		},
		Value:    lastCommitted,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_DAILY_CONSUMPTION,
		},
		Value:    dailyTotal,
		Decimals: 2,
	})
	return events
}

func AuthorizeWriteSwitchUpdateEvent(enabled bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_AUTHORIZE_WRITE,
		},
		Value: enabled,
	}
}

func SafetyMarginInputNumberUpdateEvent(value float64) any {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_SAFETY_MARGIN,
		},
		Value:    value,
		Decimals: 0,
	}
}

// EncodeTrajectory rounds a run to its published fixed point form. Values are rounded here and nowhere else.
func EncodeTrajectory(out optimizer.Outcome, at time.Time) TrajectoryPayload {
	periods := out.Trajectory.Periods
	p := TrajectoryPayload{
		Timestamp:     at.Unix(),
		Limit:         int64(math.Round(out.Limit)),
		State:         out.State.String(),
		PeriodEnd:     make([]int64, len(periods)),
		BatterySoC:    make([]int64, len(periods)),
		Produced:      make([]int64, len(periods)),
		Consumed:      make([]int64, len(periods)),
		Released:      make([]int64, len(periods)),
		Retained:      make([]int64, len(periods)),
		Imported:      make([]int64, len(periods)),
		Exported:      make([]int64, len(periods)),
		SelfConsumed:  make([]int64, len(periods)),
		TotalProduced: fixedPoint(out.Trajectory.TotalProduced),
		TotalConsumed: fixedPoint(out.Trajectory.TotalConsumed),
	}
	for i, period := range periods {
		p.PeriodEnd[i] = period.PeriodEnd.Unix()
		p.BatterySoC[i] = fixedPoint(period.SoCEnd)
		p.Produced[i] = fixedPoint(period.Produced)
		p.Consumed[i] = fixedPoint(period.Consumed)
		p.Released[i] = fixedPoint(period.Released)
		p.Retained[i] = fixedPoint(period.Retained)
		p.Imported[i] = fixedPoint(period.Imported)
		p.Exported[i] = fixedPoint(period.Exported)
		p.SelfConsumed[i] = fixedPoint(period.SelfConsumed)
	}
	return p
}

func TrajectoryUpdate(out optimizer.Outcome, at time.Time) TrajectoryUpdateEvent {
	return TrajectoryUpdateEvent{Payload: EncodeTrajectory(out, at)}
}

func fixedPoint(v float64) int64 {
	return int64(math.Round(v * FIXED_POINT_SCALE))
}
