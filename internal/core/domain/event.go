package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

// TrajectoryPayload is the published form of an optimizer run. Energies are kWh and SoC is %,
// all as fixed point integers scaled by 100. Period ends are unix seconds.
type TrajectoryPayload struct {
	Timestamp     int64   `json:"timestamp"`
	Limit         int64   `json:"limit"`
	State         string  `json:"state"`
	PeriodEnd     []int64 `json:"period_end"`
	BatterySoC    []int64 `json:"battery_soc"`
	Produced      []int64 `json:"produced"`
	Consumed      []int64 `json:"consumed"`
	Released      []int64 `json:"released"`
	Retained      []int64 `json:"retained"`
	Imported      []int64 `json:"imported"`
	Exported      []int64 `json:"exported"`
	SelfConsumed  []int64 `json:"self_consumed"`
	TotalProduced int64   `json:"total_produced"`
	TotalConsumed int64   `json:"total_consumed"`
}

// TrajectoryUpdateEvent is published on the event stream after every optimizer run.
type TrajectoryUpdateEvent struct {
	Payload TrajectoryPayload
}
