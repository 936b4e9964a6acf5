package gx_modbus

import (
	"fmt"
	"sync"
)

// TestPointReader is an in-memory GX device used by tests and the dev mode.
type TestPointReader struct {
	mu     sync.Mutex
	points []Point
	values map[string]float64
	writes []PointWrite
	Fail   error
}

type PointWrite struct {
	Name  string
	Value float64
}

func CreateTestPointReader(values map[string]float64) *TestPointReader {
	v := map[string]float64{
		POINT_BATTERY_DISCHARGED_ENERGY: 120.4,
		POINT_BATTERY_CHARGED_ENERGY:    131.8,
		POINT_GRID_IMPORTED_ENERGY:      2210.55,
		POINT_GRID_EXPORTED_ENERGY:      870.12,
		POINT_PV_PRODUCED_ENERGY:        5410.9,
		POINT_BATTERY_SOC:               64.5,
		POINT_BATTERY_SOH:               98,
		POINT_BATTERY_CAPACITY:          200,
		POINT_MINIMUM_SOC_LIMIT:         10,
		POINT_GRID_SETPOINT:             50,
		POINT_MAX_DISCHARGE_POWER:       1000,
	}
	for k, val := range values {
		v[k] = val
	}
	return &TestPointReader{
		points: DefaultPoints(),
		values: v,
	}
}

func (reader *TestPointReader) Open() error {
	return nil
}

func (reader *TestPointReader) Close() error {
	return nil
}

func (reader *TestPointReader) Points() []Point {
	return reader.points
}

func (reader *TestPointReader) ReadPoint(name string) (float64, error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	if reader.Fail != nil {
		return 0, reader.Fail
	}
	v, ok := reader.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPoint, name)
	}
	return v, nil
}

func (reader *TestPointReader) WritePoint(name string, value float64) error {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	if reader.Fail != nil {
		return reader.Fail
	}
	for _, p := range reader.points {
		if p.Name != name {
			continue
		}
		if !p.Writable {
			return fmt.Errorf("%w: %s", ErrPointNotWritable, name)
		}
		if _, err := p.Encode(value); err != nil {
			return err
		}
		reader.values[name] = value
		reader.writes = append(reader.writes, PointWrite{Name: name, Value: value})
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownPoint, name)
}

// Set changes a value as if the device had updated it.
func (reader *TestPointReader) Set(name string, value float64) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.values[name] = value
}

// Drop makes a point unreadable until it is Set again.
func (reader *TestPointReader) Drop(name string) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	delete(reader.values, name)
}

func (reader *TestPointReader) Writes() []PointWrite {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	out := make([]PointWrite, len(reader.writes))
	copy(out, reader.writes)
	return out
}

var _ PointReader = (*TestPointReader)(nil)
