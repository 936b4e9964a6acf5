package gx_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type PointReader interface {
	Open() error
	Close() error
	Points() []Point
	ReadPoint(name string) (float64, error)
	WritePoint(name string, value float64) error
}

// GXModbusReader reads and writes points of a GX device over Modbus TCP. Not safe for concurrent use.
type GXModbusReader struct {
	ModbusClient
	points map[string]Point
	order  []string
}

func CreateGXModbusReader(ip string, port uint, points []Point, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (PointReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", ip, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := client.SetEncoding(modbus.BIG_ENDIAN, modbus.HIGH_WORD_FIRST); err != nil {
		return nil, err
	}
	// instrumentation
	var inst []ModbusInstrument
	if logger != nil {
		logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "gx")))
		if logInst != nil {
			inst = append(inst, *logInst)
		}
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	reader := &GXModbusReader{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		points: map[string]Point{},
	}
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := reader.points[p.Name]; !ok {
			reader.order = append(reader.order, p.Name)
		}
		reader.points[p.Name] = p
	}
	return reader, nil
}

func (reader *GXModbusReader) Open() error {
	return reader.client.Open()
}

func (reader *GXModbusReader) Close() error {
	return reader.client.Close()
}

func (reader *GXModbusReader) Points() []Point {
	var out []Point
	for _, name := range reader.order {
		out = append(out, reader.points[name])
	}
	return out
}

func (reader *GXModbusReader) ReadPoint(name string) (float64, error) {
	p, ok := reader.points[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPoint, name)
	}
	if err := reader.setUnitId(p.UnitId); err != nil {
		return 0, err
	}
	var raw uint32
	if p.is32() {
		v, err := reader.readUint32(p.Address, modbus.HOLDING_REGISTER)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", p, err)
		}
		raw = v
	} else {
		v, err := reader.readRegister(p.Address, modbus.HOLDING_REGISTER)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", p, err)
		}
		raw = uint32(v)
	}
	return p.Decode(raw), nil
}

func (reader *GXModbusReader) WritePoint(name string, value float64) error {
	p, ok := reader.points[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPoint, name)
	}
	if !p.Writable {
		return fmt.Errorf("%w: %s", ErrPointNotWritable, name)
	}
	raw, err := p.Encode(value)
	if err != nil {
		return err
	}
	if err := reader.setUnitId(p.UnitId); err != nil {
		return err
	}
	if p.is32() {
		err = reader.writeUint32(p.Address, raw)
	} else {
		err = reader.writeRegister(p.Address, uint16(raw))
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// ensure interface compliance
var _ PointReader = (*GXModbusReader)(nil)
