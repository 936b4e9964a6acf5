package gx_modbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSignedAndScaled(t *testing.T) {

	p := Point{Name: "x", Type: TYPE_INT16, Scale: 1}
	assert.Equal(t, -50.0, p.Decode(uint32(uint16(0xFFCE))))

	p = Point{Name: "x", Type: TYPE_UINT16, Scale: 0.1}
	assert.InDelta(t, 64.5, p.Decode(645), 1e-9)

	p = Point{Name: "x", Type: TYPE_UINT32, Scale: 0.01}
	assert.InDelta(t, 2210.55, p.Decode(221055), 1e-9)

	p = Point{Name: "x", Type: TYPE_INT32, Scale: 1}
	assert.Equal(t, -1.0, p.Decode(0xFFFFFFFF))
}

func TestEncodeRoundsAndChecksRange(t *testing.T) {

	p := Point{Name: "max_discharge_power", Type: TYPE_UINT16, Scale: 10}
	raw, err := p.Encode(1500)
	require.NoError(t, err)
	assert.Equal(t, uint32(150), raw)

	raw, err = p.Encode(1504)
	require.NoError(t, err)
	assert.Equal(t, uint32(150), raw)

	_, err = p.Encode(-10)
	assert.True(t, errors.Is(err, ErrValueOutOfRange))

	p = Point{Name: "grid_setpoint", Type: TYPE_INT16, Scale: 1}
	raw, err = p.Encode(-50)
	require.NoError(t, err)
	assert.Equal(t, -50.0, p.Decode(raw))

	_, err = p.Encode(40000)
	assert.True(t, errors.Is(err, ErrValueOutOfRange))
}

func TestPointValidate(t *testing.T) {

	assert.Error(t, Point{Type: TYPE_UINT16, Scale: 1}.Validate())
	assert.Error(t, Point{Name: "x", Type: "float", Scale: 1}.Validate())
	assert.Error(t, Point{Name: "x", Type: TYPE_UINT16}.Validate())
	for _, p := range DefaultPoints() {
		assert.NoError(t, p.Validate(), p.Name)
	}
}

func TestMergePoints(t *testing.T) {

	base := DefaultPoints()
	merged, err := MergePoints(base, []Point{
		{Name: POINT_BATTERY_SOC, Service: "com.victronenergy.battery", Path: "/Soc", UnitId: 226, Address: 266, Type: TYPE_UINT16, Scale: 0.1},
		{Name: "extra", UnitId: 1, Address: 1, Type: TYPE_UINT16, Scale: 1},
	})
	require.NoError(t, err)
	assert.Len(t, merged, len(base)+1)
	for _, p := range merged {
		if p.Name == POINT_BATTERY_SOC {
			assert.Equal(t, uint8(226), p.UnitId)
		}
	}
	// base is untouched
	for _, p := range base {
		if p.Name == POINT_BATTERY_SOC {
			assert.Equal(t, uint8(225), p.UnitId)
		}
	}

	_, err = MergePoints(base, []Point{{Name: "broken", Type: TYPE_UINT16}})
	assert.Error(t, err)
}

func TestTestPointReader(t *testing.T) {

	reader := CreateTestPointReader(map[string]float64{POINT_BATTERY_SOC: 80})
	require.NoError(t, reader.Open())
	defer reader.Close()

	v, err := reader.ReadPoint(POINT_BATTERY_SOC)
	require.NoError(t, err)
	assert.Equal(t, 80.0, v)

	_, err = reader.ReadPoint("nope")
	assert.True(t, errors.Is(err, ErrUnknownPoint))

	err = reader.WritePoint(POINT_BATTERY_SOC, 10)
	assert.True(t, errors.Is(err, ErrPointNotWritable))

	require.NoError(t, reader.WritePoint(POINT_MAX_DISCHARGE_POWER, 750))
	v, _ = reader.ReadPoint(POINT_MAX_DISCHARGE_POWER)
	assert.Equal(t, 750.0, v)
	assert.Equal(t, []PointWrite{{Name: POINT_MAX_DISCHARGE_POWER, Value: 750}}, reader.Writes())
}

func TestCreateGXModbusReaderRejectsInvalidPoints(t *testing.T) {

	_, err := CreateGXModbusReader("127.0.0.1", 502, []Point{{Name: "bad"}}, time.Second, nil, nil)
	assert.Error(t, err)

	reader, err := CreateGXModbusReader("127.0.0.1", 502, DefaultPoints(), time.Second, nil, nil)
	require.NoError(t, err)
	assert.Len(t, reader.Points(), len(DefaultPoints()))
	_, err = reader.ReadPoint("nope")
	assert.True(t, errors.Is(err, ErrUnknownPoint))
}

func TestRecordTimer(t *testing.T) {

	var names []string
	inst := []ModbusInstrument{{RecordTime: func(fnName string, _ time.Duration) { names = append(names, fnName) }}}
	RecordTimer("ReadRegister", inst)()
	RecordTimer("ReadRegister", nil)()
	assert.Equal(t, []string{"ReadRegister"}, names)
}
