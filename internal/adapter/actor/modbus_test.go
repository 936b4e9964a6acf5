package actor

import (
	"errors"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/util/actorutil"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadPointsModbusActor(t *testing.T) {

	assert := assert.New(t)

	reader := gx_modbus.CreateTestPointReader(map[string]float64{gx_modbus.POINT_BATTERY_SOC: 71.5})

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, logger) })
	pid := context.Spawn(props)

	msg := domain.ReadPointsRequest{Names: []string{gx_modbus.POINT_BATTERY_SOC, gx_modbus.POINT_BATTERY_SOH, "unknown_point"}}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ReadPointsResponse)

	assert.Nil(resp.ResponseError)
	assert.Equal(71.5, resp.Values[gx_modbus.POINT_BATTERY_SOC])
	assert.Equal(98.0, resp.Values[gx_modbus.POINT_BATTERY_SOH])
	_, ok := resp.Values.Read("unknown_point")
	assert.False(ok, "unknown point is absent")

	context.Stop(pid)

	as.Shutdown()
}

func TestReadPointsModbusActorDeviceDown(t *testing.T) {

	reader := gx_modbus.CreateTestPointReader(nil)
	reader.Fail = errors.New("connection refused")

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ReadPointsRequest{Names: domain.ParameterPoints()}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ReadPointsResponse)
	assert.True(t, errors.Is(resp.ResponseError, ErrNoPointRead))

	context.Stop(pid)
	as.Shutdown()
}

func TestWritePointModbusActor(t *testing.T) {

	assert := assert.New(t)

	reader := gx_modbus.CreateTestPointReader(nil)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.WritePointRequest{Name: gx_modbus.POINT_MAX_DISCHARGE_POWER, Value: 1200}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.WritePointResponse)
	assert.Nil(resp.ResponseError)
	assert.Equal([]gx_modbus.PointWrite{{Name: gx_modbus.POINT_MAX_DISCHARGE_POWER, Value: 1200}}, reader.Writes())

	result, err = context.RequestFuture(pid, domain.WritePointRequest{Name: gx_modbus.POINT_BATTERY_SOC, Value: 10}, 15*time.Second).Result()
	require.NoError(t, err)
	resp = result.(domain.WritePointResponse)
	assert.True(errors.Is(resp.ResponseError, gx_modbus.ErrPointNotWritable))

	context.Stop(pid)
	as.Shutdown()
}
