package actor

import (
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/util"
	"github.com/berfenger/solcast2mqtt/internal/util/actorutil"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	var dummy *MQTTActor
	props := actor.PropsFromProducer(func() actor.Actor {
		dummy = NewTestMQTTActor(cfg.MQTT, &es, logger)
		return dummy
	})
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_MAX_DISCHARGE_POWER,
		},
		Value:    1500,
		Decimals: 0,
	})
	es.Publish(domain.TrajectoryUpdateEvent{
		Payload: domain.TrajectoryPayload{Timestamp: 1714523400, Limit: 1500, State: "CONVERGED"},
	})

	assert.Eventually(t, func() bool { return len(dummy.Published()) == 2 }, 2*time.Second, 50*time.Millisecond)
	published := dummy.Published()
	assert.Equal(t, PublishedMessage{Topic: "solcast2mqtt/sensor/max_discharge_power/state", Payload: "1500"}, published[0])
	assert.Equal(t, "solcast2mqtt/forecast/trajectory", published[1].Topic)
	assert.True(t, published[1].Retain)
	assert.Contains(t, published[1].Payload, `"limit":1500`)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func TestMQTTActorTrajectoryCeiling(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.MQTT.MaxPayloadBytes = 16

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root
	es := eventstream.EventStream{}

	var dummy *MQTTActor
	props := actor.PropsFromProducer(func() actor.Actor {
		dummy = NewTestMQTTActor(cfg.MQTT, &es, logger)
		return dummy
	})
	pid := context.Spawn(props)

	_, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	// the oversized trajectory is dropped, the sensor after it still goes out
	es.Publish(domain.TrajectoryUpdateEvent{
		Payload: domain.TrajectoryPayload{Limit: 1500, State: "CONVERGED"},
	})
	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_MAX_DISCHARGE_POWER,
		},
		Value: 1500,
	})

	assert.Eventually(t, func() bool { return len(dummy.Published()) == 1 }, 2*time.Second, 50*time.Millisecond)
	published := dummy.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "solcast2mqtt/sensor/max_discharge_power/state", published[0].Topic)

	context.Stop(pid)
	as.Shutdown()
}
