package actor

import (
	"errors"
	"fmt"
	adactor "github.com/berfenger/solcast2mqtt/internal/adapter/actor"
	"github.com/berfenger/solcast2mqtt/internal/adapter/storage"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/port/portmock"
	"github.com/berfenger/solcast2mqtt/internal/core/service"
	"github.com/berfenger/solcast2mqtt/internal/mqtt"
	"github.com/berfenger/solcast2mqtt/internal/util"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"strings"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.MQTT.HADiscoveryEnable = true
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	store := storage.NewFileStore(afero.NewMemMapFs(), cfg.Controller)
	table := consumption.NewTable()
	for _, key := range consumption.SlotKeys() {
		require.NoError(t, table.Set(key, 0.4))
	}
	require.NoError(t, store.SaveHistory(table))

	provider := &portmock.MockForecastProvider{}
	provider.On("Fetch", mock.Anything).Return(nil, errors.New("offline")).Maybe()

	var mqttActor *adactor.MQTTActor
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.ModbusActor {
			return adactor.NewModbusActor(gx_modbus.CreateTestPointReader(nil), logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			mqttActor = adactor.NewTestMQTTActor(cfg.MQTT, es, logger)
			return mqttActor
		}, func(modbusActor *actor.PID, es *eventstream.EventStream) *ControllerActor {
			logic := service.NewDischargeControlLogic(forecast.NewBuilder(cfg.BuilderOptions(time.UTC)),
				cfg.OptimizerPolicy(), cfg.Controller.WriteDeadband, logger)
			return NewControllerActor(&cfg, modbusActor, es, logic, provider, store, nil, logger)
		}, nil, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.True(t, healthResp.Healthy, "healthy is true")

	// discovery announces the optimizer entities
	assert.Eventually(t, func() bool {
		var switches, numbers int
		for _, m := range mqttActor.Published() {
			if strings.HasPrefix(m.Topic, "homeassistant/switch/") {
				switches++
			}
			if strings.HasPrefix(m.Topic, "homeassistant/number/") {
				numbers++
			}
		}
		return switches == 1 && numbers == 1
	}, 5*time.Second, 50*time.Millisecond)

	// commands received on MQTT reach the controller
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.SWITCH_ID_AUTHORIZE_WRITE,
		Command:  "set",
		Payload:  "ON",
	}})
	assert.Eventually(t, func() bool {
		res, err := context.RequestFuture(pid, domain.GetStatusRequest{}, 2*time.Second).Result()
		if err != nil {
			return false
		}
		return res.(domain.GetStatusResponse).Status.AuthorizeWrite
	}, 5*time.Second, 100*time.Millisecond)

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterForwardsShutdown(t *testing.T) {

	as := actor.NewActorSystem()
	cfg := util.LoadTestConfig()
	logger := zap.NewNop()

	// no history: the controller cannot run
	store := storage.NewFileStore(afero.NewMemMapFs(), cfg.Controller)

	shutdown := make(chan domain.ShutdownRequest, 1)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.ModbusActor {
			return adactor.NewModbusActor(gx_modbus.CreateTestPointReader(nil), logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(cfg.MQTT, es, logger)
		}, func(modbusActor *actor.PID, es *eventstream.EventStream) *ControllerActor {
			logic := service.NewDischargeControlLogic(forecast.NewBuilder(cfg.BuilderOptions(time.UTC)),
				cfg.OptimizerPolicy(), cfg.Controller.WriteDeadband, logger)
			return NewControllerActor(&cfg, modbusActor, es, logic, &portmock.MockForecastProvider{}, store, nil, logger)
		}, func(req domain.ShutdownRequest) {
			shutdown <- req
		}, logger)
	})
	pid, err := as.Root.SpawnNamed(props, "master")
	require.NoError(t, err)

	select {
	case req := <-shutdown:
		assert.True(t, strings.Contains(req.Reason, storage.ErrNoHistory.Error()))
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no shutdown requested")
	}

	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.False(t, res.(domain.ActorHealthResponse).Healthy)

	as.Root.Stop(pid)
	as.Shutdown()
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}
