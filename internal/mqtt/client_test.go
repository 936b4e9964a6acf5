package mqtt

import (
	"encoding/json"
	"errors"
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/state"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "number_name", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/number_name/command"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

type testMessage struct {
	topic   string
	payload string
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 1 }
func (m testMessage) Retained() bool    { return false }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return []byte(m.payload) }
func (m testMessage) Ack()              {}

func testClient(maxPayload int) *MQTTClient {
	return newMQTTClient(nil, config.MQTTConfig{
		BaseTopic:        "solcast2mqtt",
		HADiscoveryTopic: "ha",
		MaxPayloadBytes:  maxPayload,
	})
}

func TestParseMQTTCommand(t *testing.T) {

	c := testClient(0)

	cmd, err := c.ParseMQTTCommand(testMessage{topic: "solcast2mqtt/switch/authorize_write_max_discharge_power/command", payload: "on"})
	require.NoError(t, err)
	assert.Equal(t, "switch", cmd.Command)
	assert.Equal(t, domain.SWITCH_ID_AUTHORIZE_WRITE, cmd.DeviceId)
	assert.Equal(t, "on", cmd.Payload)

	cmd, err = c.ParseMQTTCommand(testMessage{topic: "solcast2mqtt/number/optimizer_safety_margin/set", payload: "7"})
	require.NoError(t, err)
	assert.Equal(t, "number", cmd.Command)
	assert.Equal(t, domain.INPUT_NUMBER_ID_SAFETY_MARGIN, cmd.DeviceId)

	_, err = c.ParseMQTTCommand(testMessage{topic: "solcast2mqtt/number/optimizer_safety_margin/set", payload: "seven"})
	assert.Error(t, err)

	_, err = c.ParseMQTTCommand(testMessage{topic: "solcast2mqtt/forecast/trajectory", payload: "{}"})
	assert.Error(t, err)
}

func TestTopics(t *testing.T) {

	c := testClient(0)
	device := domain.Device{Id: "dev"}

	assert.Equal(t, "solcast2mqtt/forecast/trajectory", c.TrajectoryTopic())
	assert.Equal(t, "solcast2mqtt/bridge/state", c.BridgeStateTopic())
	assert.Equal(t, "solcast2mqtt/sensor/max_discharge_power/state", c.SensorStateTopic(domain.SENSOR_ID_MAX_DISCHARGE_POWER))
	assert.Equal(t, "ha/sensor/dev/optimizer_state/config",
		c.HADiscoverySensorTopic(domain.GenericSensor{Device: device, Id: "optimizer_state", SensorType: domain.SENSOR_TYPE_SENSOR}))
	assert.Equal(t, "ha/switch/dev/sw/config", c.HADiscoverySwitchTopic(domain.GenericSwitch{Device: device, Id: "sw"}))
	assert.Equal(t, "ha/number/dev/n/config", c.HADiscoveryInputNumberTopic(domain.GenericInputNumber{Device: device, Id: "n"}))
}

func TestTrajectoryMessageCeiling(t *testing.T) {

	payload := domain.TrajectoryPayload{
		Timestamp:  1714523400,
		Limit:      1500,
		State:      "CONVERGED",
		PeriodEnd:  []int64{1714525200},
		BatterySoC: []int64{6450},
	}

	data, err := testClient(0).TrajectoryMessage(payload)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1500), decoded["limit"])
	assert.Equal(t, []any{float64(6450)}, decoded["battery_soc"])

	_, err = testClient(32).TrajectoryMessage(payload)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestDiscoveryMessages(t *testing.T) {

	c := testClient(0)
	bridge := domain.BridgeDevice("solcast2mqtt")

	for _, s := range domain.BridgeSensors(bridge) {
		msg := GenericSensorToHADiscoveryMessage(c, s)
		assert.Equal(t, c.BridgeStateTopic(), msg.StateTopic)
		assert.Equal(t, MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	}

	device := domain.OptimizerDevice("solcast2mqtt", bridge)
	sw := GenericSwitchToHADiscoveryMessage(c, domain.OptimizerSwitches(device)[0])
	assert.Equal(t, "solcast2mqtt/switch/authorize_write_max_discharge_power/command", sw.CommandTopic)
	assert.Equal(t, "mqtt", sw.Platform)

	num := GenericInputNumberToHADiscoveryMessage(c, domain.OptimizerInputNumbers(device)[0])
	assert.Equal(t, "solcast2mqtt/number/optimizer_safety_margin/set", num.CommandTopic)
	require.NotNil(t, num.Min)
	assert.Equal(t, 0.0, *num.Min)
	data, err := json.Marshal(num)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"min":0`)
}
