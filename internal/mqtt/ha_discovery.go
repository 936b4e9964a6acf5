package mqtt

import (
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
)

const HA_PLATFORM_MQTT = "mqtt"

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	// number entities only; a nil bound keeps the Home Assistant default
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
	Mode string   `json:"mode,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func (c *MQTTClient) HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return c.haConfigTopic(sensor.SensorType, sensor.Device, sensor.Id)
}

func (c *MQTTClient) HADiscoverySwitchTopic(sw domain.GenericSwitch) string {
	return c.haConfigTopic("switch", sw.Device, sw.Id)
}

func (c *MQTTClient) HADiscoveryInputNumberTopic(number domain.GenericInputNumber) string {
	return c.haConfigTopic("number", number.Device, number.Id)
}

func (c *MQTTClient) haConfigTopic(component string, device domain.Device, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.discoveryTopic(), component, device.Id, id)
}

// entity fills the fields shared by every announced entity. Availability follows the bridge state.
func entity(client *MQTTClient, d domain.Device, name, uniqueId, icon, stateTopic string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device: HADiscoveryDevice{
			Id:           []string{d.Id},
			Manufacturer: d.Manufacturer,
			Version:      d.Version,
			Model:        d.Model,
			Name:         d.Name,
			ViaDevice:    d.ViaDevice,
		},
		StateTopic: stateTopic,
		AvTopic:    client.BridgeStateTopic(),
		Name:       name,
		UniqueId:   uniqueId,
		Icon:       icon,
		Platform:   HA_PLATFORM_MQTT,
	}
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	var topic string
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		topic = client.BridgeStateTopic()
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		topic = client.BinarySensorStateTopic(sensor.Id)
	default:
		topic = client.SensorStateTopic(sensor.Id)
	}
	msg := entity(client, sensor.Device, sensor.Name, sensor.UniqueId, sensor.Icon, topic)
	msg.StateClass = sensor.StateClass
	msg.DeviceClass = sensor.DeviceClass
	msg.UnitOfMeasurement = sensor.UnitOfMeasurement
	msg.EntityCategory = sensor.EntityCategory
	msg.EnabledByDefault = sensor.EnabledByDefault
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		msg.PayloadOn, msg.PayloadOff = MQTT_PAYLOAD_ONLINE, MQTT_PAYLOAD_OFFLINE
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		msg.PayloadOn, msg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
	}
	return msg
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, sw domain.GenericSwitch) HADiscoveryConfig {
	msg := entity(client, sw.Device, sw.Name, sw.UniqueId, sw.Icon, client.SwitchStateTopic(sw.Id))
	msg.CommandTopic = client.SwitchCommandTopic(sw.Id)
	msg.PayloadOn, msg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
	return msg
}

func GenericInputNumberToHADiscoveryMessage(client *MQTTClient, number domain.GenericInputNumber) HADiscoveryConfig {
	msg := entity(client, number.Device, number.Name, number.UniqueId, number.Icon, client.InputNumberStateTopic(number.Id))
	msg.CommandTopic = client.InputNumberCommandTopic(number.Id)
	msg.Min, msg.Max, msg.Step = &number.Min, &number.Max, &number.Step
	msg.Mode = number.Mode
	return msg
}
