package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_MAX_DISCHARGE_POWER  = "max_discharge_power"
	SENSOR_ID_FORECAST_PRODUCTION  = "forecast_production_total"
	SENSOR_ID_FORECAST_CONSUMPTION = "forecast_consumption_total"
	SENSOR_ID_OPTIMIZER_STATE      = "optimizer_state"
	SENSOR_ID_OPTIMIZER_ITERATIONS = "optimizer_iterations"
	SENSOR_ID_PROJECTED_SOC_MIN    = "projected_soc_min"
	SENSOR_ID_PROJECTED_SOC_MAX    = "projected_soc_max"
	SENSOR_ID_LAST_CONSUMPTION     = "last_consumption"
	SENSOR_ID_DAILY_CONSUMPTION    = "daily_consumption_estimate"
	SWITCH_ID_AUTHORIZE_WRITE      = "authorize_write_max_discharge_power"
	INPUT_NUMBER_ID_SAFETY_MARGIN  = "optimizer_safety_margin"
	STATE_CLASS_MEASUREMENT        = "measurement"
	STATE_CLASS_TOTAL              = "total"
	DEVICE_CLASS_BATTERY           = "battery"
	DEVICE_CLASS_ENERGY            = "energy"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	ENTITY_CLASS_CONFIG            = "config"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
	INPUT_NUMBER_MODE_BOX          = "box"
	INPUT_NUMBER_MODE_SLIDER       = "slider"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("solcast2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Solcast2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Solcast2MQTT %s", md5HashShort(baseTopic)),
	}
}

// OptimizerDevice groups the forecast and optimizer entities of one GX site.
func OptimizerDevice(baseTopic string, bridge Device) Device {
	return Device{
		Id:           fmt.Sprintf("solcast2mqtt_optimizer_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Discharge optimizer",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Battery discharge optimizer %s", md5HashShort(baseTopic)),
		ViaDevice:    bridge.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connectivity
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func OptimizerSensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_MAX_DISCHARGE_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Computed max discharge power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:battery-arrow-down",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_MAX_DISCHARGE_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_FORECAST_PRODUCTION,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Forecasted production",
		StateClass:        STATE_CLASS_TOTAL,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_FORECAST_PRODUCTION),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_FORECAST_CONSUMPTION,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Forecasted consumption",
		StateClass:        STATE_CLASS_TOTAL,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		Icon:              "mdi:home-lightning-bolt",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_FORECAST_CONSUMPTION),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_PROJECTED_SOC_MIN,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Projected minimum SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_PROJECTED_SOC_MIN),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_PROJECTED_SOC_MAX,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Projected maximum SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_PROJECTED_SOC_MAX),
	})

	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_OPTIMIZER_STATE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Optimizer state",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_OPTIMIZER_STATE),
	})

	sensors = append(sensors, GenericSensor{
		Device:           device,
		Id:               SENSOR_ID_OPTIMIZER_ITERATIONS,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Optimizer iterations",
		StateClass:       STATE_CLASS_MEASUREMENT,
		EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: optionalBool(false),
		UniqueId:         uniqueId(device.Id, SENSOR_ID_OPTIMIZER_ITERATIONS),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_LAST_CONSUMPTION,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Last half hour consumption",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_LAST_CONSUMPTION),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_DAILY_CONSUMPTION,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Daily consumption estimate",
		StateClass:        STATE_CLASS_TOTAL,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_DAILY_CONSUMPTION),
	})

	return sensors
}

func OptimizerSwitches(device Device) []GenericSwitch {

	var switches []GenericSwitch

	// Authorize writing the computed limit to the device
	switches = append(switches, GenericSwitch{
		Device:   device,
		Id:       SWITCH_ID_AUTHORIZE_WRITE,
		Name:     "Authorize max discharge power write",
		UniqueId: uniqueId(device.Id, SWITCH_ID_AUTHORIZE_WRITE),
		Icon:     "mdi:battery-sync",
	})

	return switches
}

// OptimizerInputNumbers are the runtime tunables of the optimizer policy.
func OptimizerInputNumbers(device Device) []GenericInputNumber {
	return []GenericInputNumber{
		{
			Device:   device,
			Id:       INPUT_NUMBER_ID_SAFETY_MARGIN,
			Name:     "Optimizer safety margin",
			UniqueId: uniqueId(device.Id, INPUT_NUMBER_ID_SAFETY_MARGIN),
			Icon:     "mdi:battery-lock",
			Min:      0,
			Max:      50,
			Step:     1,
			Mode:     INPUT_NUMBER_MODE_BOX,
		},
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
