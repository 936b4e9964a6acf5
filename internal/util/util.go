package util

import (
	"github.com/berfenger/solcast2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Timezone: "UTC",
		GXModbusTcp: config.GXModbusTCPConfig{
			Host:          "-.-.-.-",
			Port:          502,
			TimeoutMillis: 1000,
			Simulate:      true,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "solcast2mqtt",
			HADiscoveryTopic: "homeassistant",
			MaxPayloadBytes:  256 * 1024,
		},
		Solcast: config.SolcastConfig{
			URL:           "http://localhost:0/forecasts",
			TimeoutMillis: 1000,
		},
		Forecast: config.ForecastConfig{
			Mode:                  "rolling",
			HorizonSlots:          96,
			ProductionScale:       1,
			SnapshotMaxAgeMinutes: 180,
		},
		Optimizer: config.OptimizerConfig{
			SafetyMargin:      5,
			RechargeTarget:    85,
			OverchargeCeiling: 95,
			MaxIterations:     10,
			AbsoluteMaxLimit:  2000,
			SnapThreshold:     2,
		},
		Controller: config.ControllerConfig{
			TickIntervalMillis: 1000,
			WriteDeadband:      2,
			DataDir:            "/data",
			HistoryFile:        "cons_history.json",
			ForecastFile:       "prod_forecast.json",
			KillFile:           "kill",
		},
		Port: 8080,
	}
}
