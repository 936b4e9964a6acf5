package config

import (
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/schedule"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel    zapcore.Level
	Timezone    string            `mapstructure:"timezone"`
	GXModbusTcp GXModbusTCPConfig `mapstructure:"gx_modbus_tcp"`
	Points      []PointConfig     `mapstructure:"points"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`

	Solcast    SolcastConfig    `mapstructure:"solcast"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer"`
	Controller ControllerConfig `mapstructure:"controller"`
	InfluxDB   InfluxDBConfig   `mapstructure:"influxdb"`
	Port       uint             `mapstructure:"port"`
	HttpLog    bool             `mapstructure:"http_log"`
}

type GXModbusTCPConfig struct {
	Host          string
	Port          uint
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
	// Simulate replaces the device with an in-memory one
	Simulate bool `mapstructure:"simulate"`
}

// PointConfig overrides or adds a device point of the default GX register map.
type PointConfig struct {
	Name     string
	Service  string
	Path     string
	UnitId   uint8  `mapstructure:"unit_id"`
	Address  uint16 `mapstructure:"address"`
	Type     string
	Scale    float64
	Writable bool
}

type SolcastConfig struct {
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type ForecastConfig struct {
	Mode                  string  `mapstructure:"mode"`
	HorizonSlots          int     `mapstructure:"horizon_slots"`
	ProductionScale       float64 `mapstructure:"production_scale"`
	SnapshotMaxAgeMinutes uint32  `mapstructure:"snapshot_max_age_minutes"`
	CommitCron            string  `mapstructure:"commit_cron"`
	FirstFetchCron        string  `mapstructure:"first_fetch_cron"`
	FetchCron             string  `mapstructure:"fetch_cron"`
	DayRolloverCron       string  `mapstructure:"day_rollover_cron"`
}

type OptimizerConfig struct {
	SafetyMargin      float64 `mapstructure:"safety_margin"`
	RequireRecharge   bool    `mapstructure:"require_recharge"`
	RechargeTarget    float64 `mapstructure:"recharge_target"`
	OverchargeCeiling float64 `mapstructure:"overcharge_ceiling"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	AbsoluteMaxLimit  float64 `mapstructure:"absolute_max_limit"`
	SnapThreshold     float64 `mapstructure:"snap_threshold"`
}

type ControllerConfig struct {
	TickIntervalMillis uint32  `mapstructure:"tick_interval_millis"`
	AuthorizeWrite     bool    `mapstructure:"authorize_write"`
	WriteDeadband      float64 `mapstructure:"write_deadband"`
	DataDir            string  `mapstructure:"data_dir"`
	HistoryFile        string  `mapstructure:"history_file"`
	ForecastFile       string  `mapstructure:"forecast_file"`
	KillFile           string  `mapstructure:"kill_file"`
}

type InfluxDBConfig struct {
	URL           string `mapstructure:"url"`
	Token         string `mapstructure:"token"`
	Org           string `mapstructure:"org"`
	Bucket        string `mapstructure:"bucket"`
	Measurement   string `mapstructure:"measurement"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
	MaxPayloadBytes   int    `mapstructure:"max_payload_bytes"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func (c *Config) InfluxEnabled() bool {
	return c.InfluxDB.URL != ""
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Controller.TickIntervalMillis) * time.Millisecond
}

func (c *Config) SnapshotMaxAge() time.Duration {
	return time.Duration(c.Forecast.SnapshotMaxAgeMinutes) * time.Minute
}

// ResolvePoints merges the configured points over the default GX register map.
func (c *Config) ResolvePoints() ([]gx_modbus.Point, error) {
	var overrides []gx_modbus.Point
	for _, p := range c.Points {
		overrides = append(overrides, gx_modbus.Point{
			Name:     p.Name,
			Service:  p.Service,
			Path:     p.Path,
			UnitId:   p.UnitId,
			Address:  p.Address,
			Type:     gx_modbus.PointType(strings.ToLower(p.Type)),
			Scale:    p.Scale,
			Writable: p.Writable,
		})
	}
	return gx_modbus.MergePoints(gx_modbus.DefaultPoints(), overrides)
}

func (c *Config) OptimizerPolicy() optimizer.Policy {
	return optimizer.Policy{
		SafetyMargin:      c.Optimizer.SafetyMargin,
		RequireRecharge:   c.Optimizer.RequireRecharge,
		RechargeTarget:    c.Optimizer.RechargeTarget,
		OverchargeCeiling: c.Optimizer.OverchargeCeiling,
		MaxIterations:     c.Optimizer.MaxIterations,
		AbsoluteMaxLimit:  c.Optimizer.AbsoluteMaxLimit,
		SnapThreshold:     c.Optimizer.SnapThreshold,
	}
}

func (c *Config) BuilderOptions(loc *time.Location) forecast.BuilderOptions {
	return forecast.BuilderOptions{
		Location:        loc,
		Mode:            forecast.Mode(strings.ToLower(c.Forecast.Mode)),
		Slots:           c.Forecast.HorizonSlots,
		ProductionScale: c.Forecast.ProductionScale,
	}
}

func (c *Config) ScheduleOptions(loc *time.Location) schedule.Options {
	opts := schedule.DefaultOptions(loc)
	if c.Forecast.CommitCron != "" {
		opts.CommitCron = c.Forecast.CommitCron
	}
	if c.Forecast.FirstFetchCron != "" {
		opts.FirstForecast = c.Forecast.FirstFetchCron
	}
	if c.Forecast.FetchCron != "" {
		opts.ForecastCron = c.Forecast.FetchCron
	}
	if c.Forecast.DayRolloverCron != "" {
		opts.DayRolloverCron = c.Forecast.DayRolloverCron
	}
	return opts
}

// Validate checks bounds of the loaded config.
func (c *Config) Validate() error {
	if c.Controller.TickIntervalMillis < 100 {
		return errors.New("config param controller.tick_interval_millis should be >= 100ms")
	}
	if c.Controller.WriteDeadband < 0 {
		return errors.New("config param controller.write_deadband should be >= 0")
	}
	if c.Controller.DataDir == "" {
		return errors.New("config param controller.data_dir is required")
	}
	if c.Forecast.HorizonSlots < 1 || c.Forecast.HorizonSlots > forecast.MAX_HORIZON_SLOTS {
		return fmt.Errorf("config param forecast.horizon_slots should be in 1..%d", forecast.MAX_HORIZON_SLOTS)
	}
	switch forecast.Mode(strings.ToLower(c.Forecast.Mode)) {
	case forecast.MODE_ROLLING, forecast.MODE_FIXED:
	default:
		return fmt.Errorf("config param forecast.mode should be %s or %s", forecast.MODE_ROLLING, forecast.MODE_FIXED)
	}
	if c.Forecast.ProductionScale <= 0 {
		return errors.New("config param forecast.production_scale should be > 0")
	}
	if err := c.OptimizerPolicy().Validate(); err != nil {
		return err
	}
	if c.Solcast.URL == "" {
		return errors.New("config param solcast.url is required")
	}
	if c.MQTT.MaxPayloadBytes < 0 {
		return errors.New("config param mqtt.max_payload_bytes should be >= 0")
	}
	if c.InfluxEnabled() && (c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		return errors.New("config params influxdb.org and influxdb.bucket are required when influxdb.url is set")
	}
	loc, err := c.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := schedule.NewPlanner(c.ScheduleOptions(loc), time.Now()); err != nil {
		return err
	}
	if _, err := c.ResolvePoints(); err != nil {
		return err
	}
	return nil
}
