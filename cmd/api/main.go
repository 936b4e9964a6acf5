package main

import (
	"context"
	"errors"
	"fmt"
	adactor "github.com/berfenger/solcast2mqtt/internal/adapter/actor"
	"github.com/berfenger/solcast2mqtt/internal/adapter/influx"
	"github.com/berfenger/solcast2mqtt/internal/adapter/solcast"
	"github.com/berfenger/solcast2mqtt/internal/adapter/storage"
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/actor"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"github.com/berfenger/solcast2mqtt/internal/core/service"
	"github.com/berfenger/solcast2mqtt/internal/server"
	"github.com/berfenger/solcast2mqtt/internal/util/actorutil"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, shutdown <-chan domain.ShutdownRequest, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal or a stop requested by the controller.
	select {
	case <-ctx.Done():
	case req := <-shutdown:
		log.Printf("shutdown requested: %s", req.Reason)
	}

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Modbus actor provider
	modbusProv, err := modbusActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	recorder, closeRecorder := trajectoryRecorder(cfg, logger)
	defer closeRecorder()

	shutdown := make(chan domain.ShutdownRequest, 1)
	onShutdown := func(req domain.ShutdownRequest) {
		select {
		case shutdown <- req:
		default:
		}
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, modbusProv, mqttActorProvider(cfg, logger),
			controllerActorProvider(cfg, recorder, logger), onShutdown, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, shutdown, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SOLCAST2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SOLCAST2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("solcast2mqtt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func modbusActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ModbusActorProvider, error) {

	if cfg.GXModbusTcp.Simulate {
		logger.Warn("gx_modbus_tcp.simulate is set, using an in-memory device")
		reader := gx_modbus.CreateTestPointReader(nil)
		return func() *adactor.ModbusActor {
			return adactor.NewModbusActor(reader, logger)
		}, nil
	}

	points, err := cfg.ResolvePoints()
	if err != nil {
		return nil, err
	}

	reader, err := gx_modbus.CreateGXModbusReader(cfg.GXModbusTcp.Host, cfg.GXModbusTcp.Port, points,
		time.Duration(cfg.GXModbusTcp.TimeoutMillis)*time.Millisecond, logger, nil)
	if err != nil {
		return nil, err
	}

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(reader, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg.MQTT, es, logger)
	}
}

func controllerActorProvider(cfg *config.Config, recorder port.TrajectoryRecorder, logger *zap.Logger) actor.ControllerActorProvider {
	store := storage.NewFileStore(afero.NewOsFs(), cfg.Controller)
	provider := solcast.NewClient(cfg.Solcast, logger)
	return func(modbusActor *pactor.PID, es *eventstream.EventStream) *actor.ControllerActor {
		loc, err := cfg.Location()
		if err != nil {
			loc = time.Local
		}
		// a restarted controller starts from a fresh builder and the configured policy
		logic := service.NewDischargeControlLogic(forecast.NewBuilder(cfg.BuilderOptions(loc)),
			cfg.OptimizerPolicy(), cfg.Controller.WriteDeadband, logger)
		return actor.NewControllerActor(cfg, modbusActor, es, logic, provider, store, recorder, logger)
	}
}

// trajectoryRecorder returns a nil recorder when no InfluxDB is configured.
func trajectoryRecorder(cfg *config.Config, logger *zap.Logger) (port.TrajectoryRecorder, func()) {
	recorder := influx.NewRecorder(cfg.InfluxDB, logger)
	if recorder == nil {
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recorder.Ping(ctx); err != nil {
		logger.Warn("influxdb is not reachable, trajectories will be retried on every run", zap.Error(err))
	}
	return recorder, recorder.Close
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("timezone", "")
	viper.SetDefault("gx_modbus_tcp.host", "venus.local")
	viper.SetDefault("gx_modbus_tcp.port", 502)
	viper.SetDefault("gx_modbus_tcp.timeout_millis", 2000)
	viper.SetDefault("gx_modbus_tcp.simulate", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "solcast2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mqtt.max_payload_bytes", 256*1024)
	viper.SetDefault("solcast.url", "")
	viper.SetDefault("solcast.api_key", "")
	viper.SetDefault("solcast.timeout_millis", 10000)
	viper.SetDefault("forecast.mode", string(forecast.MODE_ROLLING))
	viper.SetDefault("forecast.horizon_slots", forecast.MAX_HORIZON_SLOTS)
	viper.SetDefault("forecast.production_scale", 0.5)
	viper.SetDefault("forecast.snapshot_max_age_minutes", 180)
	viper.SetDefault("forecast.commit_cron", "")
	viper.SetDefault("forecast.first_fetch_cron", "")
	viper.SetDefault("forecast.fetch_cron", "")
	viper.SetDefault("forecast.day_rollover_cron", "")
	viper.SetDefault("optimizer.safety_margin", 5)
	viper.SetDefault("optimizer.require_recharge", false)
	viper.SetDefault("optimizer.recharge_target", 85)
	viper.SetDefault("optimizer.overcharge_ceiling", 95)
	viper.SetDefault("optimizer.max_iterations", 10)
	viper.SetDefault("optimizer.absolute_max_limit", 2000)
	viper.SetDefault("optimizer.snap_threshold", 2)
	viper.SetDefault("controller.tick_interval_millis", 1000)
	viper.SetDefault("controller.authorize_write", false)
	viper.SetDefault("controller.write_deadband", 2)
	viper.SetDefault("controller.data_dir", "/data")
	viper.SetDefault("controller.history_file", storage.DEFAULT_HISTORY_FILE)
	viper.SetDefault("controller.forecast_file", storage.DEFAULT_FORECAST_FILE)
	viper.SetDefault("controller.kill_file", storage.DEFAULT_KILL_FILE)
	viper.SetDefault("influxdb.url", "")
	viper.SetDefault("influxdb.token", "")
	viper.SetDefault("influxdb.org", "")
	viper.SetDefault("influxdb.bucket", "")
	viper.SetDefault("influxdb.measurement", "solcast2mqtt")
	viper.SetDefault("influxdb.timeout_millis", 5000)
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Solcast.APIKey = "*redacted*"
	cfg.InfluxDB.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
