package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/mcastell/chargecap/internal/adapter/actor"
	"github.com/mcastell/chargecap/internal/config"
	"github.com/mcastell/chargecap/internal/core/actor"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/service"
	"github.com/mcastell/chargecap/internal/server"
	"github.com/mcastell/chargecap/internal/util/actorutil"
	"github.com/mcastell/chargecap/pkg/powersupply"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

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
		return
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

	registry := powersupply.CreateSysfsRegistry(cfg.PowerSupply.SysfsPath)

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: cfg.Limiter.TickIntervalMillis,
		FaultBackoffMillis: cfg.Limiter.FaultBackoffMillis,
		DebounceMillis:     cfg.Limiter.DebounceMillis,
		Logger:             logger,
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, logic, powerSupplyActorProvider(cfg, registry, logger),
			mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	// start the control loop if configured to run at boot
	if cfg.Limiter.Enabled {
		ctx.Send(pid, domain.LimiterEnableRequest{Enable: true})
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

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

	// alias PORT => CHARGECAP_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("CHARGECAP_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("chargecap")
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

	if cfg.MQTT.Enabled {
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
	}

	// check bounds
	if cfg.PowerSupply.BatteryName == "" {
		return nil, errors.New("config param power_supply.battery_name must not be empty")
	}
	if cfg.Limiter.LowerThreshold < 0 || cfg.Limiter.LowerThreshold > 100 {
		return nil, errors.New("config param limiter.lower_threshold should be in range 0-100")
	}
	if cfg.Limiter.UpperThreshold < 0 || cfg.Limiter.UpperThreshold > 100 {
		return nil, errors.New("config param limiter.upper_threshold should be in range 0-100")
	}
	if cfg.Limiter.LowerThreshold >= cfg.Limiter.UpperThreshold {
		return nil, errors.New("config param limiter.lower_threshold must be < limiter.upper_threshold")
	}
	if cfg.Limiter.TickIntervalMillis < 100 {
		return nil, errors.New("config param limiter.tick_interval_millis should be >= 100")
	}

	return &cfg, nil
}

func powerSupplyActorProvider(cfg *config.Config, registry powersupply.Registry, logger *zap.Logger) actor.PowerSupplyActorProvider {
	return func() *adactor.PowerSupplyActor {
		return adactor.NewPowerSupplyActor(cfg.PowerSupply, registry, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "chargecap")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("power_supply.sysfs_path", "/sys/class/power_supply")
	viper.SetDefault("power_supply.battery_name", "battery")
	viper.SetDefault("power_supply.usb_name", "usb")
	viper.SetDefault("limiter.enabled", false)
	viper.SetDefault("limiter.lower_threshold", 95)
	viper.SetDefault("limiter.upper_threshold", 100)
	viper.SetDefault("limiter.tick_interval_millis", 1000)
	viper.SetDefault("limiter.fault_backoff_millis", 5000)
	viper.SetDefault("limiter.debounce_millis", 10000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
