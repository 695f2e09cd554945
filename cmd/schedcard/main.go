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

	adactor "schedcard/internal/adapter/actor"
	"schedcard/internal/adapter/ha"
	"schedcard/internal/config"
	"schedcard/internal/core/actor"
	"schedcard/internal/core/domain"
	"schedcard/internal/core/port"
	"schedcard/internal/core/service"
	"schedcard/internal/server"
	"schedcard/internal/store"
	"schedcard/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

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

	// invalid mode or capacity is fatal before anything is constructed
	if err := cfg.Card.Validate(); err != nil {
		slog.Error("invalid card config", "error", err)
		return
	}
	names, err := config.ResolveEntityNames(cfg.Card)
	if err != nil {
		slog.Error("invalid card entities", "error", err)
		return
	}

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// persisted duration preference
	durations, err := store.NewDurationStore(cfg.StateDir, cfg.MQTT.BaseTopic)
	if err != nil {
		logger.Error("could not open duration store", zap.Error(err))
		return
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	haClient := ha.NewClient(cfg.HomeAssistant, logger)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg,
			cardActorProvider(cfg, names, haClient, durations, logger),
			statestreamActorProvider(cfg, logger),
			snapshotFetcher(cfg, haClient), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	// periodic checks run on their own timers, decoupled from push frequency
	sched, err := startSchedulers(ctx, pid)
	if err != nil {
		logger.Error("could not start schedulers", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	done := make(chan bool, 1)

	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Println("Graceful shutdown complete.")

	sched.Stop()
	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SCHEDCARD_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SCHEDCARD_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("schedcard")
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

	// "max_output" is accepted as a generic alias of max_output_kw
	if cfg.Card.MaxOutputKw == 0 && viper.IsSet("card.max_output") {
		cfg.Card.MaxOutputKw = viper.GetFloat64("card.max_output")
	}

	// check and fix statestream base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	return &cfg, nil
}

func cardActorProvider(cfg *config.Config, names config.EntityNames, executor port.CommandExecutor,
	durations port.DurationStore, logger *zap.Logger) actor.CardActorProvider {
	return func(es *eventstream.EventStream) *actor.CardActor {
		return actor.NewCardActor(*cfg, names, executor, durations, port.SystemClock{}, es, logger)
	}
}

func statestreamActorProvider(cfg *config.Config, logger *zap.Logger) actor.StatestreamActorProvider {
	if cfg.MQTT.Host == "" {
		return nil
	}
	return func() *adactor.StatestreamActor {
		return adactor.NewStatestreamActor(cfg, logger)
	}
}

func snapshotFetcher(cfg *config.Config, client *ha.Client) actor.SnapshotFetcher {
	if cfg.HomeAssistant.BaseURL == "" {
		return nil
	}
	return func(ctx context.Context) (domain.Snapshot, error) {
		return client.States(ctx)
	}
}

func startSchedulers(root *pactor.RootContext, master *pactor.PID) (quartz.Scheduler, error) {
	sched := quartz.NewStdScheduler()
	sched.Start(context.Background())

	refreshJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(master, domain.FailsafeRefreshTick{})
		return true, nil
	})
	err := sched.ScheduleJob(quartz.NewJobDetail(refreshJob, quartz.NewJobKey("failsafe_refresh")),
		quartz.NewSimpleTrigger(service.FailsafeRefreshInterval))
	if err != nil {
		return nil, err
	}

	expiryJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(master, domain.ExpiryCheckTick{})
		return true, nil
	})
	err = sched.ScheduleJob(quartz.NewJobDetail(expiryJob, quartz.NewJobKey("expiry_check")),
		quartz.NewSimpleTrigger(service.ExpiryCheckInterval))
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.base_topic", "homeassistant_statestream")
	viper.SetDefault("card.mode", "both")
	viper.SetDefault("card.max_output_kw", 0)
	viper.SetDefault("card.debug", false)
	viper.SetDefault("state_dir", "./data")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.HomeAssistant.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
