package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hydrosim/systems/internal/bridge"
	"github.com/hydrosim/systems/internal/buoyancy"
	"github.com/hydrosim/systems/internal/config"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/fluid"
	"github.com/hydrosim/systems/internal/influx"
	"github.com/hydrosim/systems/internal/jointcmd"
	"github.com/hydrosim/systems/internal/logging"
	"github.com/hydrosim/systems/internal/monitor"
	intOtel "github.com/hydrosim/systems/internal/otel"
	"github.com/hydrosim/systems/internal/recorder"
	"github.com/hydrosim/systems/internal/runner"
	"github.com/hydrosim/systems/internal/transport"
	"github.com/hydrosim/systems/internal/velocity"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Version can be set at build time via ldflags.
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

var (
	// LogManager handles all slog-based logging
	LogManager *logging.Manager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hydrosim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Bootstrap logging to stdout only until the config tells us where
	// the log file lives.
	LogManager = logging.NewManager()
	LogManager.Setup(nil, "info", nil, nil)
	Logger = LogManager.Logger()

	if err := config.Load("."); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	logFilePath := logging.FilePath(logsDir, "hydrosim", SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if config.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  "hydrosim",
			BatchTimeout: 5 * time.Second,
			LogWriter:    logFile,
			Endpoint:     config.GetString("otel.endpoint"),
			Insecure:     config.GetBool("otel.insecure"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", logFilePath)
		}
	}

	store := ecs.NewStore()
	stepMs := config.GetInt("sim.stepMs")
	step := time.Duration(stepMs) * time.Millisecond

	// Re-setup logging with file output, optional OTel, and per-record
	// simulation step context.
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	sim, err := runner.New(store, step, Logger)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	LogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider, func() []slog.Attr {
		return []slog.Attr{slog.Uint64("tick", sim.Iterations())}
	})
	Logger = LogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath,
		"version", Version, "buildDate", BuildDate)

	// Build the world the systems will act on.
	worldName := config.GetString("sim.worldName")
	world := buildDemoWorld(store, worldName)

	node := transport.NewNode(Logger.With("component", "transport"))

	// Recorder
	storageLogger := logging.NewStorageLogger(logFile)
	backend, err := recorder.NewBackend(recorder.BackendConfig{
		Type:       config.GetString("recorder.type"),
		DSN:        config.GetString("recorder.dsn"),
		SqlitePath: config.GetString("recorder.sqlitePath"),
		Logger:     storageLogger,
	})
	if err != nil {
		return fmt.Errorf("creating recorder backend: %w", err)
	}
	run := &recorder.Run{
		StartedAt: SessionStartTime,
		WorldName: worldName,
		StepMs:    int64(stepMs),
	}
	if backend != nil {
		if err := backend.Init(); err != nil {
			return fmt.Errorf("initializing recorder backend: %w", err)
		}
		defer backend.Close()

		if err := backend.StartRun(run); err != nil {
			Logger.Error("Failed to start recording run", "error", err)
		} else {
			defer backend.EndRun()
		}
		sim.Add(recorder.NewSystem(backend))
	}

	// Influx tick timings. Registered before the command systems so the
	// sample window covers their PreUpdate work.
	influxMgr := influx.NewManager(storageLogger)
	if config.GetBool("influx.enabled") {
		if err := influxMgr.Connect(); err != nil {
			Logger.Warn("Influx unavailable, tick timings disabled", "error", err)
		}
		defer influxMgr.Close()
		if influxMgr.IsValid() {
			sim.Add(influx.NewTickTimingSystem(influxMgr, run.ID))
		}
	}

	// Buoyancy
	var region *fluid.Region
	if wkt := config.GetString("buoyancy.regionWKT"); wkt != "" {
		region, err = fluid.ParseRegion(wkt, config.GetFloat64("buoyancy.surfaceLevel"))
		if err != nil {
			return fmt.Errorf("parsing buoyancy region: %w", err)
		}
	}
	buoyancySys := buoyancy.New(nil, Logger.With("system", "buoyancy"))
	if err := buoyancySys.Configure(world.Vehicle, buoyancy.Config{
		FluidDensity: config.GetFloat64("buoyancy.fluidDensity"),
		Region:       region,
	}, store); err != nil {
		return fmt.Errorf("configuring buoyancy: %w", err)
	}
	sim.Add(buoyancySys)

	// Velocity commands
	velocitySys := velocity.New(Logger.With("system", "velocity"))
	if err := velocitySys.Configure(world.Vehicle, velocity.Config{
		Namespace: config.GetString("sim.namespace"),
		Topic:     config.GetString("velocity.topic"),
		LinkNames: config.GetStringSlice("velocity.linkNames"),
	}, store, node); err != nil {
		return fmt.Errorf("configuring velocity: %w", err)
	}
	sim.Add(velocitySys)

	// Joint position commands
	jointSys := jointcmd.New(Logger.With("system", "jointcmd"))
	if err := jointSys.Configure(world.Vehicle, config.GetString("sim.namespace"), store, node); err != nil {
		return fmt.Errorf("configuring jointcmd: %w", err)
	}
	sim.Add(jointSys)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Command bridge
	if config.GetBool("bridge.enabled") {
		bridgeSrv, err := bridge.NewServer(config.GetString("bridge.listenAddr"), node,
			Logger.With("component", "bridge"))
		if err != nil {
			return fmt.Errorf("creating bridge: %w", err)
		}
		go func() {
			if err := bridgeSrv.Start(); err != nil {
				Logger.Error("Bridge server stopped", "error", err)
			}
		}()
		defer bridgeSrv.Close()
	}

	// Status monitor
	monitorDeps := monitor.Dependencies{
		Logger:     Logger.With("component", "monitor"),
		Ticks:      sim,
		Overwrites: velocitySys,
		StatusDir:  logsDir,
		Interval:   time.Second,
	}
	if timer, ok := backend.(monitor.WriteTimer); ok {
		monitorDeps.Writes = timer
	}
	monitorSvc := monitor.NewService(monitorDeps)
	if err := monitorSvc.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
	}
	defer monitorSvc.Stop()

	Logger.Info("Simulation configured",
		"world", worldName, "step", step, "model", world.VehicleName)

	err = sim.Run(ctx)

	if OTelProvider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Shutdown(shutdownCtx); err != nil {
			Logger.Error("OTel shutdown failed", "error", err)
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
