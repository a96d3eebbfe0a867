// Command ringroad runs a Nagel-Schreckenberg traffic simulation on a
// periodic single-lane road and stores every snapshot in the configured
// backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ringroad/nasch/internal/api"
	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/dispatcher"
	"github.com/ringroad/nasch/internal/engine"
	"github.com/ringroad/nasch/internal/influx"
	"github.com/ringroad/nasch/internal/logging"
	"github.com/ringroad/nasch/internal/monitor"
	"github.com/ringroad/nasch/internal/otel"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
)

// AppName names the binary, its log files and its OTel service.
const AppName = "ringroad"

// influxBuffer is the queue size of the influx sink.
const influxBuffer = 256

var (
	SessionStartTime time.Time

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager
	Logger      = slog.Default()

	// ZeroLogger serves the database and influx managers
	ZeroLogger = zerolog.Nop()

	LogFile      *os.File
	otelProvider *otel.Provider
	closers      []func() error
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one simulation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	SessionStartTime = time.Now()

	err := simulate(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "simulation error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Simulation successful")
	fmt.Fprintf(stdout, "Duration: %d ms\n", time.Since(SessionStartTime).Milliseconds())
	return 0
}

func configFileName() string {
	return config.FileName
}

func loadConfig(fs *pflag.FlagSet) (warning error, err error) {
	viper.Reset()

	configDir, _ := fs.GetString("config-dir")
	if configDir == "" {
		configDir = executableDir()
	}
	if loadErr := config.Load(configDir); loadErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(loadErr, &notFound) {
			return nil, loadErr
		}
		warning = loadErr
	}

	if err := config.BindFlags(fs); err != nil {
		return warning, err
	}
	return warning, nil
}

func simulate(args []string, stderr io.Writer) (err error) {
	fs, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	configWarning, err := loadConfig(fs)
	if err != nil {
		return err
	}

	params := config.GetSimulationParameters()
	params.Workers = workerCount(fs, params.Workers)
	if params.Seed == 0 {
		params.Seed = SessionStartTime.UnixNano()
	}
	if err := params.Validate(); err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, shutdown())
	}()
	if err := setupLogging(); err != nil {
		return err
	}

	if configWarning != nil {
		Logger.Warn("Config file not found, using defaults", "error", configWarning)
	}

	runID := uuid.New().String()
	SlogManager.SetContext(slog.String("run", runID))

	backend, err := initStorage(config.GetStorageConfig())
	if err != nil {
		return err
	}
	closers = append(closers, backend.Close)

	simRun := &core.Run{
		ID:         runID,
		StartTime:  SessionStartTime,
		Parameters: params,
	}
	if err := backend.StartRun(simRun); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	Logger.Info("Run started", "seed", params.Seed, "workers", params.Workers, "storage", config.GetString("storage.type"))

	d, err := newDispatcher(backend)
	if err != nil {
		return err
	}

	monitorCfg := config.GetMonitorConfig()
	statusMonitor := monitor.NewService(monitor.Dependencies{
		Logger:     Logger,
		Iterations: params.Iterations,
		Interval:   monitorCfg.Interval,
		StatusPath: monitorCfg.StatusFile,
	})
	d.Register("monitor", statusMonitor)
	if err := statusMonitor.Start(); err != nil {
		_ = d.Close()
		return err
	}
	defer statusMonitor.Stop()

	eng, err := engine.New(params, rand.New(rand.NewSource(params.Seed)),
		engine.WithLogger(Logger),
		engine.WithRunID(simRun.ID),
	)
	if err != nil {
		_ = d.Close()
		return err
	}

	runErr := eng.Run(d)
	if closeErr := d.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return runErr
	}

	if err := backend.EndRun(); err != nil {
		return fmt.Errorf("ending run: %w", err)
	}
	if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		Logger.Info("Run exported", "path", exp.ExportedFilePath())
		return uploadExport(exp.ExportedFilePath(), *simRun)
	}
	return nil
}

// uploadExport posts the exported file to the results server when enabled.
func uploadExport(path string, r core.Run) error {
	uploadCfg := config.GetUploadConfig()
	if !uploadCfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := api.New(uploadCfg.URL, uploadCfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("results server unavailable: %w", err)
	}
	if err := client.Upload(ctx, path, r, uploadCfg.Tag); err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	Logger.Info("Run uploaded", "url", uploadCfg.URL, "file", path)
	return nil
}

// newDispatcher registers the storage backend and, when enabled, the
// influx performance sink.
func newDispatcher(backend storage.Backend) (*dispatcher.Dispatcher, error) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(ZeroLogger))
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	d.Register("storage", storage.Sink{Backend: backend})

	influxCfg := config.GetInfluxConfig()
	if !influxCfg.Enabled {
		return d, nil
	}
	mgr := influx.NewManager(influxCfg, ZeroLogger)
	if err := mgr.Connect(context.Background()); err != nil {
		Logger.Warn("InfluxDB unavailable, performance points disabled", "error", err)
		_ = mgr.Close()
		return d, nil
	}
	closers = append(closers, mgr.Close)
	d.Register("influx", mgr, dispatcher.Buffered(influxBuffer))
	return d, nil
}

// shutdown releases everything opened for the run in reverse order.
func shutdown() error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	closers = nil

	if otelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, otelProvider.Shutdown(ctx))
		otelProvider = nil
	}
	if LogFile != nil {
		errs = append(errs, LogFile.Close())
		LogFile = nil
	}
	if SlogManager != nil {
		SlogManager.SetContext()
	}
	return errors.Join(errs...)
}
