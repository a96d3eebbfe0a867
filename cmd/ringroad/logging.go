package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/logging"
	"github.com/ringroad/nasch/internal/otel"
)

// setupLogging opens the session log file and wires slog, zerolog, OTel and
// Graylog according to the configuration.
func setupLogging() error {
	level := viper.GetString("logLevel")
	logsDir := viper.GetString("logsDir")

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	// keep the previous log of the same second
	if _, err := os.Stat(logFilePath); err == nil {
		_ = os.Rename(logFilePath, logFilePath+".old")
	}
	file, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", logFilePath, err)
	}
	LogFile = file

	otelCfg := config.GetOTelConfig()
	otelProvider, err = otel.New(otel.FromConfig(otelCfg, file))
	if err != nil {
		return fmt.Errorf("failed to initialize OTel: %w", err)
	}

	var extra []io.Writer
	zeroWriters := []io.Writer{logging.ConsoleWriter(file)}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		gw, err := logging.NewGelfWriter(graylogCfg.Address, AppName)
		if err != nil {
			return err
		}
		extra = append(extra, gw)
		zeroWriters = append(zeroWriters, gw)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(file, level, otelProvider.LoggerProvider(), extra...)
	Logger = SlogManager.Logger()
	ZeroLogger = logging.NewZerolog(zerolog.MultiLevelWriter(zeroWriters...), level)

	Logger.Info("Logging to file", "path", logFilePath)
	if otelProvider.Enabled() {
		Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}
	if graylogCfg.Enabled {
		Logger.Info("Graylog logging enabled", "address", graylogCfg.Address)
	}
	return nil
}
