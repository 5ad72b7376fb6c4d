package logging

import (
	"log/slog"
)

// SetupRPCMode initializes logging for the stdio JSON-RPC daemon.
// Diagnostics go to the log file only, never to stdout or stderr: stdout
// carries the JSON-RPC response stream, and any stray write to either
// stream would corrupt framing and the client would see a dead connection.
func SetupRPCMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("rpc mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}

// SetupRPCModeWithLevel initializes daemon logging at a specific level.
func SetupRPCModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
