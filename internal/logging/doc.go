// Package logging provides structured logging with per-module log level
// configuration.
//
// The package wraps Go's slog with automatic output routing: records go to
// the systemd journal when journald is available, to stdout when a
// terminal, pipe, or file is connected, and to both when both are.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"recording": "debug",
//		},
//	})
//
// Then fetch a logger per module:
//
//	logger := logging.GetLogger("recording")
//	logger.Info("Recording started", "location", path)
//
// Module-specific levels override the global level for that module only.
// Levels are adjustable at runtime because every module logger is backed
// by its own slog.LevelVar.
//
// On systems with journald the logs carry SYSLOG_IDENTIFIER=camcorder:
//
//	journalctl -t camcorder -f
//	journalctl -t camcorder MODULE=recording
package logging
