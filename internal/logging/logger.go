package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu            sync.RWMutex
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels  = make(map[string]*slog.LevelVar)
	globalConfig  Config
	globalLevel   = &slog.LevelVar{}
	initialized   bool
)

// Initialize sets up the logging system and retunes any module loggers
// created before it ran.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig = config
	initialized = true

	level, ok := parseLevel(config.Level)
	if !ok {
		level = slog.LevelInfo
	}
	globalLevel.Set(level)

	for module, levelVar := range moduleLevels {
		levelVar.Set(moduleLevel(module, level))
		moduleLoggers[module] = slog.New(newHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandler(config.Format, globalLevel)))
}

// GetLogger returns a logger for the specified module, creating it if
// needed. Loggers created before Initialize start at info level and are
// retuned when Initialize runs.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if initialized {
		base, ok := parseLevel(globalConfig.Level)
		if !ok {
			base = slog.LevelInfo
		}
		levelVar.Set(moduleLevel(module, base))
		format = globalConfig.Format
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(newHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// moduleLevel resolves the effective level for a module. Callers hold mu.
func moduleLevel(module string, base slog.Level) slog.Level {
	if s, ok := globalConfig.Modules[module]; ok {
		if level, ok := parseLevel(s); ok {
			return level
		}
	}
	return base
}

// newHandler builds the output chain for one logger: stdout when it is
// connected to something useful, the journal when journald is running.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if stdoutUsable() {
		handlers = append(handlers, stdout)
	}
	if journalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return stdout
	case 1:
		return handlers[0]
	default:
		return newMultiHandler(handlers...)
	}
}

// stdoutUsable reports whether stdout points at a terminal, pipe, socket,
// or regular file rather than /dev/null.
func stdoutUsable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 ||
		mode&os.ModeSocket != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
