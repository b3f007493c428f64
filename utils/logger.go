package utils

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	logMu  sync.RWMutex
)

func init() {
	InitLogger("info", "console", os.Stderr)
}

// InitLogger configures the global logger. format is "json" or "console".
func InitLogger(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logMu.Lock()
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "urbansetu").Logger()
	logMu.Unlock()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	l := logger
	return &l
}

func Info() *zerolog.Event  { return Logger().Info() }
func Warn() *zerolog.Event  { return Logger().Warn() }
func Error() *zerolog.Event { return Logger().Error() }
func Debug() *zerolog.Event { return Logger().Debug() }
