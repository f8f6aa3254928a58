// Package mlog wraps zerolog with the level-selection precedence used
// across this module's command-line tools: an explicit flag, then an
// environment variable, then a fixed default.
package mlog

import (
	"flag"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const envLogLevel = "MKVMUX_LOG_LEVEL"

var (
	flagLevel = flag.String("log.level", "", "log level (trace, debug, info, warn, error)")
	global    zerolog.Logger
	initOnce  sync.Once
)

// Init builds the process-wide logger. Safe to call multiple times;
// only the first call takes effect.
func Init() {
	initOnce.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		global = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(detectLevel())
	})
}

// detectLevel resolves the initial log level from (high to low
// precedence): the -log.level flag, the MKVMUX_LOG_LEVEL environment
// variable, and finally zerolog.InfoLevel.
func detectLevel() zerolog.Level {
	if *flagLevel == "" {
		for _, arg := range os.Args[1:] {
			if strings.HasPrefix(arg, "-log.level=") {
				*flagLevel = strings.SplitN(arg, "=", 2)[1]
			}
		}
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(*flagLevel))); err == nil && *flagLevel != "" {
		return lvl
	}
	if env := os.Getenv(envLogLevel); env != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(env))); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}

// Logger returns the process-wide logger, initializing it on first use.
func Logger() *zerolog.Logger {
	Init()
	return &global
}

// With returns a child logger scoped to a named component, e.g.
// mlog.With("cluster-helper").
func With(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
