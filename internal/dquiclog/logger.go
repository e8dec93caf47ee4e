// Package dquiclog provides the leveled, colorized console logging used
// across the engine and the demo client/server, built on logrus.
package dquiclog

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger with the engine's field conventions.
type Logger struct {
	*logrus.Logger
}

var std = New()

// New builds a Logger with the teacher's default shape: colored text
// output, a short timestamp, info level.
func New() *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return &Logger{Logger: l}
}

// Default returns the package-level default logger.
func Default() *Logger { return std }

// SetLevel sets the minimum level of the default logger. name is one of
// "debug", "info", "warn", "error".
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	std.SetLevel(lvl)
}

// WithConn returns an entry pre-populated with the connection's peer
// address and id, so per-connection logs don't repeat themselves.
func (l *Logger) WithConn(peer string, connID int) *logrus.Entry {
	return l.WithFields(logrus.Fields{"peer": peer, "conn_id": connID})
}

// Section prints a boxed section header, matching the teacher's
// pkg/logger.Section. This is startup/banner decoration, not a log
// record, so it writes straight to stdout rather than through logrus.
func Section(title string) {
	border := "==================================================="
	fmt.Printf("\n+%s+\n| %-51s |\n+%s+\n\n", border, title, border)
}

// Banner prints the demo binaries' startup banner.
func Banner(title, version string) {
	fmt.Printf("\n--- %s (v%s) ---\n\n", title, version)
}
