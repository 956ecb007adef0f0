package internal

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// InitLogger initializes the logger with optional file output.
// Diagnostics go to stderr by default; the report owns stdout.
func InitLogger(logfile, level string) {
	logrus.SetFormatter(newFormatter(logfile, os.Stderr))
	logrus.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
		logrus.Warnf("Unknown log level %q, using %s", level, lvl)
	}
	logrus.SetLevel(lvl)

	if logfile != "" {
		file, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			logrus.SetOutput(file)
		} else {
			logrus.WithError(err).Warn("Failed to open log file, logging to stderr")
		}
	}
}

// newFormatter colours levels only when logs land on a terminal.
func newFormatter(logfile string, stderr *os.File) *logrus.TextFormatter {
	fd := stderr.Fd()
	return &logrus.TextFormatter{
		ForceColors:   logfile == "" && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)),
		FullTimestamp: true,
		DisableQuote:  true,
		PadLevelText:  true,
	}
}
