package server

import (
	"os"
	"time"

	cblog "github.com/charmbracelet/log"
)

// Shared app logger for the dashboard server package.
var logger = cblog.NewWithOptions(os.Stderr, cblog.Options{
	ReportTimestamp: true,
	TimeFormat:      time.RFC3339,
	ReportCaller:    false,
})

// Call this once after reading config.
func configureLogger(logLevel string) {
	switch logLevel {
	case "debug":
		logger.SetLevel(cblog.DebugLevel)
		logger.SetReportCaller(true)
	case "info":
		logger.SetLevel(cblog.InfoLevel)
	case "warn":
		logger.SetLevel(cblog.WarnLevel)
	default:
		logger.SetLevel(cblog.ErrorLevel)
	}
}
