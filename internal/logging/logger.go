package logging

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Log is the shared application logger. It writes to stderr so command
// output (tables, CSV) stays clean on stdout.
var Log *logrus.Logger

func init() {
	Log = logrus.New()
	if os.Getenv("MAILATTIC_LOG_FORMAT") == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	Log.SetOutput(os.Stderr)
	Log.SetLevel(logrus.InfoLevel)
}

// SetVerbose lowers the level to debug for per-item diagnostics.
func SetVerbose(verbose bool) {
	if verbose {
		Log.SetLevel(logrus.DebugLevel)
	}
}
