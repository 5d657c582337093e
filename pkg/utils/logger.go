package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger writing to stderr, so command output on stdout stays parseable.
// When debug is true it uses the development config (console, debug level); otherwise the
// production config (JSON, info level) without stack traces.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !debug
	return cfg.Build()
}

// NewQuietLogger returns a production logger that only reports warnings and errors. One-shot
// commands use it so progress lines do not drown the report.
func NewQuietLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}
