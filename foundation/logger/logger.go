package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. An empty logDirectory logs to stdout,
// otherwise to <logDirectory>/<service>.log.
func New(logDirectory string, service string, debug bool) (*zap.SugaredLogger, error) {
	outputPath := "stdout"

	if logDirectory != "" {
		if _, err := os.Stat(logDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(logDirectory, os.ModePerm); err != nil {
				return nil, err
			}
		}
		outputPath = filepath.Join(logDirectory, service+".log")
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{outputPath}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = false
	config.InitialFields = map[string]any{"service": service}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}
