// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/config"
)

// New returns a logger for cfg. In stdio mode stdout carries the MCP
// stream, so logs go to stderr and only warnings are kept unless debug
// logging was requested.
func New(cfg *config.Config) (*logrus.Logger, error) {
	var out io.Writer = os.Stdout
	if cfg.IsStdioMode() {
		out = os.Stderr
	}
	return newLogger(cfg, out)
}

func newLogger(cfg *config.Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.IsStdioMode() && level > logrus.WarnLevel && level != logrus.DebugLevel {
		level = logrus.WarnLevel
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    cfg.IsStdioMode(),
		QuoteEmptyFields: true,
	})
	if cfg.IsDebug() && cfg.IsServerMode() {
		logger.SetReportCaller(true)
	}
	return logger, nil
}
