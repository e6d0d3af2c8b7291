package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/config"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/history"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/httpapi"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/logging"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/mcp"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/metrics"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/ocr"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pdf"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/dossier"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/transfer"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// app holds everything both modes share
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	svc       *transfer.Service
	templates *pdf.TemplateStore
	metrics   *metrics.Metrics
	closers   []func() error
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	templates, err := pdf.NewTemplateStore(cfg.TemplateDirectory, cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open template directory: %w", err)
	}

	var recognizer ocr.Recognizer
	vision, err := ocr.NewVisionRecognizer(ocr.VisionConfig{
		Provider: cfg.OCRProvider,
		Model:    cfg.OCRModel,
		APIKey:   cfg.OpenAIKey,
	}, logger)
	switch {
	case errors.Is(err, ocr.ErrMissingAPIKey):
		// rendering, sharing and history do not need the vision model
		logger.WithError(err).Warn("Document recognition disabled")
		recognizer = ocr.Unavailable(err)
	case err != nil:
		return nil, err
	default:
		recognizer = vision
	}

	a := &app{
		cfg:       cfg,
		log:       logger,
		templates: templates,
		metrics:   metrics.New(nil),
	}

	deps := transfer.Deps{
		Recognizer: recognizer,
		Templates:  templates,
		Metrics:    a.metrics,
		Logger:     logger,
		Timeout:    cfg.OCRTimeout,
		Dossier: dossier.Options{
			AgentNIF:         cfg.AgentNIF,
			AgencyNIF:        cfg.AgencyNIF,
			LocalDivisionKey: cfg.DivisionKey,
		},
	}

	if cfg.HistoryEnabled() {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		deps.History = store
		a.closers = append(a.closers, store.Close)
		logger.WithField("path", cfg.HistoryDB).Info("History enabled")
	}

	a.svc = transfer.New(deps)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("Error during shutdown")
		}
	}
}

// pruneSessions drops sessions idle for longer than the configured TTL
func (a *app) pruneSessions(ctx context.Context) {
	interval := a.cfg.SessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.svc.PruneSessions(a.cfg.SessionTTL); n > 0 {
				a.log.WithField("pruned", n).Debug("Pruned idle sessions")
			}
		}
	}
}

// runServerMode serves the HTTP API until a signal arrives
func runServerMode(ctx context.Context, cancel context.CancelFunc, a *app) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	handler := httpapi.New(a.svc, a.metrics, a.cfg.MaxFileSize, a.cfg.Version, a.log)
	srv := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.pruneSessions(ctx)

	serverErrCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", srv.Addr).Info("Starting HTTP server")
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-signalCh:
		a.log.WithField("signal", sig.String()).Info("Initiating graceful shutdown...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	a.log.Info("Server stopped successfully")
	return nil
}

// runStdioMode serves MCP on stdin/stdout; the parent process controls our lifecycle
func runStdioMode(ctx context.Context, a *app) error {
	server, err := mcp.NewServer(a.cfg, a.svc, a.templates, a.log)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	go a.pruneSessions(ctx)
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	logger.WithField("config", cfg.String()).Debug("Starting with configuration")

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		err = runServerMode(ctx, cancel, a)
	} else {
		err = runStdioMode(ctx, a)
	}
	if err != nil {
		logger.WithError(err).Error("Exiting")
		a.close()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Vehicle Transfer Documents\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
