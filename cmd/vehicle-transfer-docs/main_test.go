package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/config"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/ocr"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/dossier"
)

const testVersion = "1.2.3"

func capturePrintVersion(t *testing.T) string {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	version = testVersion
	buildTime = "2025-03-05_10:30:00"
	gitCommit = "abc123"

	output := capturePrintVersion(t)

	expectedStrings := []string{
		"Vehicle Transfer Documents",
		"Version: " + testVersion,
		"Build Time: 2025-03-05_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	output := capturePrintVersion(t)

	for _, expected := range []string{"Version: dev", "Build Time: unknown", "Git Commit: unknown"} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.TemplateDirectory = t.TempDir()
	cfg.OpenAIKey = "sk-test"
	cfg.LogLevel = "error"
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewApp_WithoutHistory(t *testing.T) {
	a, err := newApp(testAppConfig(t), quietLogger())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	if len(a.closers) != 0 {
		t.Errorf("newApp() without history registered %d closers", len(a.closers))
	}
	if _, err := a.svc.ListHistory(context.Background()); err == nil {
		t.Error("ListHistory() should fail when history is disabled")
	}
}

func TestNewApp_WithHistory(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.HistoryDB = filepath.Join(t.TempDir(), "data", "history.db")

	a, err := newApp(cfg, quietLogger())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	ctx := context.Background()
	if _, err := a.svc.SaveHistory(ctx, records.Bundle{Seller: records.PersonRecord{FullName: "ANA"}}); err != nil {
		t.Fatalf("SaveHistory() error = %v", err)
	}
	items, err := a.svc.ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("ListHistory() returned %d items, want 1", len(items))
	}
	if _, err := os.Stat(cfg.HistoryDB); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

func TestNewApp_WithoutAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := testAppConfig(t)
	cfg.OpenAIKey = ""

	a, err := newApp(cfg, quietLogger())
	if err != nil {
		t.Fatalf("newApp() without an API key error = %v", err)
	}
	defer a.close()

	ctx := context.Background()
	_, err = a.svc.ProcessImage(ctx, records.RoleSeller, []byte("photo"))
	if !errors.Is(err, ocr.ErrUnreachable) {
		t.Errorf("ProcessImage() error = %v, want %v", err, ocr.ErrUnreachable)
	}

	b := records.Bundle{Vehicle: records.VehicleRecord{Plate: "1234ABC"}}
	if _, err := a.svc.RenderDossier(ctx, b, dossier.Options{}); err != nil {
		t.Errorf("RenderDossier() without an API key error = %v", err)
	}
}

func TestNewApp_UnsupportedProvider(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.OCRProvider = "tesseract"

	if _, err := newApp(cfg, quietLogger()); err == nil {
		t.Error("newApp() should reject an unsupported provider")
	}
}

func TestPruneSessionsStopsOnCancel(t *testing.T) {
	a, err := newApp(testAppConfig(t), quietLogger())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.pruneSessions(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("pruneSessions() did not return after cancel")
	}
}
