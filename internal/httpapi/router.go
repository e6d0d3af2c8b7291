// Package httpapi exposes the transfer service over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/metrics"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/transfer"
)

// multipart bodies above this size are spooled to disk
const maxMemory = 32 << 20

// Handler serves the HTTP API
type Handler struct {
	svc       *transfer.Service
	metrics   *metrics.Metrics
	maxUpload int64
	version   string
	log       *logrus.Entry
}

// New creates a handler. maxUpload bounds each uploaded image.
func New(svc *transfer.Service, m *metrics.Metrics, maxUpload int64, version string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		svc:       svc,
		metrics:   m,
		maxUpload: maxUpload,
		version:   version,
		log:       logger.WithField("component", "http"),
	}
}

// NewRouter wires all endpoints with middleware
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", h.handleProcess)
		r.Post("/process-image", h.handleProcessImage)
		r.Post("/generate-pdf", h.handleGeneratePDF)
		r.Post("/generate-xml", h.handleGenerateXML)

		r.Post("/share", h.handleShare)
		r.Get("/share/{blob}", h.handleLoadShare)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Patch("/", h.handleUpdateSession)
			r.Delete("/", h.handleDeleteSession)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.handleListHistory)
			r.Post("/", h.handleSaveHistory)
			r.Delete("/", h.handleClearHistory)
			r.Get("/{id}", h.handleGetHistory)
			r.Delete("/{id}", h.handleDeleteHistory)
		})
	})

	return r
}

func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
			}).Info("Request handled")
		})
	}
}
