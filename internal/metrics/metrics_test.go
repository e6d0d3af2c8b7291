package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRecognition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRecognition("vendedor", time.Now(), nil)
	m.ObserveRecognition("vendedor", time.Now(), errors.New("timeout"))
	m.ObserveRecognition("ficha", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecognitionsTotal.WithLabelValues("vendedor", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecognitionsTotal.WithLabelValues("vendedor", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecognitionsTotal.WithLabelValues("ficha", OutcomeSuccess)))
}

func TestObserveRenderAndFields(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRender("dossier", time.Now(), nil)
	m.ObserveFieldWrites(10, 2, 1)
	m.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RendersTotal.WithLabelValues("dossier", OutcomeSuccess)))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.FieldWritesTotal.WithLabelValues("written")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FieldWritesTotal.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldWritesTotal.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRender("contract", time.Now(), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vtd_renders_total{document="contract",outcome="success"} 1`)
}
