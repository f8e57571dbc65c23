package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Observe("assign_book", ResultOK)
	r.Observe("assign_book", ResultOK)
	r.Observe("assign_book", ResultConflict)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Operations().WithLabelValues("assign_book", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Operations().WithLabelValues("assign_book", ResultConflict)))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `tracker_operations_total{operation="assign_book",result="conflict"} 1`)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Observe("x", ResultOK) })
}
