package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersIndependently(t *testing.T) {
	a := New(nil)
	b := New(nil)

	a.CalculationsTotal.WithLabelValues("low").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CalculationsTotal.WithLabelValues("low")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CalculationsTotal.WithLabelValues("low")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ConversionsTotal.Inc()
	m.TableEntries.Set(14)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mme_conversions_total 1")
	assert.Contains(t, string(body), "mme_conversion_table_entries 14")
}
