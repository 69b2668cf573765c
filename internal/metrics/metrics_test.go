package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.CropsWritten.Add(3)
	m.JobFinished("succeeded")
	m.JobFinished("succeeded")
	m.JobFinished("failed")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CropsWritten))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Jobs.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Jobs.WithLabelValues("failed")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ImagesProcessed.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "detectcrop_images_processed_total 1")
	assert.Contains(t, string(body), "detectcrop_memory_usage_megabytes")
}
