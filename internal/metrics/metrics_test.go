package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/maynagashev/flowkeeper/internal/metrics"
)

func TestIncrementInsights(t *testing.T) {
	before := testutil.ToFloat64(metrics.InsightsGenerated.WithLabelValues("journal", "failed"))

	metrics.IncrementInsights("journal", errors.New("boom"))
	metrics.IncrementInsights("journal", nil)

	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.InsightsGenerated.WithLabelValues("journal", "failed")), 0.001)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.InsightsGenerated.WithLabelValues("journal", "success")), 1.0)
}

func TestRecordHTTPRequestDuration(t *testing.T) {
	metrics.RecordHTTPRequestDuration("GET", "/api/habits", "200", 15*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.HTTPRequestDuration, "flowkeeper_http_request_duration_seconds"))
}
