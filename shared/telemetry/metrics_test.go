package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func TestSetup_ExposesInstruments(t *testing.T) {
	provider, err := Setup("occupancy-test", "0.0.1")
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	counter, err := otel.Meter("telemetry-test").Int64Counter(
		"occupancy.test.frames",
		metric.WithDescription("frames seen by the test"),
	)
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	provider.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "occupancy_test_frames_total")
	assert.Contains(t, body, "go_goroutines")
}
