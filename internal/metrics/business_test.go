package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "events", "publish", "success")
	bm.RecordOperation(ctx, "events", "publish", "success")
	bm.RecordOperation(ctx, "events", "publish", "error")
	bm.RecordOperation(ctx, "subscriptions", "subscribe", "success")
	bm.RecordDuration(ctx, "events", "publish", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "events", "publish", 60*time.Millisecond, "success")

	output := scrape(t, provider)

	assertMetricLine(t, output, `integration_test_operations_total`,
		`domain="events".*operation="publish".*status="success"`, `2`)
	assertMetricLine(t, output, `integration_test_operations_total`,
		`domain="events".*operation="publish".*status="error"`, `1`)
	assertMetricLine(t, output, `integration_test_operations_total`,
		`domain="subscriptions".*operation="subscribe".*status="success"`, `1`)
	assertMetricLine(t, output, `integration_test_operation_duration_seconds_count`,
		`domain="events".*operation="publish".*status="success"`, `2`)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	noOp := NewNoOpBusinessMetrics()
	assert.IsType(t, &NoOpBusinessMetrics{}, noOp)

	assert.NotPanics(t, func() {
		noOp.RecordOperation(context.Background(), "events", "publish", "success")
		noOp.RecordDuration(context.Background(), "events", "publish", time.Millisecond, "error")
	})
}
