package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// counterValue sums every data point of the named counter collected by reader.
func counterValue(t *testing.T, reader sdkmetric.Reader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 counter", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func newTestMetrics(t *testing.T) (*Metrics, sdkmetric.Reader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetricsWithMeter(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func TestRecordCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBlocked(ctx, "a")
	m.RecordBlocked(ctx, "b")
	m.RecordAutoUnblock(ctx, "a", true)
	m.RecordAdoption(ctx, "a")
	m.RecordSwapOffer(ctx, "a")
	m.RecordSwapCommit(ctx, "a")
	m.RecordRateLimited(ctx, "a", "dwell")
	m.RecordCleaned(ctx, "b", 3)
	m.RecordCleaned(ctx, "b", 0)
	m.RecordReached(ctx, "a", false)
	m.RecordReached(ctx, "a", true)
	m.RecordUnknownReach(ctx, "b")

	assert.Equal(t, int64(2), counterValue(t, reader, "fleetsim.robot.blocked"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.recovery.auto_unblocks"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.recovery.adoptions"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.recovery.swap_offers"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.recovery.swap_commits"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.recovery.rate_limited"))
	assert.Equal(t, int64(3), counterValue(t, reader, "fleetsim.cleanup.removed"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.reach.reported"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.reach.duplicates"))
	assert.Equal(t, int64(1), counterValue(t, reader, "fleetsim.reach.unknown"))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBlocked(context.Background(), "a")
		m.RecordReached(context.Background(), "a", true)
	})
}

func TestNewMetricsOnGlobalProvider(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	assert.NotNil(t, m.SwapCommits)
}
