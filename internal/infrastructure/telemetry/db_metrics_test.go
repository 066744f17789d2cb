package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testMeter returns a meter backed by a manual reader so tests can pull
// collected datapoints on demand.
func testMeter(t *testing.T, scope string) (*sdkmetric.ManualReader, metric.Meter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider.Meter(scope)
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// findMetric reports whether a metric with the given name was collected.
func findMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

// mockGormDB opens a gorm handle over a sqlmock connection.
func mockGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	_, meter := testMeter(t, "test")

	t.Run("creates all instruments", func(t *testing.T) {
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		assert.NotNil(t, m.poolConnections)
		assert.NotNil(t, m.poolConnectionsMax)
		assert.NotNil(t, m.queryTotal)
		assert.NotNil(t, m.queryDuration)
		assert.NotNil(t, m.slowQueryTotal)
	})

	t.Run("fills in zero config values", func(t *testing.T) {
		m, err := NewDBMetrics(meter, DBMetricsConfig{}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	})

	t.Run("tolerates nil logger", func(t *testing.T) {
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, m.logger)
	})
}

func TestDBMetricsRecordQuery(t *testing.T) {
	ctx := context.Background()

	cases := map[string]struct {
		threshold   time.Duration
		operation   string
		table       string
		duration    time.Duration
		wantMetrics []string
		wantNoSlow  bool
	}{
		"count and latency recorded": {
			threshold:   200 * time.Millisecond,
			operation:   "SELECT",
			table:       "purchase_orders",
			duration:    50 * time.Millisecond,
			wantMetrics: []string{"db_query_total", "db_query_duration_seconds"},
			wantNoSlow:  true,
		},
		"slow query over threshold": {
			threshold:   100 * time.Millisecond,
			operation:   "SELECT",
			table:       "three_way_matches",
			duration:    250 * time.Millisecond,
			wantMetrics: []string{"db_slow_query_total"},
		},
		"lowercase operation normalized": {
			threshold:   200 * time.Millisecond,
			operation:   "select",
			table:       "goods_receipts",
			duration:    10 * time.Millisecond,
			wantMetrics: []string{"db_query_total"},
		},
		"empty operation recorded as unknown": {
			threshold:   200 * time.Millisecond,
			operation:   "",
			table:       "goods_receipts",
			duration:    10 * time.Millisecond,
			wantMetrics: []string{"db_query_total"},
		},
		"slow query with empty table": {
			threshold:   50 * time.Millisecond,
			operation:   "SELECT",
			table:       "",
			duration:    100 * time.Millisecond,
			wantMetrics: []string{"db_slow_query_total"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reader, meter := testMeter(t, "test_"+name)
			m, err := NewDBMetrics(meter, DBMetricsConfig{
				Enabled:            true,
				SlowQueryThreshold: tc.threshold,
			}, zap.NewNop())
			require.NoError(t, err)

			m.RecordQuery(ctx, tc.operation, tc.table, tc.duration, nil)

			rm := collectMetrics(t, reader)
			for _, want := range tc.wantMetrics {
				assert.True(t, findMetric(rm, want), want)
			}
			if tc.wantNoSlow {
				for _, sm := range rm.ScopeMetrics {
					for _, metr := range sm.Metrics {
						if metr.Name == "db_slow_query_total" {
							for _, dp := range metr.Data.(metricdata.Sum[int64]).DataPoints {
								assert.Zero(t, dp.Value, "fast query must not count as slow")
							}
						}
					}
				}
			}
		})
	}
}

func TestDBMetricsPoolStats(t *testing.T) {
	t.Run("collects pool stats periodically", func(t *testing.T) {
		reader, meter := testMeter(t, "test_pool")

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)
		m.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m.StartPoolStatsCollection(ctx)

		time.Sleep(100 * time.Millisecond)
		m.Stop()

		rm := collectMetrics(t, reader)
		assert.True(t, findMetric(rm, "db_pool_connections_max"))
		assert.True(t, findMetric(rm, "db_pool_connections"))
	})

	t.Run("does nothing without a sql db", func(t *testing.T) {
		_, meter := testMeter(t, "test_no_db")
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		m.StartPoolStatsCollection(context.Background())
		m.Stop()
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		_, meter := testMeter(t, "test_ctx_cancel")

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: time.Second,
		}, zap.NewNop())
		require.NoError(t, err)
		m.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		m.StartPoolStatsCollection(ctx)
		cancel()
		m.Stop()
	})
}

func TestDBMetricsStop(t *testing.T) {
	_, meter := testMeter(t, "test_stop")

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	m, err := NewDBMetrics(meter, DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 100 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	m.SetSQLDB(mockDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartPoolStatsCollection(ctx)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked")
	}

	// Repeated Stop must be a no-op, not a double close.
	assert.NotPanics(t, m.Stop)
	assert.NotPanics(t, m.Stop)
}

func TestDBMetricsPlugin(t *testing.T) {
	_, meter := testMeter(t, "test_plugin")
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	plugin := NewDBMetricsPlugin(m, zap.NewNop())
	assert.Equal(t, "db_metrics", plugin.Name())

	require.NoError(t, plugin.Initialize(mockGormDB(t)))
}

func TestDetectOperationType(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM vendor_bills":                                          "SELECT",
		"select id from vendor_bills":                                         "SELECT",
		"  SELECT id FROM purchase_orders":                                    "SELECT",
		"INSERT INTO goods_receipts (receipt_number) VALUES ('GR-2024-00042')": "INSERT",
		"UPDATE three_way_matches SET status = 'approved'":                    "UPDATE",
		"delete from outbox_entries":                                          "DELETE",
		"CREATE TABLE payments":                                               "OTHER",
		"TRUNCATE TABLE ledger_entries":                                       "OTHER",
		"": "OTHER",
	}

	for sql, want := range cases {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	logger := zap.NewNop()

	t.Run("disabled config yields nil", func(t *testing.T) {
		m, err := RegisterDBMetrics(mockGormDB(t), nil, DBMetricsConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("nil meter provider yields nil", func(t *testing.T) {
		m, err := RegisterDBMetrics(mockGormDB(t), nil, DBMetricsConfig{Enabled: true}, logger)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("registers against gorm when enabled", func(t *testing.T) {
		sdkProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
		defer sdkProvider.Shutdown(context.Background())

		mp := &MeterProvider{
			provider: sdkProvider,
			logger:   logger,
			config:   MetricsConfig{Enabled: true},
		}

		m, err := RegisterDBMetrics(mockGormDB(t), mp, DefaultDBMetricsConfig(), logger)
		require.NoError(t, err)
		require.NotNil(t, m)
	})
}

func TestDBMetricsConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	reader, meter := testMeter(t, "test_concurrent")

	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	operations := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	tables := []string{"purchase_orders", "goods_receipts", "vendor_bills", "ledger_entries"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordQuery(ctx, operations[i%4], tables[i%4], time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	rm := collectMetrics(t, reader)
	assert.True(t, findMetric(rm, "db_query_total"))
}

func TestDBMetricsMeterScope(t *testing.T) {
	reader, meter := testMeter(t, "procureflow.db.meter")

	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)
	m.RecordQuery(context.Background(), "SELECT", "vendor_bills", 10*time.Millisecond, nil)

	rm := collectMetrics(t, reader)
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name == "procureflow.db.meter" {
			assert.NotEmpty(t, sm.Metrics)
			return
		}
	}
	t.Error("metrics not found under expected meter scope")
}
