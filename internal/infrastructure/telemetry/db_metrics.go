package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig controls query and connection pool instrumentation.
type DBMetricsConfig struct {
	Enabled bool
	// Queries slower than this count toward db_slow_query_total (default 200ms).
	SlowQueryThreshold time.Duration
	// How often connection pool stats are sampled (default 15s).
	PoolStatsInterval time.Duration
}

func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics holds the connection pool and query instruments for the
// Postgres store behind the procurement and ledger repositories.
type DBMetrics struct {
	poolConnections    *Gauge // db_pool_connections with state label
	poolConnectionsMax *Gauge // db_pool_connections_max

	queryTotal     *Counter   // db_query_total
	queryDuration  *Histogram // db_query_duration_seconds
	slowQueryTotal *Counter   // db_slow_query_total

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewDBMetrics builds the database instruments on the given meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval == 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	var err error
	newGauge := func(name, desc string) *Gauge {
		if err != nil {
			return nil
		}
		var g *Gauge
		g, err = NewGauge(meter, name, desc, "{connection}")
		return g
	}
	newCounter := func(name, desc string) *Counter {
		if err != nil {
			return nil
		}
		var c *Counter
		c, err = NewCounter(meter, name, desc, "{query}")
		return c
	}

	m.poolConnections = newGauge("db_pool_connections", "Number of connections in the pool by state")
	m.poolConnectionsMax = newGauge("db_pool_connections_max", "Maximum number of connections in the pool")
	m.queryTotal = newCounter("db_query_total", "Total number of database queries by operation type")
	m.slowQueryTotal = newCounter("db_slow_query_total", "Total number of slow database queries")
	if err != nil {
		return nil, err
	}

	m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SetSQLDB hands over the sql.DB whose pool will be sampled. Must be
// called before StartPoolStatsCollection.
func (m *DBMetrics) SetSQLDB(sqlDB *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqlDB = sqlDB
}

// StartPoolStatsCollection samples connection pool stats on a ticker
// until Stop is called or the context ends.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()

	if sqlDB == nil {
		m.logger.Warn("pool stats collection skipped, sql db not set")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.logger.Info("pool stats collection started",
		zap.Duration("interval", m.config.PoolStatsInterval),
	)
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()

	if sqlDB == nil {
		return
	}

	stats := sqlDB.Stats()
	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))

	// OpenConnections = Idle + InUse. WaitCount is cumulative, not a
	// current state, so it is not recorded here.
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop terminates the sampling goroutine. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.logger.Debug("database metrics stopped")
	})
}

// RecordQuery records count, latency, and slow-query metrics for one query.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// DBMetricsPlugin is a GORM plugin that times every statement.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{metrics: metrics, logger: logger}
}

func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize registers the GORM callbacks for metrics collection.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	if err := p.registerBeforeCallbacks(db); err != nil {
		return err
	}
	if err := p.registerAfterCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("database metrics plugin initialized")
	return nil
}

// registerBeforeCallbacks stamps the query start time into the statement
// context ahead of every operation type.
func (p *DBMetricsPlugin) registerBeforeCallbacks(db *gorm.DB) error {
	beforeCallback := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbMetricsStartTimeKey, time.Now())
	}

	registrations := []struct {
		target callbackRegisterer
		name   string
	}{
		{db.Callback().Create().Before("gorm:create"), "db_metrics:before_create"},
		{db.Callback().Query().Before("gorm:query"), "db_metrics:before_query"},
		{db.Callback().Update().Before("gorm:update"), "db_metrics:before_update"},
		{db.Callback().Delete().Before("gorm:delete"), "db_metrics:before_delete"},
		{db.Callback().Row().Before("gorm:row"), "db_metrics:before_row"},
		{db.Callback().Raw().Before("gorm:raw"), "db_metrics:before_raw"},
	}
	for _, r := range registrations {
		if err := r.target.Register(r.name, beforeCallback); err != nil {
			return err
		}
	}

	return nil
}

// callbackRegisterer matches the registration point returned by gorm's
// callback Before/After chain.
type callbackRegisterer interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerAfterCallbacks records metrics once each operation completes.
func (p *DBMetricsPlugin) registerAfterCallbacks(db *gorm.DB) error {
	// Row and Raw don't know their operation type; sniff it from the SQL
	rawCallback := func(db *gorm.DB) {
		operation := detectOperationType(db.Statement.SQL.String())
		p.recordMetrics(db, operation)
	}

	registrations := []struct {
		target   callbackRegisterer
		name     string
		callback func(*gorm.DB)
	}{
		{db.Callback().Create().After("gorm:create"), "db_metrics:after_create", func(db *gorm.DB) { p.recordMetrics(db, "INSERT") }},
		{db.Callback().Query().After("gorm:query"), "db_metrics:after_query", func(db *gorm.DB) { p.recordMetrics(db, "SELECT") }},
		{db.Callback().Update().After("gorm:update"), "db_metrics:after_update", func(db *gorm.DB) { p.recordMetrics(db, "UPDATE") }},
		{db.Callback().Delete().After("gorm:delete"), "db_metrics:after_delete", func(db *gorm.DB) { p.recordMetrics(db, "DELETE") }},
		{db.Callback().Row().After("gorm:row"), "db_metrics:after_row", rawCallback},
		{db.Callback().Raw().After("gorm:raw"), "db_metrics:after_raw", rawCallback},
	}
	for _, r := range registrations {
		if err := r.target.Register(r.name, r.callback); err != nil {
			return err
		}
	}

	return nil
}

func (p *DBMetricsPlugin) recordMetrics(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var duration time.Duration
	if startTime, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
		duration = time.Since(startTime)
	}

	p.metrics.RecordQuery(ctx, operation, db.Statement.Table, duration, db.Error)
}

// detectOperationType sniffs the operation from raw SQL text.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	default:
		return "OTHER"
	}
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "db_metrics_start_time"

// RegisterDBMetrics creates the database instruments and installs the
// GORM plugin. The returned DBMetrics owns the pool sampling goroutine;
// call Stop on shutdown. Returns nil when metrics are off.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled {
		logger.Debug("database metrics disabled")
		return nil, nil
	}
	if meterProvider == nil || !meterProvider.IsEnabled() {
		logger.Debug("meter provider unavailable, database metrics skipped")
		return nil, nil
	}

	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}

	// Pool stats come straight from database/sql
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics.SetSQLDB(sqlDB)

	if err := db.Use(NewDBMetricsPlugin(metrics, logger)); err != nil {
		return nil, err
	}

	logger.Info("database metrics registered",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", cfg.PoolStatsInterval),
	)

	return metrics, nil
}
