package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled          bool
	LogFullSQL       bool          // Include full SQL in spans (dev only)
	SlowQueryThresh  time.Duration // Default: 200ms
	DBSystem         string        // Default: "postgresql"
	WithoutVariables bool          // Exclude bind variables from the recorded SQL
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin wraps the otelgorm plugin and layers slow query detection
// on top of it, so that a reconciliation run or posting batch that drags
// shows up as a flagged span rather than an unexplained gap in the trace.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers the otelgorm plugin with the given GORM DB
// instance, plus callbacks for slow query detection and error marking.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		// Bind variables carry vendor and amount data; keep them out of spans
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerBeforeCallbacks(db); err != nil {
		return err
	}
	if err := p.registerSlowQueryCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerBeforeCallbacks stamps the query start time into the statement
// context ahead of every operation type.
func (p *DBTracingPlugin) registerBeforeCallbacks(db *gorm.DB) error {
	beforeCallback := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
		}
	}

	registrations := []struct {
		target callbackRegisterer
		name   string
	}{
		{db.Callback().Create().Before("gorm:create"), "otel_timing:before_create"},
		{db.Callback().Query().Before("gorm:query"), "otel_timing:before_query"},
		{db.Callback().Update().Before("gorm:update"), "otel_timing:before_update"},
		{db.Callback().Delete().Before("gorm:delete"), "otel_timing:before_delete"},
		{db.Callback().Row().Before("gorm:row"), "otel_timing:before_row"},
		{db.Callback().Raw().Before("gorm:raw"), "otel_timing:before_raw"},
	}
	for _, r := range registrations {
		if err := r.target.Register(r.name, beforeCallback); err != nil {
			return err
		}
	}

	return nil
}

// registerSlowQueryCallbacks runs the slow query check after every
// operation type, once otelgorm has opened the span.
func (p *DBTracingPlugin) registerSlowQueryCallbacks(db *gorm.DB) error {
	registrations := []struct {
		target callbackRegisterer
		name   string
	}{
		{db.Callback().Create().After("gorm:create"), "otel_slow_query:create"},
		{db.Callback().Query().After("gorm:query"), "otel_slow_query:query"},
		{db.Callback().Update().After("gorm:update"), "otel_slow_query:update"},
		{db.Callback().Delete().After("gorm:delete"), "otel_slow_query:delete"},
		{db.Callback().Row().After("gorm:row"), "otel_slow_query:row"},
		{db.Callback().Raw().After("gorm:raw"), "otel_slow_query:raw"},
	}
	for _, r := range registrations {
		if err := r.target.Register(r.name, p.slowQueryCallback); err != nil {
			return err
		}
	}

	return nil
}

// slowQueryCallback enriches the active span after each database operation:
// rows affected, table name, error status, and a slow query event when the
// elapsed time crosses the threshold.
func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is an expected outcome, not a span failure
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"
