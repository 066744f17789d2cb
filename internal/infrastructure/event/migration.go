package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MigrationResult holds the result of a batch migration
type MigrationResult struct {
	EventType      string
	TotalProcessed int
	Upgraded       int
	AlreadyCurrent int
	Failed         int
	FailedPayloads []FailedMigration
	StartedAt      time.Time
	CompletedAt    time.Time
	FromVersion    int
	ToVersion      int
}

// FailedMigration holds information about a failed migration
type FailedMigration struct {
	Payload []byte
	Error   string
	Version int
}

// Duration returns the migration duration
func (r *MigrationResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// EventMigrator upgrades stored event payloads to their current schema
// version. It is used for batch-migrating outbox entries that were written
// before a schema change.
type EventMigrator struct {
	serializer *VersionedSerializer
	logger     *zap.Logger
}

// NewEventMigrator creates a new event migrator
func NewEventMigrator(serializer *VersionedSerializer, logger *zap.Logger) *EventMigrator {
	return &EventMigrator{serializer: serializer, logger: logger}
}

// MigratePayloads migrates a batch of event payloads to the current version
func (m *EventMigrator) MigratePayloads(ctx context.Context, eventType string, payloads [][]byte) (*MigrationResult, error) {
	currentVersion, ok := m.serializer.GetCurrentVersion(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	result := &MigrationResult{
		EventType:      eventType,
		ToVersion:      currentVersion,
		StartedAt:      time.Now(),
		FailedPayloads: make([]FailedMigration, 0),
	}

	for _, payload := range payloads {
		if err := ctx.Err(); err != nil {
			result.CompletedAt = time.Now()
			return result, err
		}

		result.TotalProcessed++

		version := ExtractVersion(payload)
		if result.FromVersion == 0 || version < result.FromVersion {
			result.FromVersion = version
		}
		if version >= currentVersion {
			result.AlreadyCurrent++
			continue
		}

		if _, _, err := m.serializer.UpgradePayloadOnly(eventType, payload); err != nil {
			result.Failed++
			result.FailedPayloads = append(result.FailedPayloads, FailedMigration{
				Payload: payload,
				Error:   err.Error(),
				Version: version,
			})
			continue
		}
		result.Upgraded++
	}

	result.CompletedAt = time.Now()
	m.logger.Info("Event payload migration completed",
		zap.String("event_type", eventType),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("upgraded", result.Upgraded),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration()))
	return result, nil
}

// MigratePayload migrates a single event payload to the current version.
// Returns the upgraded payload and its new version.
func (m *EventMigrator) MigratePayload(eventType string, payload []byte) ([]byte, int, error) {
	return m.serializer.UpgradePayloadOnly(eventType, payload)
}

// ValidateUpgradeChain validates that all upgraders are correctly chained
// for a given event type. Returns an error if there are gaps in the chain.
func (m *EventMigrator) ValidateUpgradeChain(eventType string) error {
	config, ok := m.serializer.GetVersionRegistry().GetConfig(eventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	for v := 1; v < config.CurrentVersion; v++ {
		if _, ok := config.Upgraders[v]; !ok {
			return fmt.Errorf("missing upgrader for version %d -> %d", v, v+1)
		}
	}
	return nil
}

// CommonUpgraders provides factory functions for the upgrade patterns that
// cover most schema changes: adding, removing, renaming, and transforming
// a single field.
type CommonUpgraders struct{}

// AddField creates an upgrader that adds a new field with a default value
func (CommonUpgraders) AddField(sourceVersion int, fieldName string, defaultValue any) *BaseEventUpgrader {
	return NewBaseEventUpgrader(sourceVersion, sourceVersion+1, func(data map[string]any) (map[string]any, error) {
		data[fieldName] = defaultValue
		return data, nil
	})
}

// RemoveField creates an upgrader that removes a field
func (CommonUpgraders) RemoveField(sourceVersion int, fieldName string) *BaseEventUpgrader {
	return NewBaseEventUpgrader(sourceVersion, sourceVersion+1, func(data map[string]any) (map[string]any, error) {
		delete(data, fieldName)
		return data, nil
	})
}

// RenameField creates an upgrader that renames a field
func (CommonUpgraders) RenameField(sourceVersion int, oldName, newName string) *BaseEventUpgrader {
	return NewBaseEventUpgrader(sourceVersion, sourceVersion+1, func(data map[string]any) (map[string]any, error) {
		val, ok := data[oldName]
		if !ok {
			return data, nil
		}
		delete(data, oldName)
		data[newName] = val
		return data, nil
	})
}

// TransformField creates an upgrader that transforms a field value
func (CommonUpgraders) TransformField(sourceVersion int, fieldName string, transform func(any) any) *BaseEventUpgrader {
	return NewBaseEventUpgrader(sourceVersion, sourceVersion+1, func(data map[string]any) (map[string]any, error) {
		if val, ok := data[fieldName]; ok {
			data[fieldName] = transform(val)
		}
		return data, nil
	})
}
