package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/procureflow/backend/internal/domain/shared"
)

// EventUpgrader migrates an event payload across one schema version
// step. Chains of upgraders carry old outbox rows forward, so a v1
// GoodsReceiptCompleted written last year still deserializes today.
type EventUpgrader interface {
	SourceVersion() int
	TargetVersion() int
	// Upgrade rewrites the raw JSON payload from source to target shape.
	Upgrade(payload []byte) ([]byte, error)
}

// VersionedEventConfig describes one event type's schema history.
type VersionedEventConfig struct {
	EventType      string
	CurrentVersion int
	Upgraders      map[int]EventUpgrader      // source version -> next step
	Versions       map[int]shared.DomainEvent // version -> prototype instance
}

// VersionRegistry tracks schema versions and upgrade chains per event type.
type VersionRegistry struct {
	mu      sync.RWMutex
	configs map[string]*VersionedEventConfig
}

func NewVersionRegistry() *VersionRegistry {
	return &VersionRegistry{
		configs: make(map[string]*VersionedEventConfig),
	}
}

// RegisterVersionedEvent registers an event type together with its
// upgrade chain. Every version from 1 up to currentVersion-1 must have
// an upgrader, and each upgrader must advance exactly one version.
func (r *VersionRegistry) RegisterVersionedEvent(
	eventType string,
	currentVersion int,
	versions map[int]shared.DomainEvent,
	upgraders ...EventUpgrader,
) error {
	upgraderMap := make(map[int]EventUpgrader, len(upgraders))
	for _, u := range upgraders {
		if u.TargetVersion() != u.SourceVersion()+1 {
			return fmt.Errorf("upgrader must be sequential: got %d -> %d", u.SourceVersion(), u.TargetVersion())
		}
		upgraderMap[u.SourceVersion()] = u
	}

	for v := 1; v < currentVersion; v++ {
		if _, ok := upgraderMap[v]; !ok {
			return fmt.Errorf("missing upgrader for version %d -> %d for event type %s", v, v+1, eventType)
		}
	}
	if _, ok := versions[currentVersion]; !ok {
		return fmt.Errorf("versions map must include current version %d for event type %s", currentVersion, eventType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[eventType] = &VersionedEventConfig{
		EventType:      eventType,
		CurrentVersion: currentVersion,
		Upgraders:      upgraderMap,
		Versions:       versions,
	}

	return nil
}

// RegisterSimpleEvent registers an event type that is still on its
// first schema version.
func (r *VersionRegistry) RegisterSimpleEvent(eventType string, eventInstance shared.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[eventType] = &VersionedEventConfig{
		EventType:      eventType,
		CurrentVersion: 1,
		Upgraders:      make(map[int]EventUpgrader),
		Versions:       map[int]shared.DomainEvent{1: eventInstance},
	}
}

func (r *VersionRegistry) GetConfig(eventType string) (*VersionedEventConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[eventType]
	return config, ok
}

func (r *VersionRegistry) GetCurrentVersion(eventType string) (int, bool) {
	config, ok := r.GetConfig(eventType)
	if !ok {
		return 0, false
	}
	return config.CurrentVersion, true
}

func (r *VersionRegistry) IsRegistered(eventType string) bool {
	_, ok := r.GetConfig(eventType)
	return ok
}

func (r *VersionRegistry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	return types
}

// UpgradePayload walks the upgrade chain from fromVersion up to the
// current version and returns the rewritten payload plus the version it
// now carries. Payloads already at or past the current version pass
// through untouched.
func (r *VersionRegistry) UpgradePayload(eventType string, payload []byte, fromVersion int) ([]byte, int, error) {
	config, ok := r.GetConfig(eventType)
	if !ok {
		return nil, 0, fmt.Errorf("unknown event type: %s", eventType)
	}

	if fromVersion >= config.CurrentVersion {
		return payload, config.CurrentVersion, nil
	}

	for v := fromVersion; v < config.CurrentVersion; v++ {
		upgrader, ok := config.Upgraders[v]
		if !ok {
			return nil, 0, fmt.Errorf("missing upgrader for version %d -> %d for event type %s", v, v+1, eventType)
		}
		var err error
		payload, err = upgrader.Upgrade(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to upgrade from v%d to v%d: %w", v, v+1, err)
		}
	}

	return payload, config.CurrentVersion, nil
}

// EventVersionInfo is the minimal envelope read off raw event JSON.
type EventVersionInfo struct {
	SchemaVersion int `json:"schema_version"`
}

// ExtractVersion reads the schema version from raw event JSON. Rows
// written before versioning existed carry no field and count as v1.
func ExtractVersion(payload []byte) int {
	var info EventVersionInfo
	if err := json.Unmarshal(payload, &info); err != nil || info.SchemaVersion == 0 {
		return 1
	}
	return info.SchemaVersion
}

// BaseEventUpgrader implements EventUpgrader over a map transform, for
// upgrades that rename or reshape fields without a full struct decode.
type BaseEventUpgrader struct {
	sourceVersion int
	targetVersion int
	transformFunc func(data map[string]any) (map[string]any, error)
}

func NewBaseEventUpgrader(source, target int, transform func(data map[string]any) (map[string]any, error)) *BaseEventUpgrader {
	return &BaseEventUpgrader{
		sourceVersion: source,
		targetVersion: target,
		transformFunc: transform,
	}
}

func (u *BaseEventUpgrader) SourceVersion() int { return u.sourceVersion }
func (u *BaseEventUpgrader) TargetVersion() int { return u.targetVersion }

// Upgrade decodes to a map, applies the transform, and stamps the new
// schema version into the result.
func (u *BaseEventUpgrader) Upgrade(payload []byte) ([]byte, error) {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	transformed, err := u.transformFunc(data)
	if err != nil {
		return nil, fmt.Errorf("transform failed: %w", err)
	}
	transformed["schema_version"] = u.targetVersion

	result, err := json.Marshal(transformed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transformed payload: %w", err)
	}

	return result, nil
}

var _ EventUpgrader = (*BaseEventUpgrader)(nil)
