package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The fixtures mirror the evolution of a bill event: v1 carried the total
// under "bill_total", v2 renamed it to "total_amount", v3 added currency.

type billEventV1 struct {
	shared.BaseDomainEvent
	BillNumber string `json:"bill_number"`
	BillTotal  string `json:"bill_total"`
}

type billEventV2 struct {
	shared.BaseDomainEvent
	BillNumber  string `json:"bill_number"`
	TotalAmount string `json:"total_amount"`
}

type billEventV3 struct {
	shared.BaseDomainEvent
	BillNumber  string `json:"bill_number"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
}

func billBase(version int) shared.BaseDomainEvent {
	return shared.NewVersionedBaseDomainEvent("BillRecorded", "VendorBill", uuid.New(), uuid.New(), version)
}

func billV1ToV2Upgrader() EventUpgrader {
	return CommonUpgraders{}.RenameField(1, "bill_total", "total_amount")
}

func billV2ToV3Upgrader() EventUpgrader {
	return CommonUpgraders{}.AddField(2, "currency", "INR")
}

var billVersionMap = map[int]shared.DomainEvent{
	1: &billEventV1{},
	2: &billEventV2{},
	3: &billEventV3{},
}

func registerBillVersions(t *testing.T, registry *VersionRegistry) {
	t.Helper()
	err := registry.RegisterVersionedEvent("BillRecorded", 3, billVersionMap,
		billV1ToV2Upgrader(), billV2ToV3Upgrader())
	require.NoError(t, err)
}

func TestVersionRegistryRegistration(t *testing.T) {
	t.Run("simple event registers at version 1", func(t *testing.T) {
		registry := NewVersionRegistry()
		registry.RegisterSimpleEvent("BillRecorded", &billEventV1{})

		assert.True(t, registry.IsRegistered("BillRecorded"))
		config, ok := registry.GetConfig("BillRecorded")
		require.True(t, ok)
		assert.Equal(t, 1, config.CurrentVersion)
		assert.Empty(t, config.Upgraders)
	})

	t.Run("versioned event reports current version", func(t *testing.T) {
		registry := NewVersionRegistry()
		registerBillVersions(t, registry)

		assert.True(t, registry.IsRegistered("BillRecorded"))
		version, ok := registry.GetCurrentVersion("BillRecorded")
		require.True(t, ok)
		assert.Equal(t, 3, version)
	})

	t.Run("rejects a gap in the upgrader chain", func(t *testing.T) {
		registry := NewVersionRegistry()
		err := registry.RegisterVersionedEvent("BillRecorded", 3, billVersionMap,
			billV1ToV2Upgrader()) // no v2->v3
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing upgrader for version 2 -> 3")
	})

	t.Run("rejects an upgrader that skips a version", func(t *testing.T) {
		registry := NewVersionRegistry()
		skipping := NewBaseEventUpgrader(1, 3, func(data map[string]any) (map[string]any, error) {
			return data, nil
		})
		err := registry.RegisterVersionedEvent("BillRecorded", 3, billVersionMap, skipping)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upgrader must be sequential")
	})
}

func TestVersionRegistryUpgradePayload(t *testing.T) {
	t.Run("runs the full chain v1 to v3", func(t *testing.T) {
		registry := NewVersionRegistry()
		registerBillVersions(t, registry)

		v1Event := &billEventV1{
			BaseDomainEvent: billBase(1),
			BillNumber:      "BILL-2025-00042",
			BillTotal:       "8614.00",
		}
		v1Data, err := NewEventSerializer().Serialize(v1Event)
		require.NoError(t, err)

		upgraded, version, err := registry.UpgradePayload("BillRecorded", v1Data, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, version)
		assert.Contains(t, string(upgraded), `"total_amount":"8614.00"`)
		assert.Contains(t, string(upgraded), `"currency":"INR"`)
		assert.NotContains(t, string(upgraded), "bill_total")
	})

	t.Run("returns current payloads untouched", func(t *testing.T) {
		registry := NewVersionRegistry()
		registry.RegisterSimpleEvent("BillRecorded", &billEventV1{})

		payload := []byte(`{"schema_version": 1, "bill_number": "BILL-2025-00001"}`)
		upgraded, version, err := registry.UpgradePayload("BillRecorded", payload, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, version)
		assert.Equal(t, payload, upgraded)
	})
}

func TestExtractVersion(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    int
	}{
		"with version":    {`{"schema_version": 2, "bill_number": "x"}`, 2},
		"without version": {`{"bill_number": "x"}`, 1},
		"version zero":    {`{"schema_version": 0, "bill_number": "x"}`, 1},
		"invalid json":    {`invalid`, 1},
		"empty":           {`{}`, 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVersion([]byte(tt.payload)))
		})
	}
}

func TestBaseEventUpgrader(t *testing.T) {
	upgrader := NewBaseEventUpgrader(1, 2, func(data map[string]any) (map[string]any, error) {
		data["currency"] = "INR"
		return data, nil
	})

	assert.Equal(t, 1, upgrader.SourceVersion())
	assert.Equal(t, 2, upgrader.TargetVersion())

	output, err := upgrader.Upgrade([]byte(`{"schema_version": 1, "bill_number": "BILL-2025-00001"}`))
	require.NoError(t, err)
	assert.Contains(t, string(output), `"currency":"INR"`)
	assert.Contains(t, string(output), `"schema_version":2`)
}

func TestCommonUpgraders(t *testing.T) {
	tests := map[string]struct {
		upgrader    EventUpgrader
		input       string
		contains    []string
		notContains []string
	}{
		"add field": {
			upgrader: CommonUpgraders{}.AddField(1, "currency", "INR"),
			input:    `{"schema_version": 1, "bill_number": "BILL-2025-00001"}`,
			contains: []string{`"currency":"INR"`},
		},
		"remove field": {
			upgrader:    CommonUpgraders{}.RemoveField(1, "legacy_ref"),
			input:       `{"schema_version": 1, "legacy_ref": "x", "bill_number": "BILL-2025-00001"}`,
			contains:    []string{`"bill_number":"BILL-2025-00001"`},
			notContains: []string{"legacy_ref"},
		},
		"rename field": {
			upgrader:    CommonUpgraders{}.RenameField(1, "bill_total", "total_amount"),
			input:       `{"schema_version": 1, "bill_total": "8614.00"}`,
			contains:    []string{`"total_amount":"8614.00"`},
			notContains: []string{"bill_total"},
		},
		"transform field": {
			upgrader: CommonUpgraders{}.TransformField(1, "amount", func(v any) any {
				if num, ok := v.(float64); ok {
					return num * 100 // rupees to paise
				}
				return v
			}),
			input:    `{"schema_version": 1, "amount": 10.5}`,
			contains: []string{`"amount":1050`},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			output, err := tt.upgrader.Upgrade([]byte(tt.input))
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(output), want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, string(output), unwanted)
			}
		})
	}
}

func TestVersionedSerializerRegister(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())
	serializer.Register("BillRecorded", &billEventV1{})

	assert.True(t, serializer.IsRegistered("BillRecorded"))
	version, ok := serializer.GetCurrentVersion("BillRecorded")
	require.True(t, ok)
	assert.Equal(t, 1, version)
}

func TestVersionedSerializerSerialize(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())

	data, err := serializer.Serialize(&billEventV3{
		BaseDomainEvent: billBase(3),
		BillNumber:      "BILL-2025-00042",
		TotalAmount:     "8614.00",
		Currency:        "INR",
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version":3`)
	assert.Contains(t, string(data), `"bill_number":"BILL-2025-00042"`)
}

func TestVersionedSerializerDeserialize(t *testing.T) {
	t.Run("current version round-trips", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		registerBillVersions(t, serializer.GetVersionRegistry())

		original := &billEventV3{
			BaseDomainEvent: billBase(3),
			BillNumber:      "BILL-2025-00042",
			TotalAmount:     "8614.00",
			Currency:        "INR",
		}
		data, err := serializer.Serialize(original)
		require.NoError(t, err)

		deserialized, err := serializer.Deserialize("BillRecorded", data)
		require.NoError(t, err)

		event, ok := deserialized.(*billEventV3)
		require.True(t, ok)
		assert.Equal(t, original.BillNumber, event.BillNumber)
		assert.Equal(t, original.TotalAmount, event.TotalAmount)
		assert.Equal(t, original.Currency, event.Currency)
	})

	t.Run("v2 payload upgrades to v3", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		registerBillVersions(t, serializer.GetVersionRegistry())

		v2Event := &billEventV2{
			BaseDomainEvent: billBase(2),
			BillNumber:      "BILL-2025-00042",
			TotalAmount:     "8614.00",
		}
		data, err := serializer.Serialize(v2Event)
		require.NoError(t, err)

		deserialized, err := serializer.Deserialize("BillRecorded", data)
		require.NoError(t, err)

		event, ok := deserialized.(*billEventV3)
		require.True(t, ok)
		assert.Equal(t, v2Event.BillNumber, event.BillNumber)
		assert.Equal(t, v2Event.TotalAmount, event.TotalAmount)
		assert.Equal(t, "INR", event.Currency) // added by the v2->v3 upgrader
	})

	t.Run("stored v1 payload upgrades through the chain", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		registerBillVersions(t, serializer.GetVersionRegistry())

		// a v1 payload as it would sit in the outbox table
		v1Payload := []byte(`{
			"id": "00000000-0000-0000-0000-000000000001",
			"type": "BillRecorded",
			"timestamp": "2024-01-01T00:00:00Z",
			"aggregate_id": "00000000-0000-0000-0000-000000000002",
			"aggregate_type": "VendorBill",
			"tenant_id": "00000000-0000-0000-0000-000000000003",
			"schema_version": 1,
			"bill_number": "BILL-2024-00007",
			"bill_total": "1250.00"
		}`)

		deserialized, err := serializer.Deserialize("BillRecorded", v1Payload)
		require.NoError(t, err)

		event, ok := deserialized.(*billEventV3)
		require.True(t, ok)
		assert.Equal(t, "BILL-2024-00007", event.BillNumber)
		assert.Equal(t, "1250.00", event.TotalAmount)
		assert.Equal(t, "INR", event.Currency)
	})

	t.Run("payload without a version field is treated as v1", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		err := serializer.RegisterVersioned("BillRecorded", 2,
			map[int]shared.DomainEvent{1: &billEventV1{}, 2: &billEventV2{}},
			billV1ToV2Upgrader())
		require.NoError(t, err)

		payload := []byte(`{
			"id": "00000000-0000-0000-0000-000000000001",
			"type": "BillRecorded",
			"timestamp": "2024-01-01T00:00:00Z",
			"aggregate_id": "00000000-0000-0000-0000-000000000002",
			"aggregate_type": "VendorBill",
			"tenant_id": "00000000-0000-0000-0000-000000000003",
			"bill_number": "BILL-2024-00008",
			"bill_total": "90.00"
		}`)

		deserialized, err := serializer.Deserialize("BillRecorded", payload)
		require.NoError(t, err)

		event, ok := deserialized.(*billEventV2)
		require.True(t, ok)
		assert.Equal(t, "BILL-2024-00008", event.BillNumber)
		assert.Equal(t, "90.00", event.TotalAmount)
	})

	t.Run("unknown type errors", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		_, err := serializer.Deserialize("UnknownEvent", []byte(`{}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown event type")
	})
}

func TestVersionedSerializerDeserializeToVersion(t *testing.T) {
	t.Run("stops at the requested version", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		registerBillVersions(t, serializer.GetVersionRegistry())

		v1Payload := []byte(`{
			"schema_version": 1,
			"bill_number": "BILL-2024-00009",
			"bill_total": "300.00"
		}`)

		deserialized, err := serializer.DeserializeToVersion("BillRecorded", v1Payload, 2)
		require.NoError(t, err)

		event, ok := deserialized.(*billEventV2)
		require.True(t, ok)
		assert.Equal(t, "BILL-2024-00009", event.BillNumber)
		assert.Equal(t, "300.00", event.TotalAmount)
	})

	t.Run("refuses to downgrade", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		registerBillVersions(t, serializer.GetVersionRegistry())

		_, err := serializer.DeserializeToVersion("BillRecorded",
			[]byte(`{"schema_version": 3, "bill_number": "BILL-2024-00010"}`), 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot downgrade")
	})

	t.Run("unknown type errors", func(t *testing.T) {
		serializer := NewVersionedSerializer(zap.NewNop())
		_, err := serializer.DeserializeToVersion("UnknownEvent", []byte(`{}`), 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown event type")
	})
}

func TestVersionedSerializerRegisteredTypes(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())
	serializer.Register("BillRecorded", &billEventV1{})
	serializer.Register("BillSettled", &billEventV1{})

	types := serializer.RegisteredTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, "BillRecorded")
	assert.Contains(t, types, "BillSettled")
}

func TestEventMigratorMigratePayloads(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())
	err := serializer.RegisterVersioned("BillRecorded", 2,
		map[int]shared.DomainEvent{1: &billEventV1{}, 2: &billEventV2{}},
		billV1ToV2Upgrader())
	require.NoError(t, err)

	migrator := NewEventMigrator(serializer, zap.NewNop())

	payloads := [][]byte{
		[]byte(`{"schema_version": 1, "bill_number": "BILL-2024-00001", "bill_total": "10.00"}`),
		[]byte(`{"schema_version": 1, "bill_number": "BILL-2024-00002", "bill_total": "20.00"}`),
		[]byte(`{"schema_version": 2, "bill_number": "BILL-2024-00003", "total_amount": "30.00"}`),
	}

	result, err := migrator.MigratePayloads(context.Background(), "BillRecorded", payloads)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Upgraded)
	assert.Equal(t, 1, result.AlreadyCurrent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, result.ToVersion)
}

func TestEventMigratorCancellation(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())
	serializer.Register("BillRecorded", &billEventV1{})
	migrator := NewEventMigrator(serializer, zap.NewNop())

	payloads := make([][]byte, 100)
	for i := range payloads {
		payloads[i] = []byte(`{"schema_version": 1, "bill_number": "BILL-2024-00001"}`)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := migrator.MigratePayloads(ctx, "BillRecorded", payloads)
	assert.Error(t, err)
	assert.True(t, result.TotalProcessed < 100)
}

func TestEventMigratorMigratePayload(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())
	err := serializer.RegisterVersioned("BillRecorded", 2,
		map[int]shared.DomainEvent{1: &billEventV1{}, 2: &billEventV2{}},
		billV1ToV2Upgrader())
	require.NoError(t, err)

	migrator := NewEventMigrator(serializer, zap.NewNop())

	upgraded, version, err := migrator.MigratePayload("BillRecorded",
		[]byte(`{"schema_version": 1, "bill_number": "BILL-2024-00004", "bill_total": "45.00"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Contains(t, string(upgraded), `"total_amount":"45.00"`)
}

func TestEventMigratorValidateUpgradeChain(t *testing.T) {
	serializer := NewVersionedSerializer(zap.NewNop())
	registerBillVersions(t, serializer.GetVersionRegistry())
	migrator := NewEventMigrator(serializer, zap.NewNop())

	assert.NoError(t, migrator.ValidateUpgradeChain("BillRecorded"))
	assert.Error(t, migrator.ValidateUpgradeChain("UnknownEvent"))
}

func TestMigrationResultDuration(t *testing.T) {
	result := &MigrationResult{
		StartedAt:   time.Now().Add(-5 * time.Second),
		CompletedAt: time.Now(),
	}

	duration := result.Duration()
	assert.True(t, duration >= 4*time.Second)
	assert.True(t, duration <= 6*time.Second)
}

func TestBaseDomainEventSchemaVersion(t *testing.T) {
	base := shared.NewBaseDomainEvent("Test", "Agg", uuid.New(), uuid.New())
	assert.Equal(t, 1, base.SchemaVersion())

	base = shared.NewVersionedBaseDomainEvent("Test", "Agg", uuid.New(), uuid.New(), 3)
	assert.Equal(t, 3, base.SchemaVersion())

	// zero and negative versions fall back to 1
	base = shared.BaseDomainEvent{Version: 0}
	assert.Equal(t, 1, base.SchemaVersion())
	base = shared.NewVersionedBaseDomainEvent("Test", "Agg", uuid.New(), uuid.New(), -5)
	assert.Equal(t, 1, base.SchemaVersion())
	base = shared.NewVersionedBaseDomainEvent("Test", "Agg", uuid.New(), uuid.New(), 0)
	assert.Equal(t, 1, base.SchemaVersion())
}
