package event

import (
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the
// outbox table.
//
// VendorBillCreated is at schema version 2: version 1 payloads carried the
// bill total under "bill_total" and are upgraded on read.
func RegisterAllEvents(serializer *VersionedSerializer) error {
	serializer.Register(procurement.EventTypeGoodsReceiptCompleted, &procurement.GoodsReceiptCompletedEvent{})
	serializer.Register(procurement.EventTypeThreeWayMatchCompleted, &procurement.ThreeWayMatchCompletedEvent{})
	serializer.Register(procurement.EventTypeThreeWayMatchApproved, &procurement.ThreeWayMatchApprovedEvent{})
	serializer.Register(procurement.EventTypeThreeWayMatchRejected, &procurement.ThreeWayMatchRejectedEvent{})
	serializer.Register(procurement.EventTypeVendorPaymentCreated, &procurement.VendorPaymentCreatedEvent{})
	serializer.Register(procurement.EventTypeVendorPaymentCompleted, &procurement.VendorPaymentCompletedEvent{})

	return serializer.RegisterVersioned(
		procurement.EventTypeVendorBillCreated,
		2,
		map[int]shared.DomainEvent{
			2: &procurement.VendorBillCreatedEvent{},
		},
		CommonUpgraders{}.RenameField(1, "bill_total", "total_amount"),
	)
}
