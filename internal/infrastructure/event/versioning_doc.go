package event

/*
Event Versioning
================

Outbox payloads outlive the code that wrote them. When an event schema
changes, entries written before the change must still deserialize, so every
event carries a schema_version field (missing means version 1) and the
serializer upgrades old payloads on read.

Components
----------

1. BaseDomainEvent.Version
   - Serialized as schema_version with the event payload
   - Payloads without the field are treated as version 1

2. EventUpgrader
   - Transforms a payload from one version to the next
   - Upgraders must be sequential (v1->v2, v2->v3)
   - CommonUpgraders covers the usual cases: add, remove, rename,
     transform a field

3. VersionRegistry
   - Holds the registered versions and the upgrader chain per event type
   - Registration fails fast if the chain has a gap

4. VersionedSerializer
   - Drop-in replacement for EventSerializer (both satisfy Serializer)
   - Upgrades old payloads transparently during Deserialize, so the
     outbox processor and event handlers only ever see the current schema

5. EventMigrator
   - Batch-migrates stored payloads, for rewriting outbox backlogs
     after a schema change instead of upgrading on every read

Evolving a schema
-----------------

VendorBillCreated is the worked example: version 1 carried the bill total
under "bill_total", version 2 renamed it to "total_amount".

1. Change the event struct to the new shape and bump the version in its
   constructor:

    shared.NewVersionedBaseDomainEvent(
        EventTypeVendorBillCreated, AggregateTypeVendorBill,
        bill.ID, bill.TenantID, 2)

2. Register the new current version with an upgrader from the old one in
   RegisterAllEvents:

    serializer.RegisterVersioned(
        procurement.EventTypeVendorBillCreated,
        2,
        map[int]shared.DomainEvent{
            2: &procurement.VendorBillCreatedEvent{},
        },
        CommonUpgraders{}.RenameField(1, "bill_total", "total_amount"),
    )

Stored version 1 entries now upgrade on read; new entries are written at
version 2.

Rules
-----

- Never change the meaning of an existing field within a version. Rename
  or add a field and bump the version instead.
- Upgraders only move forward. Downgrading is not supported outside of
  DeserializeToVersion, which exists for inspection and tests.
- Keep upgraders pure JSON transforms. They must not touch the database
  or depend on repository state.
*/
