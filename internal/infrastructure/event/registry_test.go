package event

import (
	"context"
	"testing"

	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{eventTypes: eventTypes}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistryRegister(t *testing.T) {
	t.Run("specific event types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newMockHandler("procurement.goods_receipt.created", "procurement.goods_receipt.completed")

		registry.Register(handler, "procurement.goods_receipt.created", "procurement.goods_receipt.completed")

		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("procurement.goods_receipt.created"))
		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("procurement.goods_receipt.completed"))
		assert.Empty(t, registry.GetHandlers("procurement.vendor_bill.created"))
	})

	t.Run("no event types means wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newMockHandler()

		registry.Register(handler)

		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("procurement.match.approved"))
		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("anything.else"))
	})

	t.Run("typed handlers come before wildcard handlers", func(t *testing.T) {
		registry := NewHandlerRegistry()
		typed := newMockHandler("procurement.match.approved")
		wildcard := newMockHandler()

		registry.Register(typed, "procurement.match.approved")
		registry.Register(wildcard)

		assert.Equal(t, []shared.EventHandler{typed, wildcard}, registry.GetHandlers("procurement.match.approved"))
		assert.Equal(t, []shared.EventHandler{wildcard}, registry.GetHandlers("procurement.payment.completed"))
	})
}

func TestHandlerRegistryUnregister(t *testing.T) {
	t.Run("removes only the target handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		first := newMockHandler("procurement.match.approved")
		second := newMockHandler("procurement.match.approved")
		registry.Register(first, "procurement.match.approved")
		registry.Register(second, "procurement.match.approved")

		registry.Unregister(first)

		assert.Equal(t, []shared.EventHandler{second}, registry.GetHandlers("procurement.match.approved"))
	})

	t.Run("removes wildcard subscriptions", func(t *testing.T) {
		registry := NewHandlerRegistry()
		wildcard := newMockHandler()
		registry.Register(wildcard)

		registry.Unregister(wildcard)

		assert.Empty(t, registry.GetHandlers("procurement.match.approved"))
	})
}

func TestHandlerRegistryGetAllHandlers(t *testing.T) {
	t.Run("returns typed and wildcard handlers", func(t *testing.T) {
		registry := NewHandlerRegistry()
		registry.Register(newMockHandler("procurement.goods_receipt.created"), "procurement.goods_receipt.created")
		registry.Register(newMockHandler("procurement.vendor_bill.created"), "procurement.vendor_bill.created")
		registry.Register(newMockHandler())

		assert.Len(t, registry.GetAllHandlers(), 3)
	})

	t.Run("deduplicates multi-type registrations", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newMockHandler("procurement.goods_receipt.created", "procurement.goods_receipt.completed")
		registry.Register(handler, "procurement.goods_receipt.created", "procurement.goods_receipt.completed")

		assert.Len(t, registry.GetAllHandlers(), 1)
	})
}
