package procurement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
)

// createPendingPayment builds a pending payment against a posted bill
func createPendingPayment(tenantID uuid.UUID) *procurement.VendorPayment {
	order := createConfirmedOrder(tenantID)
	receipt := createCompletedReceipt(order)
	bill := createPostedBill(order, receipt)
	payment, _ := procurement.NewVendorPayment(tenantID, "PAY/2026/08/0002", bill.ID, bill.BillNumber,
		bill.VendorID, bill.VendorName, bill.GetOutstandingMoney(), procurement.PaymentMethodBankTransfer, "1010")
	return payment
}

func TestPaymentService_CompletePayment_Success(t *testing.T) {
	paymentRepo := new(MockVendorPaymentRepository)
	service := NewPaymentService(paymentRepo, zap.NewNop())

	ctx := context.Background()
	tenantID := newTestTenantID()
	actorID := newTestActorID()
	payment := createPendingPayment(tenantID)

	paymentRepo.On("FindByIDForTenant", ctx, tenantID, payment.ID).Return(payment, nil)
	paymentRepo.On("Save", ctx, payment).Return(nil)

	result, err := service.CompletePayment(ctx, tenantID, actorID, payment.ID, CompletePaymentRequest{
		Reference: "UTR-8837261",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "COMPLETED", result.Status)
	assert.Equal(t, "UTR-8837261", result.Reference)
	paymentRepo.AssertExpectations(t)
}

func TestPaymentService_CompletePayment_AlreadyCompleted(t *testing.T) {
	paymentRepo := new(MockVendorPaymentRepository)
	service := NewPaymentService(paymentRepo, zap.NewNop())

	ctx := context.Background()
	tenantID := newTestTenantID()
	actorID := newTestActorID()
	payment := createPendingPayment(tenantID)
	_ = payment.Complete(actorID, "UTR-1")

	paymentRepo.On("FindByIDForTenant", ctx, tenantID, payment.ID).Return(payment, nil)

	result, err := service.CompletePayment(ctx, tenantID, actorID, payment.ID, CompletePaymentRequest{})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPaymentService_CancelPayment_Success(t *testing.T) {
	paymentRepo := new(MockVendorPaymentRepository)
	service := NewPaymentService(paymentRepo, zap.NewNop())

	ctx := context.Background()
	tenantID := newTestTenantID()
	payment := createPendingPayment(tenantID)

	paymentRepo.On("FindByIDForTenant", ctx, tenantID, payment.ID).Return(payment, nil)
	paymentRepo.On("Save", ctx, payment).Return(nil)

	result, err := service.CancelPayment(ctx, tenantID, newTestActorID(), payment.ID, CancelPaymentRequest{
		Reason: "Bank account frozen",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "CANCELLED", result.Status)
}

func TestPaymentService_CancelPayment_CompletedPayment(t *testing.T) {
	paymentRepo := new(MockVendorPaymentRepository)
	service := NewPaymentService(paymentRepo, zap.NewNop())

	ctx := context.Background()
	tenantID := newTestTenantID()
	actorID := newTestActorID()
	payment := createPendingPayment(tenantID)
	_ = payment.Complete(actorID, "UTR-2")

	paymentRepo.On("FindByIDForTenant", ctx, tenantID, payment.ID).Return(payment, nil)

	result, err := service.CancelPayment(ctx, tenantID, actorID, payment.ID, CancelPaymentRequest{
		Reason: "too late",
	})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestPaymentService_ListPaymentsForBill(t *testing.T) {
	paymentRepo := new(MockVendorPaymentRepository)
	service := NewPaymentService(paymentRepo, zap.NewNop())

	ctx := context.Background()
	tenantID := newTestTenantID()
	billID := uuid.New()
	payment := createPendingPayment(tenantID)

	paymentRepo.On("FindByBill", ctx, tenantID, billID).Return([]procurement.VendorPayment{*payment}, nil)

	result, err := service.ListPaymentsForBill(ctx, tenantID, billID)

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, payment.PaymentNumber, result[0].PaymentNumber)
}
