package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/domain/shared/valueobject"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockGoodsReceiptRepository is a mock implementation of GoodsReceiptRepository
type MockGoodsReceiptRepository struct {
	mock.Mock
}

func (m *MockGoodsReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.GoodsReceipt, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.GoodsReceipt), args.Error(1)
}

func (m *MockGoodsReceiptRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]procurement.GoodsReceipt, error) {
	args := m.Called(ctx, tenantID, orderID)
	return args.Get(0).([]procurement.GoodsReceipt), args.Error(1)
}

func (m *MockGoodsReceiptRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.GoodsReceipt, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]procurement.GoodsReceipt), args.Error(1)
}

func (m *MockGoodsReceiptRepository) Save(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockGoodsReceiptRepository) SaveWithOrder(ctx context.Context, receipt *procurement.GoodsReceipt, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, receipt, order)
	return args.Error(0)
}

func (m *MockGoodsReceiptRepository) SaveWithLock(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockGoodsReceiptRepository) ClaimBillCreation(ctx context.Context, tenantID, receiptID uuid.UUID) error {
	args := m.Called(ctx, tenantID, receiptID)
	return args.Error(0)
}

func (m *MockGoodsReceiptRepository) ReleaseBillClaim(ctx context.Context, tenantID, receiptID uuid.UUID) error {
	args := m.Called(ctx, tenantID, receiptID)
	return args.Error(0)
}

// MockVendorBillRepository is a mock implementation of VendorBillRepository
type MockVendorBillRepository struct {
	mock.Mock
}

func (m *MockVendorBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.VendorBill, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.VendorBill), args.Error(1)
}

func (m *MockVendorBillRepository) FindByReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*procurement.VendorBill, error) {
	args := m.Called(ctx, tenantID, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.VendorBill), args.Error(1)
}

func (m *MockVendorBillRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.VendorBill, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]procurement.VendorBill), args.Error(1)
}

func (m *MockVendorBillRepository) Save(ctx context.Context, bill *procurement.VendorBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockVendorBillRepository) SaveWithLock(ctx context.Context, bill *procurement.VendorBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

// MockThreeWayMatchRepository is a mock implementation of ThreeWayMatchRepository
type MockThreeWayMatchRepository struct {
	mock.Mock
}

func (m *MockThreeWayMatchRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ThreeWayMatch, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.ThreeWayMatch), args.Error(1)
}

func (m *MockThreeWayMatchRepository) FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]procurement.ThreeWayMatch, error) {
	args := m.Called(ctx, tenantID, billID)
	return args.Get(0).([]procurement.ThreeWayMatch), args.Error(1)
}

func (m *MockThreeWayMatchRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.ThreeWayMatch, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]procurement.ThreeWayMatch), args.Error(1)
}

func (m *MockThreeWayMatchRepository) Save(ctx context.Context, match *procurement.ThreeWayMatch) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockThreeWayMatchRepository) SaveWithLock(ctx context.Context, match *procurement.ThreeWayMatch) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

// MockToleranceConfigRepository is a mock implementation of ToleranceConfigRepository
type MockToleranceConfigRepository struct {
	mock.Mock
}

func (m *MockToleranceConfigRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*procurement.ToleranceConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.ToleranceConfig), args.Error(1)
}

func (m *MockToleranceConfigRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ToleranceConfig, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.ToleranceConfig), args.Error(1)
}

func (m *MockToleranceConfigRepository) Save(ctx context.Context, config *procurement.ToleranceConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

// MockVendorPaymentRepository is a mock implementation of VendorPaymentRepository
type MockVendorPaymentRepository struct {
	mock.Mock
}

func (m *MockVendorPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.VendorPayment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.VendorPayment), args.Error(1)
}

func (m *MockVendorPaymentRepository) FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]procurement.VendorPayment, error) {
	args := m.Called(ctx, tenantID, billID)
	return args.Get(0).([]procurement.VendorPayment), args.Error(1)
}

func (m *MockVendorPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.VendorPayment, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]procurement.VendorPayment), args.Error(1)
}

func (m *MockVendorPaymentRepository) Save(ctx context.Context, payment *procurement.VendorPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.Account], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*ledger.Account]), args.Error(1)
}

func (m *MockAccountRepository) FindBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]*ledger.Account, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*ledger.Account), args.Error(1)
}

// MockBillPostingStore is a mock implementation of BillPostingStore
type MockBillPostingStore struct {
	mock.Mock
}

func (m *MockBillPostingStore) SaveBillCreation(ctx context.Context, bill *procurement.VendorBill, receipt *procurement.GoodsReceipt, order *procurement.PurchaseOrder, txn *ledger.JournalTransaction) error {
	args := m.Called(ctx, bill, receipt, order, txn)
	return args.Error(0)
}

// MockMatchDecisionStore is a mock implementation of MatchDecisionStore
type MockMatchDecisionStore struct {
	mock.Mock
}

func (m *MockMatchDecisionStore) SaveApproval(ctx context.Context, match *procurement.ThreeWayMatch, bill *procurement.VendorBill, payment *procurement.VendorPayment, txn *ledger.JournalTransaction) error {
	args := m.Called(ctx, match, bill, payment, txn)
	return args.Error(0)
}

// MockSequenceGenerator is a mock implementation of SequenceGenerator
type MockSequenceGenerator struct {
	mock.Mock
}

func (m *MockSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, docType procurement.DocumentType, t time.Time) (string, error) {
	args := m.Called(ctx, tenantID, docType, t)
	return args.String(0), args.Error(1)
}

// MockAuditSink is a mock implementation of shared.AuditSink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, event shared.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTaskService is a mock implementation of shared.TaskService
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, task shared.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskService) CompleteTasksFor(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, category string) error {
	args := m.Called(ctx, tenantID, entityType, entityID, category)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Test helper functions

func newTestTenantID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestActorID() uuid.UUID {
	return uuid.MustParse("22222222-2222-2222-2222-222222222222")
}

func newTestVendorID() uuid.UUID {
	return uuid.MustParse("33333333-3333-3333-3333-333333333333")
}

// createConfirmedOrder builds a confirmed order with a single 100 x 10.00
// line at 18% GST
func createConfirmedOrder(tenantID uuid.UUID) *procurement.PurchaseOrder {
	order, _ := procurement.NewPurchaseOrder(tenantID, "PO/2026/01/0001", newTestVendorID(), "Acme Industrial Supplies", newTestActorID(), false)
	_, _ = order.AddItem(uuid.New(), "Hydraulic Pump Unit",
		decimal.NewFromInt(100), valueobject.NewMoneyINR(decimal.RequireFromString("10.00")), decimal.NewFromInt(18))
	_ = order.Confirm()
	return order
}

// createCompletedReceipt builds a completed receipt covering the whole order
func createCompletedReceipt(order *procurement.PurchaseOrder) *procurement.GoodsReceipt {
	receipt, _ := procurement.NewGoodsReceipt(order.TenantID, "GR/2026/01/0001", order.ID, order.VendorID, newTestActorID())
	for _, item := range order.Items {
		_, _ = receipt.AddItem(item.ID, item.ProductID, item.Description,
			item.OrderedQuantity, item.OrderedQuantity, decimal.Zero, procurement.ItemConditionGood)
	}
	_ = receipt.Complete("")
	return receipt
}

// createPostedBill builds a posted bill mirroring the receipt's lines
func createPostedBill(order *procurement.PurchaseOrder, receipt *procurement.GoodsReceipt) *procurement.VendorBill {
	bill, _ := procurement.NewVendorBill(order.TenantID, "BILL/2026/01/0001", order.VendorID, order.VendorName, procurement.BillSourceTypeGoodsReceipt)
	_ = bill.SetSource(receipt.ID, order.ID)
	for _, item := range receipt.Items {
		orderItem := order.GetItem(item.OrderItemID)
		_, _ = bill.AddLineItem(orderItem.Description, item.ReceivedQty, orderItem.GetUnitPriceMoney(), orderItem.GSTRate)
	}
	_ = bill.MarkPosted()
	return bill
}

// createBankAccount builds an active bank account with the given code
func createBankAccount(tenantID uuid.UUID, code string) *ledger.Account {
	account, _ := ledger.NewAccount(tenantID, code, "Operating Bank Account", ledger.AccountTypeAsset, true)
	return account
}
