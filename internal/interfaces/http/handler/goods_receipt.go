package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	procureapp "github.com/procureflow/backend/internal/application/procurement"
)

// GoodsReceiptHandler handles goods receipt API endpoints
type GoodsReceiptHandler struct {
	BaseHandler
	receiptService *procureapp.ReceiptService
}

// NewGoodsReceiptHandler creates a new GoodsReceiptHandler
func NewGoodsReceiptHandler(receiptService *procureapp.ReceiptService) *GoodsReceiptHandler {
	return &GoodsReceiptHandler{receiptService: receiptService}
}

// ApproveReceiptPaymentRequest represents a request to approve a receipt for payment
// @Description Request body for approving a completed receipt for payment
type ApproveReceiptPaymentRequest struct {
	BankAccountCode string `json:"bank_account_code" binding:"required,min=1,max=20" example:"1000"`
}

// Create godoc
// @ID           createGoodsReceipt
// @Summary      Record a goods receipt
// @Description  Record received goods against a confirmed purchase order, updating the order's running totals
// @Tags         goods-receipts
// @Accept       json
// @Produce      json
// @Param        request body procureapp.CreateReceiptRequest true "Goods receipt creation request"
// @Success      201 {object} APIResponse[procureapp.ReceiptResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/receipts [post]
func (h *GoodsReceiptHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var req procureapp.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.receiptService.CreateReceipt(c.Request.Context(), tenantID, actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, receipt)
}

// Complete godoc
// @ID           completeGoodsReceipt
// @Summary      Complete a goods receipt
// @Description  Complete an in-progress receipt, creating the payment approval task and attempting automatic bill creation
// @Tags         goods-receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        request body procureapp.CompleteReceiptRequest true "Completion request"
// @Success      200 {object} APIResponse[procureapp.ReceiptResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/receipts/{id}/complete [post]
func (h *GoodsReceiptHandler) Complete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req procureapp.CompleteReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.receiptService.CompleteReceipt(c.Request.Context(), tenantID, actorID, receiptID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// CreateBill godoc
// @ID           createBillFromReceipt
// @Summary      Create the vendor bill for a receipt
// @Description  Generate and post the vendor bill for a completed receipt; at most one bill is ever created per receipt
// @Tags         goods-receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      201 {object} APIResponse[procureapp.BillResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/receipts/{id}/bill [post]
func (h *GoodsReceiptHandler) CreateBill(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	bill, err := h.receiptService.CreateBillFromReceipt(c.Request.Context(), tenantID, actorID, receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, bill)
}

// ApproveForPayment godoc
// @ID           approveReceiptForPayment
// @Summary      Approve a receipt for payment
// @Description  Approve a completed, billed receipt for payment from a bank account
// @Tags         goods-receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        request body ApproveReceiptPaymentRequest true "Approval request"
// @Success      200 {object} APIResponse[procureapp.ReceiptResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/receipts/{id}/approve-payment [post]
func (h *GoodsReceiptHandler) ApproveForPayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req ApproveReceiptPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.receiptService.ApproveForPayment(c.Request.Context(), tenantID, actorID, receiptID, req.BankAccountCode)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// GetByID godoc
// @ID           getGoodsReceiptById
// @Summary      Get goods receipt by ID
// @Tags         goods-receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} APIResponse[procureapp.ReceiptResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/receipts/{id} [get]
func (h *GoodsReceiptHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), tenantID, receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// List godoc
// @ID           listGoodsReceipts
// @Summary      List goods receipts
// @Tags         goods-receipts
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Receipt status" Enums(IN_PROGRESS, COMPLETED)
// @Param        search query string false "Search term"
// @Success      200 {object} APIResponse[[]procureapp.ReceiptResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/receipts [get]
func (h *GoodsReceiptHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter procureapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipts, err := h.receiptService.ListReceipts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipts)
}
