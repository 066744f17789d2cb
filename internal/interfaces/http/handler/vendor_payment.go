package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	procureapp "github.com/procureflow/backend/internal/application/procurement"
)

// VendorPaymentHandler handles vendor payment API endpoints
type VendorPaymentHandler struct {
	BaseHandler
	paymentService *procureapp.PaymentService
}

// NewVendorPaymentHandler creates a new VendorPaymentHandler
func NewVendorPaymentHandler(paymentService *procureapp.PaymentService) *VendorPaymentHandler {
	return &VendorPaymentHandler{paymentService: paymentService}
}

// Complete godoc
// @ID           completeVendorPayment
// @Summary      Mark a pending payment as executed
// @Tags         vendor-payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body procureapp.CompletePaymentRequest true "Completion details"
// @Success      200 {object} APIResponse[procureapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/payments/{id}/complete [post]
func (h *VendorPaymentHandler) Complete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req procureapp.CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.CompletePayment(c.Request.Context(), tenantID, userID, paymentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// Cancel godoc
// @ID           cancelVendorPayment
// @Summary      Cancel a pending payment
// @Tags         vendor-payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body procureapp.CancelPaymentRequest true "Cancellation reason"
// @Success      200 {object} APIResponse[procureapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/payments/{id}/cancel [post]
func (h *VendorPaymentHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req procureapp.CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.CancelPayment(c.Request.Context(), tenantID, userID, paymentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// GetByID godoc
// @ID           getVendorPaymentById
// @Summary      Get vendor payment by ID
// @Tags         vendor-payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[procureapp.PaymentResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/payments/{id} [get]
func (h *VendorPaymentHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @ID           listVendorPayments
// @Summary      List vendor payments
// @Tags         vendor-payments
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Payment status" Enums(PENDING, COMPLETED, CANCELLED)
// @Success      200 {object} APIResponse[[]procureapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/payments [get]
func (h *VendorPaymentHandler) List(c *gin.Context) {
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

	payments, err := h.paymentService.ListPayments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payments)
}

// ListForBill godoc
// @ID           listVendorPaymentsForBill
// @Summary      List payments recorded against a bill
// @Tags         vendor-payments
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[[]procureapp.PaymentResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/bills/{id}/payments [get]
func (h *VendorPaymentHandler) ListForBill(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	payments, err := h.paymentService.ListPaymentsForBill(c.Request.Context(), tenantID, billID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payments)
}
