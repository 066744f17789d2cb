package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	procureapp "github.com/procureflow/backend/internal/application/procurement"
)

// VendorBillHandler handles vendor bill API endpoints
type VendorBillHandler struct {
	BaseHandler
	billService *procureapp.BillService
}

// NewVendorBillHandler creates a new VendorBillHandler
func NewVendorBillHandler(billService *procureapp.BillService) *VendorBillHandler {
	return &VendorBillHandler{billService: billService}
}

// GetByID godoc
// @ID           getVendorBillById
// @Summary      Get vendor bill by ID
// @Tags         vendor-bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[procureapp.BillResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/bills/{id} [get]
func (h *VendorBillHandler) GetByID(c *gin.Context) {
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

	bill, err := h.billService.GetBill(c.Request.Context(), tenantID, billID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, bill)
}

// List godoc
// @ID           listVendorBills
// @Summary      List vendor bills
// @Tags         vendor-bills
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Payment status" Enums(UNPAID, PARTIALLY_PAID, PAID)
// @Param        search query string false "Search term"
// @Success      200 {object} APIResponse[[]procureapp.BillResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/bills [get]
func (h *VendorBillHandler) List(c *gin.Context) {
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

	bills, err := h.billService.ListBills(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, bills)
}

// GetJournal godoc
// @ID           getVendorBillJournal
// @Summary      Get the journal transaction posted for a bill
// @Tags         vendor-bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[ledger.JournalTransaction]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/bills/{id}/journal [get]
func (h *VendorBillHandler) GetJournal(c *gin.Context) {
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

	txn, err := h.billService.GetBillJournal(c.Request.Context(), tenantID, billID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, txn)
}
