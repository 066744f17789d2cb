package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	procureapp "github.com/procureflow/backend/internal/application/procurement"
)

// ThreeWayMatchHandler handles three-way match API endpoints
type ThreeWayMatchHandler struct {
	BaseHandler
	matchService *procureapp.MatchService
}

// NewThreeWayMatchHandler creates a new ThreeWayMatchHandler
func NewThreeWayMatchHandler(matchService *procureapp.MatchService) *ThreeWayMatchHandler {
	return &ThreeWayMatchHandler{matchService: matchService}
}

// Run godoc
// @ID           runThreeWayMatch
// @Summary      Run a three-way match
// @Description  Compare a purchase order, goods receipt and vendor bill under the tenant's tolerance policy
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        request body procureapp.RunMatchRequest true "Match run request"
// @Success      201 {object} APIResponse[procureapp.MatchResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/matches [post]
func (h *ThreeWayMatchHandler) Run(c *gin.Context) {
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

	var req procureapp.RunMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	match, err := h.matchService.RunMatch(c.Request.Context(), tenantID, actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, match)
}

// Approve godoc
// @ID           approveThreeWayMatch
// @Summary      Approve a match
// @Description  Approve a pending match, generating the vendor payment and its balanced journal transaction
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        id path string true "Match ID" format(uuid)
// @Param        request body procureapp.ApproveMatchRequest true "Approval request"
// @Success      200 {object} APIResponse[procureapp.MatchDecisionResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/matches/{id}/approve [post]
func (h *ThreeWayMatchHandler) Approve(c *gin.Context) {
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
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid match ID format")
		return
	}

	var req procureapp.ApproveMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	decision, err := h.matchService.ApproveMatch(c.Request.Context(), tenantID, actorID, matchID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, decision)
}

// Reject godoc
// @ID           rejectThreeWayMatch
// @Summary      Reject a match
// @Description  Reject a pending match with a reason; no financial side effect follows
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        id path string true "Match ID" format(uuid)
// @Param        request body procureapp.RejectMatchRequest true "Rejection request"
// @Success      200 {object} APIResponse[procureapp.MatchResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/matches/{id}/reject [post]
func (h *ThreeWayMatchHandler) Reject(c *gin.Context) {
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
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid match ID format")
		return
	}

	var req procureapp.RejectMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	match, err := h.matchService.RejectMatch(c.Request.Context(), tenantID, actorID, matchID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, match)
}

// GetByID godoc
// @ID           getThreeWayMatchById
// @Summary      Get match by ID
// @Tags         matches
// @Produce      json
// @Param        id path string true "Match ID" format(uuid)
// @Success      200 {object} APIResponse[procureapp.MatchResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/matches/{id} [get]
func (h *ThreeWayMatchHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid match ID format")
		return
	}

	match, err := h.matchService.GetMatch(c.Request.Context(), tenantID, matchID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, match)
}

// List godoc
// @ID           listThreeWayMatches
// @Summary      List matches
// @Tags         matches
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Match status"
// @Success      200 {object} APIResponse[[]procureapp.MatchResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /procurement/matches [get]
func (h *ThreeWayMatchHandler) List(c *gin.Context) {
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

	matches, err := h.matchService.ListMatches(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, matches)
}
