package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/application/event"
)

// OutboxHandler exposes the event outbox to operators: dead letter
// inspection, requeueing, and per-status counts.
type OutboxHandler struct {
	BaseHandler
	outbox *event.OutboxService
}

func NewOutboxHandler(outbox *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// ListDeadLetters godoc
// @ID           listOutboxDeadLetters
// @Summary      List dead letter entries
// @Description  Page through outbox entries that exhausted their delivery retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[OutboxListResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var query event.DeadLetterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.outbox.ListDeadLetters(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxListResponse(page))
}

// GetByID godoc
// @ID           getOutboxEntry
// @Summary      Get an outbox entry
// @Description  Retrieve a single outbox entry by its ID
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox Entry ID" format(uuid)
// @Success      200 {object} APIResponse[OutboxEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/{id} [get]
func (h *OutboxHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outbox.Entry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxEntryResponse(entry))
}

// Requeue godoc
// @ID           requeueOutboxDeadLetter
// @Summary      Requeue a dead letter entry
// @Description  Put a dead letter entry back on the delivery queue with a fresh retry budget
// @Tags         outbox
// @Accept       json
// @Produce      json
// @Param        id path string true "Outbox Entry ID" format(uuid)
// @Success      200 {object} APIResponse[OutboxEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/{id}/retry [post]
func (h *OutboxHandler) Requeue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outbox.RequeueDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxEntryResponse(entry))
}

// RequeueAll godoc
// @ID           requeueAllOutboxDeadLetters
// @Summary      Requeue all dead letter entries
// @Description  Sweep the dead letter queue and requeue every entry
// @Tags         outbox
// @Accept       json
// @Produce      json
// @Success      200 {object} APIResponse[RequeueAllResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead/retry-all [post]
func (h *OutboxHandler) RequeueAll(c *gin.Context) {
	count, err := h.outbox.RequeueAllDeadLetters(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RequeueAllResponse{Count: count})
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Get outbox statistics
// @Description  Count outbox entries per delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[OutboxStatsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxStatsResponse(stats))
}

// OutboxEntryResponse is the wire form of a single outbox entry.
type OutboxEntryResponse struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenant_id"`
	EventID       string  `json:"event_id"`
	EventType     string  `json:"event_type"`
	AggregateID   string  `json:"aggregate_id"`
	AggregateType string  `json:"aggregate_type"`
	Status        string  `json:"status"`
	RetryCount    int     `json:"retry_count"`
	MaxRetries    int     `json:"max_retries"`
	LastError     string  `json:"last_error,omitempty"`
	NextRetryAt   *string `json:"next_retry_at,omitempty"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// OutboxListResponse is one page of dead letter entries.
type OutboxListResponse struct {
	Entries    []OutboxEntryResponse `json:"entries"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// OutboxStatsResponse counts outbox entries per delivery status.
type OutboxStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// RequeueAllResponse reports how many dead letters a sweep requeued.
type RequeueAllResponse struct {
	Count int64 `json:"count"`
}

func rfc3339OrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toOutboxEntryResponse(view *event.OutboxEntryView) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            view.ID.String(),
		TenantID:      view.TenantID.String(),
		EventID:       view.EventID.String(),
		EventType:     view.EventType,
		AggregateID:   view.AggregateID.String(),
		AggregateType: view.AggregateType,
		Status:        view.Status,
		RetryCount:    view.RetryCount,
		MaxRetries:    view.MaxRetries,
		LastError:     view.LastError,
		NextRetryAt:   rfc3339OrNil(view.NextRetryAt),
		ProcessedAt:   rfc3339OrNil(view.ProcessedAt),
		CreatedAt:     view.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     view.UpdatedAt.Format(time.RFC3339),
	}
}

func toOutboxListResponse(page *event.DeadLetterPage) OutboxListResponse {
	entries := make([]OutboxEntryResponse, len(page.Entries))
	for i := range page.Entries {
		entries[i] = toOutboxEntryResponse(&page.Entries[i])
	}
	return OutboxListResponse{
		Entries:    entries,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

func toOutboxStatsResponse(stats *event.OutboxStats) OutboxStatsResponse {
	return OutboxStatsResponse{
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Sent:       stats.Sent,
		Failed:     stats.Failed,
		Dead:       stats.Dead,
		Total:      stats.Total,
	}
}
