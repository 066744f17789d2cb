package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxService is the operational surface over the event outbox. The
// publisher drains entries on its own; this service exists for operators to
// inspect stuck deliveries and requeue dead letters after the downstream
// cause (a broken consumer, a schema mismatch) has been fixed.
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryView is the read model for a single outbox entry.
type OutboxEntryView struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeadLetterQuery carries pagination for dead letter listings.
type DeadLetterQuery struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// normalize clamps the query to sane bounds so a missing or hostile query
// string never turns into an unbounded scan.
func (q DeadLetterQuery) normalize() (page, size int) {
	page, size = q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// DeadLetterPage is one page of dead letter entries.
type DeadLetterPage struct {
	Entries    []OutboxEntryView `json:"entries"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// OutboxStats counts entries per delivery status.
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDeadLetters returns a page of entries that exhausted their retries.
func (s *OutboxService) ListDeadLetters(ctx context.Context, q DeadLetterQuery) (*DeadLetterPage, error) {
	page, size := q.normalize()

	entries, total, err := s.repo.FindDead(ctx, page, size)
	if err != nil {
		s.logger.Error("dead letter listing failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
	}

	totalPages := int(total) / size
	if int(total)%size > 0 {
		totalPages++
	}

	views := make([]OutboxEntryView, len(entries))
	for i, entry := range entries {
		views[i] = newOutboxEntryView(entry)
	}

	return &DeadLetterPage{
		Entries:    views,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

// Entry looks up one outbox entry by its ID.
func (s *OutboxService) Entry(ctx context.Context, id uuid.UUID) (*OutboxEntryView, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("outbox entry lookup failed", zap.Error(err), zap.String("entry_id", id.String()))
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Outbox entry not found")
	}
	if entry == nil {
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Outbox entry not found")
	}

	view := newOutboxEntryView(entry)
	return &view, nil
}

// RequeueDeadLetter puts a single dead letter back on the delivery queue
// with a fresh retry budget. Only DEAD entries can be requeued.
func (s *OutboxService) RequeueDeadLetter(ctx context.Context, id uuid.UUID) (*OutboxEntryView, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("outbox entry lookup failed", zap.Error(err), zap.String("entry_id", id.String()))
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Outbox entry not found")
	}
	if entry == nil {
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Outbox entry not found")
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATUS", err.Error())
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("outbox entry update failed", zap.Error(err), zap.String("entry_id", id.String()))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to requeue entry")
	}

	s.logger.Info("dead letter requeued",
		zap.String("entry_id", id.String()),
		zap.String("event_type", entry.EventType),
	)

	view := newOutboxEntryView(entry)
	return &view, nil
}

// RequeueAllDeadLetters walks the dead letter queue and requeues every entry
// it can. Entries that fail individually are skipped so one bad row does not
// block the rest of the sweep.
func (s *OutboxService) RequeueAllDeadLetters(ctx context.Context) (int64, error) {
	const batchSize = 100

	var count int64
	for page := 1; ; page++ {
		entries, _, err := s.repo.FindDead(ctx, page, batchSize)
		if err != nil {
			s.logger.Error("dead letter listing failed", zap.Error(err))
			return count, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("outbox entry update failed", zap.Error(err), zap.String("entry_id", entry.ID.String()))
				continue
			}
			count++
		}

		if len(entries) < batchSize {
			break
		}
	}

	s.logger.Info("dead letter sweep finished", zap.Int64("requeued", count))
	return count, nil
}

// Stats tallies outbox entries per status.
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("outbox stats query failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get outbox stats")
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func newOutboxEntryView(entry *shared.OutboxEntry) OutboxEntryView {
	return OutboxEntryView{
		ID:            entry.ID,
		TenantID:      entry.TenantID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
