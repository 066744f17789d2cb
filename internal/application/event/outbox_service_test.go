package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// adminOutboxRepo is an in-memory repository covering only the surface the
// admin service touches.
type adminOutboxRepo struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newAdminOutboxRepo() *adminOutboxRepo {
	return &adminOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *adminOutboxRepo) add(status shared.OutboxStatus, eventType string) *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateID:   uuid.New(),
		AggregateType: "GoodsReceipt",
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = 5
		entry.MaxRetries = 5
		entry.LastError = "broker unreachable"
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *adminOutboxRepo) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *adminOutboxRepo) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *adminOutboxRepo) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *adminOutboxRepo) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(dead) {
		end = len(dead)
	}
	return dead[start:end], total, nil
}

func (r *adminOutboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	return r.entries[id], nil
}

func (r *adminOutboxRepo) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *adminOutboxRepo) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *adminOutboxRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *adminOutboxRepo) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func newOutboxServiceUnderTest() (*OutboxService, *adminOutboxRepo) {
	repo := newAdminOutboxRepo()
	return NewOutboxService(repo, zap.NewNop()), repo
}

func TestListDeadLetters(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()

	for i := 0; i < 5; i++ {
		repo.add(shared.OutboxStatusDead, "procurement.goods_receipt.completed")
	}
	repo.add(shared.OutboxStatusPending, "procurement.match.approved")

	page, err := service.ListDeadLetters(context.Background(), DeadLetterQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Entries, 5)
	for _, entry := range page.Entries {
		assert.Equal(t, "DEAD", entry.Status)
		assert.Equal(t, "broker unreachable", entry.LastError)
	}
}

func TestListDeadLettersClampsQuery(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()
	repo.add(shared.OutboxStatusDead, "procurement.bill.posted")

	// Zero values fall back to page 1 / size 20 rather than an error.
	page, err := service.ListDeadLetters(context.Background(), DeadLetterQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Entries, 1)
}

func TestRequeueDeadLetter(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()
	dead := repo.add(shared.OutboxStatusDead, "procurement.discrepancy.raised")

	view, err := service.RequeueDeadLetter(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", view.Status)
	assert.Equal(t, 0, view.RetryCount)
	assert.Empty(t, view.LastError)
}

func TestRequeueDeadLetterRejections(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()
	pending := repo.add(shared.OutboxStatusPending, "procurement.match.approved")

	t.Run("unknown entry", func(t *testing.T) {
		_, err := service.RequeueDeadLetter(context.Background(), uuid.New())
		assert.Error(t, err)
	})

	t.Run("entry not dead", func(t *testing.T) {
		_, err := service.RequeueDeadLetter(context.Background(), pending.ID)
		assert.Error(t, err)
	})
}

func TestRequeueAllDeadLetters(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()
	for i := 0; i < 3; i++ {
		repo.add(shared.OutboxStatusDead, "procurement.goods_receipt.completed")
	}
	pending := repo.add(shared.OutboxStatusPending, "procurement.payment.generated")

	count, err := service.RequeueAllDeadLetters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, entry := range repo.entries {
		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
		if entry.ID != pending.ID {
			assert.Equal(t, 0, entry.RetryCount)
		}
	}
}

func TestOutboxStats(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()

	for status, n := range map[shared.OutboxStatus]int{
		shared.OutboxStatusPending:    2,
		shared.OutboxStatusProcessing: 1,
		shared.OutboxStatusSent:       3,
		shared.OutboxStatusFailed:     1,
		shared.OutboxStatusDead:       1,
	} {
		for i := 0; i < n; i++ {
			repo.add(status, "procurement.bill.posted")
		}
	}

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}

func TestEntryLookup(t *testing.T) {
	service, repo := newOutboxServiceUnderTest()
	dead := repo.add(shared.OutboxStatusDead, "procurement.goods_receipt.completed")

	view, err := service.Entry(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, dead.ID, view.ID)
	assert.Equal(t, "procurement.goods_receipt.completed", view.EventType)

	_, err = service.Entry(context.Background(), uuid.New())
	assert.Error(t, err)
}
