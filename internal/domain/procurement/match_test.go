package procurement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestMatch(t *testing.T) *ThreeWayMatch {
	order := buildTestOrder(t, "Steel Plate 3mm")
	receipt := buildFullReceipt(t, order)
	bill := buildTestBill(t, order, billLine{"Steel Plate 3mm", "110", "10.00"})

	match, err := NewMatchRunner(NewHeuristicLineMatcher()).Run(testMatchInput(t, order, receipt, bill))
	require.NoError(t, err)
	require.True(t, match.RequiresApproval)
	return match
}

func TestThreeWayMatchApprove(t *testing.T) {
	t.Run("approves a pending match", func(t *testing.T) {
		match := createTestMatch(t)
		approver := uuid.New()

		err := match.Approve(approver)
		require.NoError(t, err)
		assert.Equal(t, ApprovalStatusApproved, match.ApprovalStatus)
		assert.Equal(t, MatchStatusApprovedWithVariance, match.Status)
		assert.Equal(t, approver, *match.ApprovedBy)
		assert.NotNil(t, match.DecidedAt)
		assert.True(t, match.IsTerminal())
	})

	t.Run("fails without an approver", func(t *testing.T) {
		match := createTestMatch(t)
		err := match.Approve(uuid.Nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Approver ID cannot be empty")
	})

	t.Run("fails on an already approved match", func(t *testing.T) {
		match := createTestMatch(t)
		require.NoError(t, match.Approve(uuid.New()))

		err := match.Approve(uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already APPROVED")
	})

	t.Run("fails on a rejected match", func(t *testing.T) {
		match := createTestMatch(t)
		require.NoError(t, match.Reject(uuid.New(), "price dispute"))

		err := match.Approve(uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already REJECTED")
	})
}

func TestThreeWayMatchReject(t *testing.T) {
	t.Run("rejects a pending match with a reason", func(t *testing.T) {
		match := createTestMatch(t)
		rejector := uuid.New()

		err := match.Reject(rejector, "quantity overbilled")
		require.NoError(t, err)
		assert.Equal(t, ApprovalStatusRejected, match.ApprovalStatus)
		assert.Equal(t, MatchStatusRejected, match.Status)
		assert.Equal(t, "quantity overbilled", match.RejectionReason)
		assert.True(t, match.IsTerminal())
	})

	t.Run("fails without a reason", func(t *testing.T) {
		match := createTestMatch(t)
		err := match.Reject(uuid.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reason is required")
	})

	t.Run("fails on an already decided match", func(t *testing.T) {
		match := createTestMatch(t)
		require.NoError(t, match.Approve(uuid.New()))

		err := match.Reject(uuid.New(), "changed my mind")
		require.Error(t, err)
	})
}

func TestThreeWayMatchRecordPostedBill(t *testing.T) {
	t.Run("records the bill on an approved match", func(t *testing.T) {
		match := createTestMatch(t)
		require.NoError(t, match.Approve(uuid.New()))

		billID := uuid.New()
		require.NoError(t, match.RecordPostedBill(billID))
		assert.Equal(t, billID, *match.PostedBillID)
	})

	t.Run("fails on an undecided match", func(t *testing.T) {
		match := createTestMatch(t)
		err := match.RecordPostedBill(uuid.New())
		require.Error(t, err)
	})

	t.Run("fails on a rejected match", func(t *testing.T) {
		match := createTestMatch(t)
		require.NoError(t, match.Reject(uuid.New(), "no"))
		err := match.RecordPostedBill(uuid.New())
		require.Error(t, err)
	})
}
