package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentSequenceModel is one monthly counter per tenant and document type
type DocumentSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocType   string    `gorm:"type:varchar(10);primaryKey"`
	Period    string    `gorm:"type:varchar(7);primaryKey"` // YYYY/MM
	Counter   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}

// GormSequenceGenerator issues gapless document numbers in the form
// TYPE/YYYY/MM/NNNN. The counter row is locked for the duration of the
// increment, so concurrent callers serialize on it and never see the same
// number twice.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next document number for the type and month of t
func (g *GormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, docType procurement.DocumentType, t time.Time) (string, error) {
	period := t.Format("2006/01")

	var next int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq DocumentSequenceModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND doc_type = ? AND period = ?", tenantID, string(docType), period).
			First(&seq).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seq = DocumentSequenceModel{
				TenantID:  tenantID,
				DocType:   string(docType),
				Period:    period,
				Counter:   1,
				UpdatedAt: time.Now(),
			}
			// Two first-of-the-month callers can race to insert; the loser
			// retries through the conflict as a plain increment.
			if createErr := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "tenant_id"}, {Name: "doc_type"}, {Name: "period"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"counter":    gorm.Expr("document_sequences.counter + 1"),
					"updated_at": time.Now(),
				}),
			}).Create(&seq).Error; createErr != nil {
				return createErr
			}
			if readErr := tx.
				Where("tenant_id = ? AND doc_type = ? AND period = ?", tenantID, string(docType), period).
				First(&seq).Error; readErr != nil {
				return readErr
			}
			next = seq.Counter
			return nil
		case err != nil:
			return err
		}

		seq.Counter++
		seq.UpdatedAt = time.Now()
		if saveErr := tx.Save(&seq).Error; saveErr != nil {
			return saveErr
		}
		next = seq.Counter
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate %s sequence: %w", docType, err)
	}

	return fmt.Sprintf("%s/%s/%04d", docType, period, next), nil
}

// Ensure GormSequenceGenerator implements SequenceGenerator
var _ procurement.SequenceGenerator = (*GormSequenceGenerator)(nil)
