package procurement

import (
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AmountToleranceMode selects how the amount tolerance is evaluated
type AmountToleranceMode string

const (
	AmountToleranceModeAbsolute         AmountToleranceMode = "ABSOLUTE"           // absolute threshold only
	AmountToleranceModePercentage       AmountToleranceMode = "PERCENTAGE"         // percentage threshold only
	AmountToleranceModeWhicheverIsLower AmountToleranceMode = "WHICHEVER_IS_LOWER" // pass if either threshold passes
)

// IsValid checks if the mode is a valid AmountToleranceMode
func (m AmountToleranceMode) IsValid() bool {
	switch m {
	case AmountToleranceModeAbsolute, AmountToleranceModePercentage, AmountToleranceModeWhicheverIsLower:
		return true
	}
	return false
}

// String returns the string representation of AmountToleranceMode
func (m AmountToleranceMode) String() string {
	return string(m)
}

// Default tolerance thresholds applied when a tenant has no configuration
var (
	defaultQuantityTolerancePercent = decimal.NewFromInt(5)
	defaultPriceTolerancePercent    = decimal.NewFromInt(2)
	defaultAmountTolerancePercent   = decimal.NewFromInt(5)
)

// ToleranceConfig is the matching policy for three-way matching.
// It is a configuration entity, read-only during a match run: per-dimension
// thresholds, directional allow-flags and the amount comparison mode.
type ToleranceConfig struct {
	shared.TenantAggregateRoot
	Name                     string              `gorm:"type:varchar(100);not null"`
	QuantityTolerancePercent decimal.Decimal     `gorm:"type:decimal(8,4);not null"`
	PriceTolerancePercent    decimal.Decimal     `gorm:"type:decimal(8,4);not null"`
	AmountTolerancePercent   decimal.Decimal     `gorm:"type:decimal(8,4);not null"`
	AmountToleranceAbsolute  decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	AmountMode               AmountToleranceMode `gorm:"type:varchar(20);not null;default:'PERCENTAGE'"`
	AllowQuantityOverage     bool                `gorm:"not null;default:true"`
	AllowQuantityShortage    bool                `gorm:"not null;default:true"`
	AllowPriceIncrease       bool                `gorm:"not null;default:true"`
	AllowPriceDecrease       bool                `gorm:"not null;default:true"`
	AutoApprove              bool                `gorm:"not null;default:true"`
	AutoApproveCeiling       decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"` // with AutoApprove off, 0 sends every amount to approval
	Active                   bool                `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ToleranceConfig) TableName() string {
	return "tolerance_configs"
}

// NewToleranceConfig creates a new tolerance configuration
func NewToleranceConfig(tenantID uuid.UUID, name string) (*ToleranceConfig, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tolerance config name cannot be empty")
	}

	cfg := DefaultToleranceConfig(tenantID)
	cfg.Name = name
	return cfg, nil
}

// DefaultToleranceConfig returns the tolerance policy applied when no
// configuration exists for a tenant: 5% quantity, 2% price, 5% amount,
// all variance directions allowed, auto-approval enabled without a ceiling.
func DefaultToleranceConfig(tenantID uuid.UUID) *ToleranceConfig {
	return &ToleranceConfig{
		TenantAggregateRoot:      shared.NewTenantAggregateRoot(tenantID),
		Name:                     "Default",
		QuantityTolerancePercent: defaultQuantityTolerancePercent,
		PriceTolerancePercent:    defaultPriceTolerancePercent,
		AmountTolerancePercent:   defaultAmountTolerancePercent,
		AmountToleranceAbsolute:  decimal.Zero,
		AmountMode:               AmountToleranceModePercentage,
		AllowQuantityOverage:     true,
		AllowQuantityShortage:    true,
		AllowPriceIncrease:       true,
		AllowPriceDecrease:       true,
		AutoApprove:              true,
		AutoApproveCeiling:       decimal.Zero,
		Active:                   true,
	}
}

// ForTenant returns a copy of this profile bound to the given tenant. Used
// for deployment-wide fallback defaults supplied through configuration.
func (c *ToleranceConfig) ForTenant(tenantID uuid.UUID) *ToleranceConfig {
	clone := *c
	clone.TenantAggregateRoot = shared.NewTenantAggregateRoot(tenantID)
	return &clone
}

// Validate checks the configuration for contradictory values
func (c *ToleranceConfig) Validate() error {
	if c.QuantityTolerancePercent.IsNegative() ||
		c.PriceTolerancePercent.IsNegative() ||
		c.AmountTolerancePercent.IsNegative() {
		return shared.NewDomainError("INVALID_TOLERANCE", "Tolerance percentages cannot be negative")
	}
	if c.AmountToleranceAbsolute.IsNegative() {
		return shared.NewDomainError("INVALID_TOLERANCE", "Absolute amount tolerance cannot be negative")
	}
	if !c.AmountMode.IsValid() {
		return shared.NewDomainError("INVALID_TOLERANCE_MODE", "Unknown amount tolerance mode")
	}
	if c.AmountMode != AmountToleranceModePercentage && c.AmountToleranceAbsolute.IsZero() {
		return shared.NewDomainError("INVALID_TOLERANCE", "Absolute amount tolerance is required for the selected mode")
	}
	if c.AutoApproveCeiling.IsNegative() {
		return shared.NewDomainError("INVALID_CEILING", "Auto-approve ceiling cannot be negative")
	}
	return nil
}

// HasAutoApproveCeiling returns true if an auto-approve ceiling is configured
func (c *ToleranceConfig) HasAutoApproveCeiling() bool {
	return c.AutoApproveCeiling.GreaterThan(decimal.Zero)
}
