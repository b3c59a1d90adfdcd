package models

import (
	"time"

	"gorm.io/gorm"
)

type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "HELD"
	EscrowReleased EscrowStatus = "RELEASED"
	EscrowRefunded EscrowStatus = "REFUNDED"
	EscrowDisputed EscrowStatus = "DISPUTE"
)

// Escrow holds buyer funds for exactly one purchase (unique index on
// PurchaseID). Allowed transitions: HELD -> {RELEASED, REFUNDED, DISPUTE},
// DISPUTE -> {RELEASED, REFUNDED}. RELEASED and REFUNDED are terminal.
type Escrow struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	PurchaseID     uint           `gorm:"not null;uniqueIndex" json:"purchase_id"`
	Amount         int64          `gorm:"not null" json:"amount"` // paise
	Fee            int64          `gorm:"not null" json:"fee"`    // paise
	Status         EscrowStatus   `gorm:"type:varchar(20);not null;default:'HELD'" json:"status"`
	GatewayOrderID string         `gorm:"type:varchar(100);index" json:"gateway_order_id,omitempty"`
	PaymentID      string         `gorm:"type:varchar(100)" json:"payment_id,omitempty"`
	RefundID       string         `gorm:"type:varchar(100)" json:"refund_id,omitempty"`
	RefundFailed   bool           `gorm:"not null;default:false" json:"refund_failed"`

	// Dispute metadata, set when a party raises a dispute and when an
	// admin resolves it.
	DisputeRaisedBy *uint      `gorm:"index" json:"dispute_raised_by,omitempty"`
	DisputeReason   string     `gorm:"type:text" json:"dispute_reason,omitempty"`
	DisputedAt      *time.Time `json:"disputed_at,omitempty"`
	ResolvedBy      *uint      `gorm:"index" json:"resolved_by,omitempty"`
	Resolution      string     `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`

	ReleasedAt *time.Time     `json:"released_at,omitempty"`
	RefundedAt *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Purchase Purchase `gorm:"foreignKey:PurchaseID" json:"purchase,omitempty"`
}

func (Escrow) TableName() string {
	return "escrows"
}
