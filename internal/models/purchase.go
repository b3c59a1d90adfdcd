package models

import (
	"time"

	"gorm.io/gorm"
)

type PurchaseStatus string

const (
	PurchasePaymentPending PurchaseStatus = "payment_pending"
	PurchasePending        PurchaseStatus = "pending"
	PurchaseCompleted      PurchaseStatus = "completed"
	PurchaseCancelled      PurchaseStatus = "cancelled"
)

// Purchase links a buyer to a vehicle, either through an auction win or a
// direct pre-approved sale (AuctionID nil). The vehicle becomes SOLD only
// once the purchase reaches 'pending' — funds secured — never at
// 'payment_pending'.
type Purchase struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	BuyerID        uint           `gorm:"not null;index" json:"buyer_id"`
	VehicleID      uint           `gorm:"not null;index" json:"vehicle_id"`
	AuctionID      *uint          `gorm:"index" json:"auction_id,omitempty"`
	Price          int64          `gorm:"not null" json:"price"`                   // paise
	TransactionFee int64          `gorm:"not null;default:0" json:"transaction_fee"` // paise
	Status         PurchaseStatus `gorm:"type:varchar(20);not null;default:'payment_pending'" json:"status"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CancelledAt    *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Buyer   User     `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Vehicle Vehicle  `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Auction *Auction `gorm:"foreignKey:AuctionID" json:"auction,omitempty"`
}

func (Purchase) TableName() string {
	return "purchases"
}
