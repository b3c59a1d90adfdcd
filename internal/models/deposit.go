package models

import (
	"time"

	"gorm.io/gorm"
)

type DepositStatus string

const (
	DepositPending  DepositStatus = "PENDING"
	DepositPaid     DepositStatus = "PAID"
	DepositRefunded DepositStatus = "REFUNDED"
)

// Deposit is the earnest money (EMD) a bidder must pay before bidding on an
// auction. One per (auction, bidder). The winner's deposit is absorbed into
// the purchase; every other PAID deposit is refunded exactly once at auction
// end. RefundFailed marks deposits whose gateway refund needs an operator
// retry — status is still REFUNDED so a second refund can never be issued.
type Deposit struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	AuctionID      uint           `gorm:"not null;uniqueIndex:idx_deposits_auction_bidder" json:"auction_id"`
	BidderID       uint           `gorm:"not null;uniqueIndex:idx_deposits_auction_bidder" json:"bidder_id"`
	Amount         int64          `gorm:"not null" json:"amount"` // paise
	Status         DepositStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	GatewayOrderID string         `gorm:"type:varchar(100);index" json:"gateway_order_id,omitempty"`
	PaymentID      string         `gorm:"type:varchar(100)" json:"payment_id,omitempty"`
	RefundID       string         `gorm:"type:varchar(100)" json:"refund_id,omitempty"`
	RefundFailed   bool           `gorm:"not null;default:false" json:"refund_failed"`
	RefundNote     string         `gorm:"type:text" json:"refund_note,omitempty"`
	PaidAt         *time.Time     `json:"paid_at,omitempty"`
	RefundedAt     *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Auction Auction `gorm:"foreignKey:AuctionID" json:"auction,omitempty"`
	Bidder  User    `gorm:"foreignKey:BidderID" json:"bidder,omitempty"`
}

func (Deposit) TableName() string {
	return "deposits"
}
