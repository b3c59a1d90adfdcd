package models

import (
	"time"

	"gorm.io/gorm"
)

type AuctionStatus string

const (
	AuctionScheduled AuctionStatus = "SCHEDULED"
	AuctionLive      AuctionStatus = "LIVE"
	AuctionEnded     AuctionStatus = "ENDED"
)

// Auction owns one vehicle's sale window. Status only moves forward
// (SCHEDULED -> LIVE -> ENDED) and CurrentBid never decreases once LIVE.
// Winner is set only at ENDED when a deposit-backed bid meets the reserve.
type Auction struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	VehicleID    uint           `gorm:"not null;index" json:"vehicle_id"`
	StartTime    time.Time      `gorm:"not null" json:"start_time"`
	EndTime      time.Time      `gorm:"not null" json:"end_time"`
	ReservePrice int64          `gorm:"not null" json:"reserve_price"` // paise
	MinIncrement int64          `gorm:"not null" json:"min_increment"` // paise
	CurrentBid   int64          `gorm:"not null;default:0" json:"current_bid"`
	Status       AuctionStatus  `gorm:"type:varchar(20);not null;default:'SCHEDULED'" json:"status"`
	WinnerID     *uint          `gorm:"index" json:"winner_id,omitempty"`
	NoSaleReason string         `gorm:"type:text" json:"no_sale_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Vehicle Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Winner  *User   `gorm:"foreignKey:WinnerID" json:"winner,omitempty"`
	Bids    []Bid   `gorm:"foreignKey:AuctionID" json:"bids,omitempty"`
}

func (Auction) TableName() string {
	return "auctions"
}

// Bid is immutable once accepted except for the winning flag stamped at
// auction end.
type Bid struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	AuctionID    uint      `gorm:"not null;index" json:"auction_id"`
	BidderID     uint      `gorm:"not null;index" json:"bidder_id"`
	Amount       int64     `gorm:"not null" json:"amount"` // paise
	IsWinningBid bool      `gorm:"not null;default:false" json:"is_winning_bid"`
	CreatedAt    time.Time `json:"created_at"`

	Auction Auction `gorm:"foreignKey:AuctionID" json:"auction,omitempty"`
	Bidder  User    `gorm:"foreignKey:BidderID" json:"bidder,omitempty"`
}

func (Bid) TableName() string {
	return "bids"
}
