package models

import (
	"time"

	"gorm.io/gorm"
)

type VehicleStatus string

const (
	VehiclePending  VehicleStatus = "PENDING"
	VehicleApproved VehicleStatus = "APPROVED"
	VehicleRejected VehicleStatus = "REJECTED"
	VehicleAuction  VehicleStatus = "AUCTION"
	VehicleSold     VehicleStatus = "SOLD"
)

// Vehicle is the tractor listing the settlement core acts on. Listing CRUD
// lives elsewhere; the core only moves status at auction end and at
// purchase completion or refund.
type Vehicle struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	SellerID     uint           `gorm:"not null;index" json:"seller_id"`
	Title        string         `gorm:"not null" json:"title"`
	Brand        string         `json:"brand,omitempty"`
	ModelYear    int            `json:"model_year,omitempty"`
	HoursUsed    int            `json:"hours_used,omitempty"`
	AskingPrice  int64          `json:"asking_price,omitempty"` // paise
	Status       VehicleStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	RejectReason string         `gorm:"type:text" json:"reject_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Seller User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
