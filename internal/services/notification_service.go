package services

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"

	"TractorMandi/internal/models"
)

// Notifier is what the settlement core calls when something a user or
// operator cares about happens. Delivery is fire-and-forget: failures are
// logged and never block a state transition.
type Notifier interface {
	AuctionEnded(auctionID uint, winnerID *uint, amount int64)
	Outbid(auctionID, bidderID uint, newAmount int64)
	DepositPaid(deposit *models.Deposit)
	DepositRefunded(deposit *models.Deposit)
	EscrowDisputed(escrow *models.Escrow, raisedBy uint)
	EscrowClosed(escrow *models.Escrow)
}

type NotificationService struct {
	db    *gorm.DB
	email *EmailService
}

func NewNotificationService(db *gorm.DB, email *EmailService) *NotificationService {
	return &NotificationService{db: db, email: email}
}

func (s *NotificationService) create(userID uint, notifType models.NotificationType, title, message string, data map[string]interface{}) {
	var dataJSON string
	if data != nil {
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			log.Printf("failed to marshal notification data: %v", err)
			return
		}
		dataJSON = string(jsonBytes)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("failed to create notification for user %d: %v", userID, err)
	}
}

func (s *NotificationService) AuctionEnded(auctionID uint, winnerID *uint, amount int64) {
	if winnerID == nil {
		return
	}
	s.create(
		*winnerID,
		models.NotificationAuctionWon,
		"You won the auction",
		fmt.Sprintf("Your bid of ₹%.2f won auction #%d. Complete the payment to secure the tractor.", float64(amount)/100, auctionID),
		map[string]interface{}{
			"auction_id": auctionID,
			"amount":     amount,
		},
	)
}

func (s *NotificationService) Outbid(auctionID, bidderID uint, newAmount int64) {
	s.create(
		bidderID,
		models.NotificationOutbid,
		"You have been outbid",
		fmt.Sprintf("Someone bid ₹%.2f on auction #%d.", float64(newAmount)/100, auctionID),
		map[string]interface{}{
			"auction_id": auctionID,
			"amount":     newAmount,
		},
	)
}

func (s *NotificationService) DepositPaid(deposit *models.Deposit) {
	s.create(
		deposit.BidderID,
		models.NotificationDepositPaid,
		"Deposit confirmed",
		fmt.Sprintf("Your EMD of ₹%.2f for auction #%d is confirmed. You can bid now.", float64(deposit.Amount)/100, deposit.AuctionID),
		map[string]interface{}{
			"auction_id": deposit.AuctionID,
			"deposit_id": deposit.ID,
		},
	)
}

func (s *NotificationService) DepositRefunded(deposit *models.Deposit) {
	s.create(
		deposit.BidderID,
		models.NotificationDepositRefunded,
		"Deposit refunded",
		fmt.Sprintf("Your EMD of ₹%.2f for auction #%d has been refunded.", float64(deposit.Amount)/100, deposit.AuctionID),
		map[string]interface{}{
			"auction_id": deposit.AuctionID,
			"deposit_id": deposit.ID,
		},
	)

	if deposit.RefundFailed && s.email != nil {
		if err := s.email.SendOpsAlert(
			fmt.Sprintf("Deposit refund needs retry (deposit #%d)", deposit.ID),
			fmt.Sprintf("Gateway refund failed for deposit #%d (auction #%d, bidder #%d): %s", deposit.ID, deposit.AuctionID, deposit.BidderID, deposit.RefundNote),
		); err != nil {
			log.Printf("failed to send refund-retry alert: %v", err)
		}
	}
}

func (s *NotificationService) EscrowDisputed(escrow *models.Escrow, raisedBy uint) {
	s.create(
		raisedBy,
		models.NotificationEscrowDisputed,
		"Dispute raised",
		fmt.Sprintf("Your dispute on escrow #%d has been recorded. Our team will review it shortly.", escrow.ID),
		map[string]interface{}{
			"escrow_id": escrow.ID,
		},
	)

	if s.email != nil {
		if err := s.email.SendOpsAlert(
			fmt.Sprintf("Escrow dispute raised (escrow #%d)", escrow.ID),
			fmt.Sprintf("User #%d raised a dispute on escrow #%d: %s", raisedBy, escrow.ID, escrow.DisputeReason),
		); err != nil {
			log.Printf("failed to send dispute alert: %v", err)
		}
	}
}

func (s *NotificationService) EscrowClosed(escrow *models.Escrow) {
	notifType := models.NotificationEscrowReleased
	title := "Escrow released"
	message := fmt.Sprintf("Funds for escrow #%d were released to the seller.", escrow.ID)
	if escrow.Status == models.EscrowRefunded {
		notifType = models.NotificationEscrowRefunded
		title = "Escrow refunded"
		message = fmt.Sprintf("Funds for escrow #%d were refunded to you.", escrow.ID)
	}

	s.create(escrow.Purchase.BuyerID, notifType, title, message, map[string]interface{}{
		"escrow_id": escrow.ID,
	})
}
