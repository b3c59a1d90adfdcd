package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"TractorMandi/internal/models"
)

// DepositService owns the earnest-money (EMD) ledger. A bidder needs a PAID
// deposit before the bid ledger will accept a bid, and at auction end every
// PAID deposit except the winner's is refunded exactly once.
type DepositService struct {
	db       *gorm.DB
	gateway  PaymentProvider
	audit    *AuditService
	notifier Notifier
}

func NewDepositService(db *gorm.DB, gateway PaymentProvider, audit *AuditService, notifier Notifier) *DepositService {
	return &DepositService{db: db, gateway: gateway, audit: audit, notifier: notifier}
}

func auctionStream(auctionID uint) string {
	return fmt.Sprintf("auction:%d", auctionID)
}

// RequestDeposit creates a PENDING deposit and a gateway order for it.
// Requesting again while the first order is unpaid returns the same order.
func (s *DepositService) RequestDeposit(auctionID, bidderID uint, amount int64) (*models.Deposit, error) {
	if amount <= 0 {
		return nil, validationErr("deposit amount must be positive")
	}

	var auction models.Auction
	if err := s.db.Preload("Vehicle").First(&auction, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("auction %d not found", auctionID)
		}
		return nil, err
	}

	if auction.Status == models.AuctionEnded {
		return nil, conflictErr("auction %d has already ended", auctionID)
	}
	if auction.Vehicle.SellerID == bidderID {
		return nil, validationErr("seller cannot pay a deposit on their own auction")
	}

	var existing models.Deposit
	res := s.db.Where("auction_id = ? AND bidder_id = ?", auctionID, bidderID).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		if existing.Status == models.DepositPending {
			return &existing, nil
		}
		return nil, conflictErr("deposit already exists for this auction with status %s", existing.Status)
	}

	receipt := "emd_" + uuid.NewString()
	orderID, err := s.gateway.CreateOrder(amount, "INR", receipt, map[string]string{
		"auction_id": fmt.Sprint(auctionID),
		"bidder_id":  fmt.Sprint(bidderID),
		"purpose":    "emd",
	})
	if err != nil {
		return nil, gatewayErr(err, "failed to create gateway order")
	}

	deposit := models.Deposit{
		AuctionID:      auctionID,
		BidderID:       bidderID,
		Amount:         amount,
		Status:         models.DepositPending,
		GatewayOrderID: orderID,
	}
	if err := s.db.Create(&deposit).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictErr("deposit already exists for this auction")
		}
		return nil, err
	}

	return &deposit, nil
}

// ConfirmDeposit settles a deposit from a gateway callback. It is the
// idempotent end of the reconciliation contract: an already-PAID deposit
// returns as-is with no further side effects, so duplicate and replayed
// callbacks are harmless. A callback that fails signature verification or
// capture confirmation changes nothing.
func (s *DepositService) ConfirmDeposit(depositID uint, paymentID, signature string) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := s.db.First(&deposit, depositID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("deposit %d not found", depositID)
		}
		return nil, err
	}

	if deposit.Status == models.DepositPaid {
		return &deposit, nil
	}
	if deposit.Status == models.DepositRefunded {
		return nil, conflictErr("deposit %d has already been refunded", depositID)
	}

	if !s.gateway.VerifySignature(deposit.GatewayOrderID, paymentID, signature) {
		return nil, gatewayErr(nil, "invalid payment signature")
	}
	captured, err := s.gateway.IsCaptured(paymentID)
	if err != nil {
		return nil, gatewayErr(err, "failed to confirm capture with gateway")
	}
	if !captured {
		return nil, gatewayErr(nil, "payment %s is not captured", paymentID)
	}

	now := time.Now()
	res := s.db.Model(&models.Deposit{}).
		Where("id = ? AND status = ?", depositID, models.DepositPending).
		Updates(map[string]interface{}{
			"status":     models.DepositPaid,
			"payment_id": paymentID,
			"paid_at":    now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race with another callback; reload and report its outcome.
		if err := s.db.First(&deposit, depositID).Error; err != nil {
			return nil, err
		}
		if deposit.Status == models.DepositPaid {
			return &deposit, nil
		}
		return nil, conflictErr("deposit %d is no longer pending", depositID)
	}

	deposit.Status = models.DepositPaid
	deposit.PaymentID = paymentID
	deposit.PaidAt = &now

	if _, err := s.audit.Append(auctionStream(deposit.AuctionID), "deposit.paid", deposit); err != nil {
		log.Printf("failed to audit deposit %d payment: %v", deposit.ID, err)
	}
	s.notifier.DepositPaid(&deposit)

	return &deposit, nil
}

// RefundDeposit refunds a deposit exactly once. Already-REFUNDED is a no-op
// success. A gateway failure does not block the transition: the deposit
// still becomes REFUNDED with RefundFailed set so operators can retry —
// money owed must not get stuck, and a second refund can never be issued.
func (s *DepositService) RefundDeposit(depositID uint, reason string) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := s.db.First(&deposit, depositID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("deposit %d not found", depositID)
		}
		return nil, err
	}

	if deposit.Status == models.DepositRefunded {
		return &deposit, nil
	}

	// Claim the transition before touching the gateway, so only one caller
	// can ever issue the provider refund for this deposit.
	now := time.Now()
	res := s.db.Model(&models.Deposit{}).
		Where("id = ? AND status <> ?", depositID, models.DepositRefunded).
		Updates(map[string]interface{}{
			"status":      models.DepositRefunded,
			"refund_note": reason,
			"refunded_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another caller refunded it first; that is still success.
		if err := s.db.First(&deposit, depositID).Error; err != nil {
			return nil, err
		}
		return &deposit, nil
	}

	// Re-read after the claim: a concurrent ConfirmDeposit may have set the
	// payment id after the first load.
	if err := s.db.First(&deposit, depositID).Error; err != nil {
		return nil, err
	}

	if deposit.PaymentID != "" {
		id, err := s.gateway.Refund(deposit.PaymentID, deposit.Amount, map[string]string{
			"deposit_id": fmt.Sprint(deposit.ID),
			"reason":     reason,
		})
		if err != nil {
			deposit.RefundFailed = true
			deposit.RefundNote = fmt.Sprintf("%s (gateway refund failed: %v)", reason, err)
			log.Printf("gateway refund failed for deposit %d, flagged for retry: %v", deposit.ID, err)
			if err := s.db.Model(&models.Deposit{}).Where("id = ?", depositID).Updates(map[string]interface{}{
				"refund_failed": true,
				"refund_note":   deposit.RefundNote,
			}).Error; err != nil {
				return nil, err
			}
		} else {
			deposit.RefundID = id
			if err := s.db.Model(&models.Deposit{}).Where("id = ?", depositID).
				Update("refund_id", id).Error; err != nil {
				return nil, err
			}
		}
	}

	if _, err := s.audit.Append(auctionStream(deposit.AuctionID), "deposit.refunded", deposit); err != nil {
		log.Printf("failed to audit deposit %d refund: %v", deposit.ID, err)
	}
	s.notifier.DepositRefunded(&deposit)

	return &deposit, nil
}

// RefundAllExcept refunds every PAID deposit on an auction except the
// excluded bidder's (the winner; pass 0 to refund everyone). Per-deposit
// failures are collected, never aborting the batch.
func (s *DepositService) RefundAllExcept(auctionID, excludeBidderID uint, reason string) map[uint]error {
	var deposits []models.Deposit
	query := s.db.Where("auction_id = ? AND status = ?", auctionID, models.DepositPaid)
	if excludeBidderID != 0 {
		query = query.Where("bidder_id <> ?", excludeBidderID)
	}

	results := make(map[uint]error)
	if err := query.Find(&deposits).Error; err != nil {
		log.Printf("failed to list deposits for auction %d: %v", auctionID, err)
		return results
	}

	for _, d := range deposits {
		_, err := s.RefundDeposit(d.ID, reason)
		results[d.ID] = err
		if err != nil {
			log.Printf("failed to refund deposit %d for auction %d: %v", d.ID, auctionID, err)
		}
	}
	return results
}

// RetryFailedRefunds re-attempts the gateway refund for deposits that are
// REFUNDED on the ledger but whose gateway call failed. Operator-driven.
func (s *DepositService) RetryFailedRefunds() (int, error) {
	var deposits []models.Deposit
	if err := s.db.Where("status = ? AND refund_failed = ?", models.DepositRefunded, true).Find(&deposits).Error; err != nil {
		return 0, err
	}

	retried := 0
	for _, d := range deposits {
		if d.PaymentID == "" {
			continue
		}
		refundID, err := s.gateway.Refund(d.PaymentID, d.Amount, map[string]string{
			"deposit_id": fmt.Sprint(d.ID),
			"reason":     "refund retry",
		})
		if err != nil {
			log.Printf("refund retry still failing for deposit %d: %v", d.ID, err)
			continue
		}
		if err := s.db.Model(&models.Deposit{}).Where("id = ?", d.ID).Updates(map[string]interface{}{
			"refund_id":     refundID,
			"refund_failed": false,
		}).Error; err != nil {
			return retried, err
		}
		retried++
	}
	return retried, nil
}

// GetDeposit loads a single deposit.
func (s *DepositService) GetDeposit(depositID uint) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := s.db.First(&deposit, depositID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("deposit %d not found", depositID)
		}
		return nil, err
	}
	return &deposit, nil
}
