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

// Escrow fee bounds, in paise: 2% of the held amount clamped to [500, 5000].
const (
	escrowFeePercent = 2
	escrowFeeMin     = 500
	escrowFeeMax     = 5000
)

// EscrowService holds buyer funds for a purchase and drives them to exactly
// one terminal state. Every transition checks its expected prior status
// under the escrow row lock, so concurrent conflicting calls fail safely:
// the first valid transition wins and the second gets a conflict.
type EscrowService struct {
	db       *gorm.DB
	gateway  PaymentProvider
	audit    *AuditService
	notifier Notifier
}

func NewEscrowService(db *gorm.DB, gateway PaymentProvider, audit *AuditService, notifier Notifier) *EscrowService {
	return &EscrowService{db: db, gateway: gateway, audit: audit, notifier: notifier}
}

func purchaseStream(purchaseID uint) string {
	return fmt.Sprintf("purchase:%d", purchaseID)
}

// EscrowFee computes the platform fee for holding an amount.
func EscrowFee(amount int64) int64 {
	fee := amount * escrowFeePercent / 100
	if fee < escrowFeeMin {
		return escrowFeeMin
	}
	if fee > escrowFeeMax {
		return escrowFeeMax
	}
	return fee
}

// CreateEscrow opens the hold for a purchase and creates the gateway order
// the buyer pays. Exactly one escrow per purchase; the unique index on
// purchase_id backs up the explicit check.
func (s *EscrowService) CreateEscrow(purchaseID uint, amount int64) (*models.Escrow, error) {
	if amount <= 0 {
		return nil, validationErr("escrow amount must be positive")
	}

	var purchase models.Purchase
	if err := s.db.First(&purchase, purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("purchase %d not found", purchaseID)
		}
		return nil, err
	}
	if purchase.Status == models.PurchaseCancelled {
		return nil, conflictErr("purchase %d is cancelled", purchaseID)
	}

	var existing models.Escrow
	res := s.db.Where("purchase_id = ?", purchaseID).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return nil, conflictErr("an escrow already exists for purchase %d", purchaseID)
	}

	fee := EscrowFee(amount)
	receipt := "escrow_" + uuid.NewString()
	orderID, err := s.gateway.CreateOrder(amount+fee, "INR", receipt, map[string]string{
		"purchase_id": fmt.Sprint(purchaseID),
		"purpose":     "escrow",
	})
	if err != nil {
		return nil, gatewayErr(err, "failed to create gateway order")
	}

	escrow := models.Escrow{
		PurchaseID:     purchaseID,
		Amount:         amount,
		Fee:            fee,
		Status:         models.EscrowHeld,
		GatewayOrderID: orderID,
	}
	if err := s.db.Create(&escrow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictErr("an escrow already exists for purchase %d", purchaseID)
		}
		return nil, err
	}

	if _, err := s.audit.Append(purchaseStream(purchaseID), "escrow.created", escrow); err != nil {
		log.Printf("failed to audit escrow %d creation: %v", escrow.ID, err)
	}

	return &escrow, nil
}

// ConfirmPayment settles the buyer's escrow payment from a gateway callback.
// Idempotent: an escrow whose payment is already recorded returns as-is.
// On first confirmation the purchase moves payment_pending -> pending (funds
// secured) and the vehicle becomes SOLD.
func (s *EscrowService) ConfirmPayment(escrowID uint, paymentID, signature string) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := s.db.Preload("Purchase").First(&escrow, escrowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("escrow %d not found", escrowID)
		}
		return nil, err
	}

	if escrow.PaymentID != "" {
		return &escrow, nil
	}
	if escrow.Status != models.EscrowHeld {
		return nil, conflictErr("escrow %d is %s, payment can no longer be confirmed", escrowID, escrow.Status)
	}

	if !s.gateway.VerifySignature(escrow.GatewayOrderID, paymentID, signature) {
		return nil, gatewayErr(nil, "invalid payment signature")
	}
	captured, err := s.gateway.IsCaptured(paymentID)
	if err != nil {
		return nil, gatewayErr(err, "failed to confirm capture with gateway")
	}
	if !captured {
		return nil, gatewayErr(nil, "payment %s is not captured", paymentID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Escrow{}).
			Where("id = ? AND payment_id = ''", escrowID).
			Update("payment_id", paymentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // concurrent callback got here first
		}

		if err := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", escrow.PurchaseID, models.PurchasePaymentPending).
			Update("status", models.PurchasePending).Error; err != nil {
			return err
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", escrow.Purchase.VehicleID).
			Update("status", models.VehicleSold).Error
	})
	if err != nil {
		return nil, err
	}

	escrow.PaymentID = paymentID
	if _, err := s.audit.Append(purchaseStream(escrow.PurchaseID), "escrow.funded", escrow); err != nil {
		log.Printf("failed to audit escrow %d funding: %v", escrow.ID, err)
	}

	return &escrow, nil
}

// Release pays the seller out. Allowed from HELD or DISPUTE; terminal states
// conflict. A pending purchase is marked completed.
func (s *EscrowService) Release(escrowID uint, reason string, resolvedBy uint) (*models.Escrow, error) {
	var escrow models.Escrow
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Preload("Purchase").First(&escrow, escrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("escrow %d not found", escrowID)
			}
			return err
		}

		if escrow.Status != models.EscrowHeld && escrow.Status != models.EscrowDisputed {
			return conflictErr("escrow %d cannot be released from status %s", escrowID, escrow.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":      models.EscrowReleased,
			"released_at": now,
		}
		if escrow.Status == models.EscrowDisputed {
			updates["resolved_by"] = resolvedBy
			updates["resolution"] = reason
			updates["resolved_at"] = now
			escrow.ResolvedBy = &resolvedBy
			escrow.Resolution = reason
			escrow.ResolvedAt = &now
		}
		if err := tx.Model(&models.Escrow{}).Where("id = ?", escrowID).Updates(updates).Error; err != nil {
			return err
		}
		escrow.Status = models.EscrowReleased
		escrow.ReleasedAt = &now

		return tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", escrow.PurchaseID, models.PurchasePending).
			Updates(map[string]interface{}{
				"status":       models.PurchaseCompleted,
				"completed_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Append(purchaseStream(escrow.PurchaseID), "escrow.released", escrow); err != nil {
		log.Printf("failed to audit escrow %d release: %v", escrow.ID, err)
	}
	s.notifier.EscrowClosed(&escrow)

	return &escrow, nil
}

// Refund sends the held funds back to the buyer, cancels the purchase and
// makes the vehicle available again. Allowed from HELD or DISPUTE. A gateway
// refund failure does not block the transition; it flags the escrow for an
// operator retry.
func (s *EscrowService) Refund(escrowID uint, reason string, resolvedBy uint) (*models.Escrow, error) {
	var escrow models.Escrow
	now := time.Now()

	// Claim the transition under the row lock before touching the gateway,
	// so a concurrent Release or second Refund cannot slip in while the
	// provider call is in flight.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Preload("Purchase").First(&escrow, escrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("escrow %d not found", escrowID)
			}
			return err
		}

		if escrow.Status != models.EscrowHeld && escrow.Status != models.EscrowDisputed {
			return conflictErr("escrow %d cannot be refunded from status %s", escrowID, escrow.Status)
		}

		updates := map[string]interface{}{
			"status":      models.EscrowRefunded,
			"refunded_at": now,
		}
		if escrow.Status == models.EscrowDisputed {
			updates["resolved_by"] = resolvedBy
			updates["resolution"] = reason
			updates["resolved_at"] = now
			escrow.ResolvedBy = &resolvedBy
			escrow.Resolution = reason
			escrow.ResolvedAt = &now
		}
		if err := tx.Model(&models.Escrow{}).Where("id = ?", escrowID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Purchase{}).Where("id = ?", escrow.PurchaseID).Updates(map[string]interface{}{
			"status":       models.PurchaseCancelled,
			"cancelled_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", escrow.Purchase.VehicleID).
			Update("status", models.VehicleApproved).Error
	})
	if err != nil {
		return nil, err
	}

	escrow.Status = models.EscrowRefunded
	escrow.RefundedAt = &now

	if escrow.PaymentID != "" {
		id, err := s.gateway.Refund(escrow.PaymentID, escrow.Amount, map[string]string{
			"escrow_id": fmt.Sprint(escrow.ID),
			"reason":    reason,
		})
		if err != nil {
			escrow.RefundFailed = true
			log.Printf("gateway refund failed for escrow %d, flagged for retry: %v", escrow.ID, err)
			if err := s.db.Model(&models.Escrow{}).Where("id = ?", escrowID).
				Update("refund_failed", true).Error; err != nil {
				return nil, err
			}
		} else {
			escrow.RefundID = id
			if err := s.db.Model(&models.Escrow{}).Where("id = ?", escrowID).
				Update("refund_id", id).Error; err != nil {
				return nil, err
			}
		}
	}

	if _, err := s.audit.Append(purchaseStream(escrow.PurchaseID), "escrow.refunded", escrow); err != nil {
		log.Printf("failed to audit escrow %d refund: %v", escrow.ID, err)
	}
	s.notifier.EscrowClosed(&escrow)

	return &escrow, nil
}

// RaiseDispute freezes the escrow pending an admin decision. Only from HELD
// and only by the purchase's buyer or the vehicle's seller — the HTTP layer
// checks roles, but ownership is re-validated here as the second line of
// defense.
func (s *EscrowService) RaiseDispute(escrowID, raisedBy uint, description string) (*models.Escrow, error) {
	if description == "" {
		return nil, validationErr("a dispute needs a description")
	}

	var escrow models.Escrow
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Preload("Purchase").First(&escrow, escrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("escrow %d not found", escrowID)
			}
			return err
		}

		if escrow.Status != models.EscrowHeld {
			return conflictErr("escrow %d cannot be disputed from status %s", escrowID, escrow.Status)
		}

		var vehicle models.Vehicle
		if err := tx.First(&vehicle, escrow.Purchase.VehicleID).Error; err != nil {
			return err
		}
		if raisedBy != escrow.Purchase.BuyerID && raisedBy != vehicle.SellerID {
			return authorizationErr("only the buyer or the seller may raise a dispute")
		}

		now := time.Now()
		escrow.Status = models.EscrowDisputed
		escrow.DisputeRaisedBy = &raisedBy
		escrow.DisputeReason = description
		escrow.DisputedAt = &now

		return tx.Model(&models.Escrow{}).Where("id = ?", escrowID).Updates(map[string]interface{}{
			"status":            models.EscrowDisputed,
			"dispute_raised_by": raisedBy,
			"dispute_reason":    description,
			"disputed_at":       now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Append(purchaseStream(escrow.PurchaseID), "escrow.disputed", escrow); err != nil {
		log.Printf("failed to audit escrow %d dispute: %v", escrow.ID, err)
	}
	s.notifier.EscrowDisputed(&escrow, raisedBy)

	return &escrow, nil
}

// GetEscrow loads an escrow with its purchase.
func (s *EscrowService) GetEscrow(escrowID uint) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := s.db.Preload("Purchase").First(&escrow, escrowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("escrow %d not found", escrowID)
		}
		return nil, err
	}
	return &escrow, nil
}
