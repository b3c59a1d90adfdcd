package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"TractorMandi/internal/models"
)

// AuctionService owns the auction lifecycle: SCHEDULED -> LIVE -> ENDED,
// forward only. Ending an auction determines the winner, disposes deposits
// and records the outcome on the audit chain. Both the scheduler tick and an
// admin call may try the same transition concurrently; the row lock plus
// status precondition means exactly one wins and the other observes
// ErrAuctionAlreadyEnded.
type AuctionService struct {
	db       *gorm.DB
	deposits *DepositService
	audit    *AuditService
	notifier Notifier
}

func NewAuctionService(db *gorm.DB, deposits *DepositService, audit *AuditService, notifier Notifier) *AuctionService {
	return &AuctionService{db: db, deposits: deposits, audit: audit, notifier: notifier}
}

// CreateAuction puts an APPROVED vehicle up for auction.
func (s *AuctionService) CreateAuction(vehicleID uint, start, end time.Time, reservePrice, minIncrement int64) (*models.Auction, error) {
	if reservePrice <= 0 || minIncrement <= 0 {
		return nil, validationErr("reserve price and minimum increment must be positive")
	}
	if !end.After(start) {
		return nil, validationErr("auction end time must be after start time")
	}

	var auction models.Auction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var vehicle models.Vehicle
		if err := lockForUpdate(tx).First(&vehicle, vehicleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("vehicle %d not found", vehicleID)
			}
			return err
		}
		if vehicle.Status != models.VehicleApproved {
			return conflictErr("vehicle %d is not approved for auction (status %s)", vehicleID, vehicle.Status)
		}

		status := models.AuctionScheduled
		if !start.After(time.Now()) {
			status = models.AuctionLive
		}

		auction = models.Auction{
			VehicleID:    vehicleID,
			StartTime:    start,
			EndTime:      end,
			ReservePrice: reservePrice,
			MinIncrement: minIncrement,
			Status:       status,
		}
		if err := tx.Create(&auction).Error; err != nil {
			return err
		}

		return tx.Model(&vehicle).Update("status", models.VehicleAuction).Error
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Append(auctionStream(auction.ID), "auction.created", auction); err != nil {
		log.Printf("failed to audit auction %d creation: %v", auction.ID, err)
	}

	return &auction, nil
}

// StartAuction moves SCHEDULED -> LIVE. Safe under concurrent invocation:
// the loser of the race gets a conflict on the status precondition.
func (s *AuctionService) StartAuction(auctionID uint) (*models.Auction, error) {
	var auction models.Auction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&auction, auctionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("auction %d not found", auctionID)
			}
			return err
		}

		switch auction.Status {
		case models.AuctionLive:
			return nil // already live, nothing to do
		case models.AuctionEnded:
			return ErrAuctionAlreadyEnded
		}

		auction.Status = models.AuctionLive
		return tx.Model(&auction).Update("status", models.AuctionLive).Error
	})
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// EndAuction is the settlement step. Inside one transaction holding the
// auction row lock (the same lock PlaceBid takes) it picks the highest
// deposit-backed bid meeting the reserve, stamps the winning bid and creates
// the purchase — or, with no eligible winner, returns the vehicle to
// APPROVED. Deposit refunds and notifications run after commit: a refund
// failure is retried out-of-band and never rolls the ended auction back.
func (s *AuctionService) EndAuction(auctionID uint) (*models.Auction, error) {
	var auction models.Auction
	var winnerBidderID uint
	var winningAmount int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&auction, auctionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("auction %d not found", auctionID)
			}
			return err
		}

		if auction.Status == models.AuctionEnded {
			return ErrAuctionAlreadyEnded
		}

		var bids []models.Bid
		if err := tx.Where("auction_id = ?", auctionID).Order("amount DESC").Find(&bids).Error; err != nil {
			return err
		}

		// The winner is the highest bid meeting the reserve (equal counts)
		// whose bidder still holds a PAID deposit. A bid whose deposit was
		// refunded in the meantime is ineligible; the next bid is
		// considered instead.
		var winBid *models.Bid
		var winDeposit models.Deposit
		for i := range bids {
			if bids[i].Amount < auction.ReservePrice {
				break // sorted by amount, nothing below can win
			}
			res := tx.Where("auction_id = ? AND bidder_id = ? AND status = ?",
				auctionID, bids[i].BidderID, models.DepositPaid).Limit(1).Find(&winDeposit)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				winBid = &bids[i]
				break
			}
		}

		if winBid != nil {
			if err := tx.Model(&models.Bid{}).Where("id = ?", winBid.ID).
				Update("is_winning_bid", true).Error; err != nil {
				return err
			}

			// The winner's deposit is absorbed into the purchase balance.
			purchase := models.Purchase{
				BuyerID:   winBid.BidderID,
				VehicleID: auction.VehicleID,
				AuctionID: &auction.ID,
				Price:     winBid.Amount - winDeposit.Amount,
				Status:    models.PurchasePaymentPending,
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return err
			}

			winnerBidderID = winBid.BidderID
			winningAmount = winBid.Amount
			auction.WinnerID = &winBid.BidderID
			auction.Status = models.AuctionEnded
			return tx.Model(&models.Auction{}).Where("id = ?", auctionID).Updates(map[string]interface{}{
				"status":    models.AuctionEnded,
				"winner_id": winBid.BidderID,
			}).Error
		}

		// No winner: no bids, reserve not met, or no bid backed by a PAID
		// deposit. The vehicle goes back to APPROVED so it can be
		// re-auctioned.
		reason := "no bids received"
		if len(bids) > 0 {
			reason = "reserve price not met"
			if bids[0].Amount >= auction.ReservePrice {
				reason = "no eligible bid met the reserve"
			}
		}
		auction.Status = models.AuctionEnded
		auction.NoSaleReason = reason

		if err := tx.Model(&models.Auction{}).Where("id = ?", auctionID).Updates(map[string]interface{}{
			"status":         models.AuctionEnded,
			"no_sale_reason": reason,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", auction.VehicleID).
			Update("status", models.VehicleApproved).Error
	})
	if err != nil {
		return nil, err
	}

	// Post-commit effects. The auction end is final regardless of how these
	// fare; individual refund failures are flagged for retry inside the
	// deposit ledger.
	s.deposits.RefundAllExcept(auctionID, winnerBidderID, "auction ended")

	if _, err := s.audit.Append(auctionStream(auctionID), "auction.ended", auction); err != nil {
		log.Printf("failed to audit auction %d end: %v", auctionID, err)
	}
	s.notifier.AuctionEnded(auctionID, auction.WinnerID, winningAmount)

	return &auction, nil
}

// GetAuction loads an auction with its vehicle and winner.
func (s *AuctionService) GetAuction(auctionID uint) (*models.Auction, error) {
	var auction models.Auction
	if err := s.db.Preload("Vehicle").Preload("Winner").First(&auction, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("auction %d not found", auctionID)
		}
		return nil, err
	}
	return &auction, nil
}

// DueAuctions lists auctions the scheduler should act on: LIVE past their
// end time, and SCHEDULED past their start time.
func (s *AuctionService) DueAuctions(now time.Time) (toEnd, toStart []models.Auction, err error) {
	if err = s.db.Where("status = ? AND end_time < ?", models.AuctionLive, now).Find(&toEnd).Error; err != nil {
		return nil, nil, err
	}
	if err = s.db.Where("status = ? AND start_time <= ?", models.AuctionScheduled, now).Find(&toStart).Error; err != nil {
		return nil, nil, err
	}
	return toEnd, toStart, nil
}
