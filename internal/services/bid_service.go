package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"TractorMandi/internal/models"
)

// BidService validates and records bids. Bid insert and current_bid update
// happen inside one transaction holding the auction row lock, so no reader
// ever sees a current_bid without its bid record, and two bids can never
// validate against the same previous amount. Auction end takes the same
// lock, so a bid can't slip in while the winner is being determined.
type BidService struct {
	db       *gorm.DB
	audit    *AuditService
	notifier Notifier
}

func NewBidService(db *gorm.DB, audit *AuditService, notifier Notifier) *BidService {
	return &BidService{db: db, audit: audit, notifier: notifier}
}

// PlaceBid accepts a bid or rejects it with a specific error kind. On
// success the auction's current_bid equals the new bid's amount.
func (s *BidService) PlaceBid(auctionID, bidderID uint, amount int64) (*models.Bid, error) {
	var bid models.Bid
	var prevTopBidder uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var auction models.Auction
		if err := lockForUpdate(tx).First(&auction, auctionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("auction %d not found", auctionID)
			}
			return err
		}

		if auction.Status != models.AuctionLive {
			return conflictErr("auction %d is not live (status %s)", auctionID, auction.Status)
		}
		now := time.Now()
		if now.Before(auction.StartTime) {
			return conflictErr("auction %d has not started yet", auctionID)
		}
		if !now.Before(auction.EndTime) {
			return conflictErr("auction %d bidding window has closed", auctionID)
		}

		var vehicle models.Vehicle
		if err := tx.First(&vehicle, auction.VehicleID).Error; err != nil {
			return err
		}
		if vehicle.SellerID == bidderID {
			return validationErr("seller cannot bid on their own auction")
		}

		var deposit models.Deposit
		res := tx.Where("auction_id = ? AND bidder_id = ? AND status = ?",
			auctionID, bidderID, models.DepositPaid).Limit(1).Find(&deposit)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return validationErr("a paid deposit is required before bidding on this auction")
		}

		minAcceptable := auction.CurrentBid + auction.MinIncrement
		if amount < minAcceptable {
			return validationErr("bid of %d is below the minimum acceptable bid of %d", amount, minAcceptable)
		}

		var prevTop models.Bid
		res = tx.Where("auction_id = ?", auctionID).Order("amount DESC").Limit(1).Find(&prevTop)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			prevTopBidder = prevTop.BidderID
		}

		bid = models.Bid{
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
		}
		if err := tx.Create(&bid).Error; err != nil {
			return err
		}

		return tx.Model(&models.Auction{}).Where("id = ?", auctionID).
			Update("current_bid", amount).Error
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Append(auctionStream(auctionID), "bid.placed", bid); err != nil {
		log.Printf("failed to audit bid %d: %v", bid.ID, err)
	}
	if prevTopBidder != 0 && prevTopBidder != bidderID {
		s.notifier.Outbid(auctionID, prevTopBidder, amount)
	}

	return &bid, nil
}

// ListBids returns an auction's bids, highest first.
func (s *BidService) ListBids(auctionID uint) ([]models.Bid, error) {
	var bids []models.Bid
	if err := s.db.Where("auction_id = ?", auctionID).Order("amount DESC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}
