package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"TractorMandi/internal/models"
)

// testEnv wires the full service graph against an in-memory database and
// the fake gateway, the same shape main() builds in test mode.
type testEnv struct {
	db       *gorm.DB
	gateway  *FakeProvider
	audit    *AuditService
	notifier *NotificationService
	deposits *DepositService
	bids     *BidService
	auctions *AuctionService
	escrows  *EscrowService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Auction{},
		&models.Bid{},
		&models.Deposit{},
		&models.Purchase{},
		&models.Escrow{},
		&models.AuditRecord{},
		&models.Notification{},
	))

	gateway := NewFakeProvider("test-secret")
	audit := NewAuditService(db)
	notifier := NewNotificationService(db, nil)
	deposits := NewDepositService(db, gateway, audit, notifier)
	auctions := NewAuctionService(db, deposits, audit, notifier)
	bids := NewBidService(db, audit, notifier)
	escrows := NewEscrowService(db, gateway, audit, notifier)

	return &testEnv{
		db:       db,
		gateway:  gateway,
		audit:    audit,
		notifier: notifier,
		deposits: deposits,
		bids:     bids,
		auctions: auctions,
		escrows:  escrows,
	}
}

func (e *testEnv) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := models.User{
		FullName: name,
		Email:    fmt.Sprintf("%s-%d@example.com", name, time.Now().UnixNano()),
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *testEnv) createApprovedVehicle(t *testing.T, sellerID uint) *models.Vehicle {
	t.Helper()
	vehicle := models.Vehicle{
		SellerID: sellerID,
		Title:    "Mahindra 575 DI",
		Status:   models.VehicleApproved,
	}
	require.NoError(t, e.db.Create(&vehicle).Error)
	return &vehicle
}

// createLiveAuction opens an auction whose window spans now, so bids are
// accepted immediately.
func (e *testEnv) createLiveAuction(t *testing.T, vehicleID uint, reserve, increment int64) *models.Auction {
	t.Helper()
	auction, err := e.auctions.CreateAuction(vehicleID,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour), reserve, increment)
	require.NoError(t, err)
	require.Equal(t, models.AuctionLive, auction.Status)
	return auction
}

// payDeposit takes a bidder through request + gateway callback so they can
// bid.
func (e *testEnv) payDeposit(t *testing.T, auctionID, bidderID uint, amount int64) *models.Deposit {
	t.Helper()
	deposit, err := e.deposits.RequestDeposit(auctionID, bidderID, amount)
	require.NoError(t, err)

	paymentID := fmt.Sprintf("pay_%d_%d", auctionID, bidderID)
	deposit, err = e.deposits.ConfirmDeposit(deposit.ID, paymentID,
		e.gateway.Sign(deposit.GatewayOrderID, paymentID))
	require.NoError(t, err)
	require.Equal(t, models.DepositPaid, deposit.Status)
	return deposit
}

// createFundedEscrow builds a purchase, opens its escrow and confirms the
// buyer's payment, leaving the escrow HELD with a recorded payment.
func (e *testEnv) createFundedEscrow(t *testing.T, buyerID, vehicleID uint, amount int64) *models.Escrow {
	t.Helper()
	purchase := models.Purchase{
		BuyerID:   buyerID,
		VehicleID: vehicleID,
		Price:     amount,
		Status:    models.PurchasePaymentPending,
	}
	require.NoError(t, e.db.Create(&purchase).Error)

	escrow, err := e.escrows.CreateEscrow(purchase.ID, amount)
	require.NoError(t, err)

	paymentID := fmt.Sprintf("pay_escrow_%d", escrow.ID)
	escrow, err = e.escrows.ConfirmPayment(escrow.ID, paymentID,
		e.gateway.Sign(escrow.GatewayOrderID, paymentID))
	require.NoError(t, err)
	return escrow
}

func (e *testEnv) notificationCount(t *testing.T, userID uint, notifType models.NotificationType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, notifType).Count(&count).Error)
	return count
}
