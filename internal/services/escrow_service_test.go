package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TractorMandi/internal/models"
)

func TestEscrowFeeClamp(t *testing.T) {
	assert.Equal(t, int64(500), EscrowFee(10000))    // 2% = 200, clamped up
	assert.Equal(t, int64(500), EscrowFee(25000))    // 2% = 500, at the floor
	assert.Equal(t, int64(1000), EscrowFee(50000))   // 2% within bounds
	assert.Equal(t, int64(5000), EscrowFee(250000))  // 2% = 5000, at the cap
	assert.Equal(t, int64(5000), EscrowFee(2000000)) // 2% = 40000, clamped down
}

func TestCreateEscrowIsUniquePerPurchase(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)

	purchase := models.Purchase{
		BuyerID:   buyer.ID,
		VehicleID: vehicle.ID,
		Price:     105000,
		Status:    models.PurchasePaymentPending,
	}
	require.NoError(t, env.db.Create(&purchase).Error)

	escrow, err := env.escrows.CreateEscrow(purchase.ID, 105000)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowHeld, escrow.Status)
	assert.Equal(t, EscrowFee(105000), escrow.Fee)
	assert.NotEmpty(t, escrow.GatewayOrderID)

	_, err = env.escrows.CreateEscrow(purchase.ID, 105000)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestConfirmPaymentSecuresFunds(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)

	purchase := models.Purchase{
		BuyerID:   buyer.ID,
		VehicleID: vehicle.ID,
		Price:     105000,
		Status:    models.PurchasePaymentPending,
	}
	require.NoError(t, env.db.Create(&purchase).Error)

	escrow, err := env.escrows.CreateEscrow(purchase.ID, 105000)
	require.NoError(t, err)

	// Bad signature changes nothing.
	_, err = env.escrows.ConfirmPayment(escrow.ID, "pay_1", "garbage")
	require.Error(t, err)
	assert.Equal(t, KindGateway, KindOf(err))

	sig := env.gateway.Sign(escrow.GatewayOrderID, "pay_1")
	confirmed, err := env.escrows.ConfirmPayment(escrow.ID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", confirmed.PaymentID)

	var reloadedPurchase models.Purchase
	require.NoError(t, env.db.First(&reloadedPurchase, purchase.ID).Error)
	assert.Equal(t, models.PurchasePending, reloadedPurchase.Status)

	var reloadedVehicle models.Vehicle
	require.NoError(t, env.db.First(&reloadedVehicle, vehicle.ID).Error)
	assert.Equal(t, models.VehicleSold, reloadedVehicle.Status)

	// Replayed callback returns the same result, no further writes.
	again, err := env.escrows.ConfirmPayment(escrow.ID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", again.PaymentID)
}

func TestReleasePaysSellerOut(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	released, err := env.escrows.Release(escrow.ID, "delivery confirmed", 0)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	var purchase models.Purchase
	require.NoError(t, env.db.First(&purchase, escrow.PurchaseID).Error)
	assert.Equal(t, models.PurchaseCompleted, purchase.Status)
	assert.NotNil(t, purchase.CompletedAt)

	// Terminal: neither release nor refund may run again.
	_, err = env.escrows.Release(escrow.ID, "again", 0)
	assert.Equal(t, KindConflict, KindOf(err))
	_, err = env.escrows.Refund(escrow.ID, "too late", 0)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, int64(0), env.gateway.RefundedTotal(escrow.PaymentID))
}

func TestRefundReturnsFundsAndVehicle(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	refunded, err := env.escrows.Refund(escrow.ID, "deal fell through", 0)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowRefunded, refunded.Status)
	assert.NotEmpty(t, refunded.RefundID)
	assert.False(t, refunded.RefundFailed)

	// The held amount comes back, not the fee.
	assert.Equal(t, int64(105000), env.gateway.RefundedTotal(escrow.PaymentID))

	var purchase models.Purchase
	require.NoError(t, env.db.First(&purchase, escrow.PurchaseID).Error)
	assert.Equal(t, models.PurchaseCancelled, purchase.Status)

	var reloadedVehicle models.Vehicle
	require.NoError(t, env.db.First(&reloadedVehicle, vehicle.ID).Error)
	assert.Equal(t, models.VehicleApproved, reloadedVehicle.Status)

	// Never twice.
	_, err = env.escrows.Refund(escrow.ID, "again", 0)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, int64(105000), env.gateway.RefundedTotal(escrow.PaymentID))
}

// releaseDuringRefundGateway fires a Release for the same escrow while the
// refund's provider call is in flight.
type releaseDuringRefundGateway struct {
	*FakeProvider
	escrows    *EscrowService
	escrowID   uint
	fired      bool
	releaseErr error
}

func (g *releaseDuringRefundGateway) Refund(paymentID string, amount int64, notes map[string]string) (string, error) {
	if !g.fired {
		g.fired = true
		_, g.releaseErr = g.escrows.Release(g.escrowID, "racing release", 0)
	}
	return g.FakeProvider.Refund(paymentID, amount, notes)
}

func TestRefundClaimsEscrowBeforeGatewayCall(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	gw := &releaseDuringRefundGateway{FakeProvider: env.gateway, escrows: env.escrows, escrowID: escrow.ID}
	svc := NewEscrowService(env.db, gw, env.audit, env.notifier)

	refunded, err := svc.Refund(escrow.ID, "deal fell through", 0)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowRefunded, refunded.Status)

	// The concurrent release lost: the escrow was claimed before the
	// provider refund, so the buyer is refunded and the seller is not paid.
	require.Error(t, gw.releaseErr)
	assert.Equal(t, KindConflict, KindOf(gw.releaseErr))
	assert.Equal(t, int64(105000), env.gateway.RefundedTotal(escrow.PaymentID))

	final, err := env.escrows.GetEscrow(escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowRefunded, final.Status)
}

func TestRaiseDisputeOnlyFromHeldByParties(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	stranger := env.createUser(t, "stranger")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	_, err := env.escrows.RaiseDispute(escrow.ID, stranger.ID, "not my deal")
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))

	_, err = env.escrows.RaiseDispute(escrow.ID, buyer.ID, "")
	assert.Equal(t, KindValidation, KindOf(err))

	disputed, err := env.escrows.RaiseDispute(escrow.ID, buyer.ID, "tractor not as described")
	require.NoError(t, err)
	assert.Equal(t, models.EscrowDisputed, disputed.Status)
	require.NotNil(t, disputed.DisputeRaisedBy)
	assert.Equal(t, buyer.ID, *disputed.DisputeRaisedBy)

	// Only HELD can be disputed.
	_, err = env.escrows.RaiseDispute(escrow.ID, seller.ID, "me too")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestSellerMayRaiseDispute(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	disputed, err := env.escrows.RaiseDispute(escrow.ID, seller.ID, "buyer refuses handover")
	require.NoError(t, err)
	assert.Equal(t, models.EscrowDisputed, disputed.Status)
}

func TestDisputeResolution(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	admin := env.createUser(t, "admin")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	_, err := env.escrows.RaiseDispute(escrow.ID, buyer.ID, "tractor not as described")
	require.NoError(t, err)

	resolved, err := env.escrows.Release(escrow.ID, "inspection cleared the listing", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowReleased, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, admin.ID, *resolved.ResolvedBy)
	assert.Equal(t, "inspection cleared the listing", resolved.Resolution)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestDisputedEscrowMayBeRefunded(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	admin := env.createUser(t, "admin")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	_, err := env.escrows.RaiseDispute(escrow.ID, buyer.ID, "engine seized on day one")
	require.NoError(t, err)

	refunded, err := env.escrows.Refund(escrow.ID, "buyer complaint upheld", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowRefunded, refunded.Status)
	require.NotNil(t, refunded.ResolvedBy)
	assert.Equal(t, admin.ID, *refunded.ResolvedBy)
	assert.Equal(t, int64(105000), env.gateway.RefundedTotal(escrow.PaymentID))
}

func TestEscrowAuditChainCoversLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "buyer")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	escrow := env.createFundedEscrow(t, buyer.ID, vehicle.ID, 105000)

	_, err := env.escrows.Release(escrow.ID, "delivery confirmed", 0)
	require.NoError(t, err)

	records, err := env.audit.Records(purchaseStream(escrow.PurchaseID))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "escrow.created", records[0].RecordType)
	assert.Equal(t, "escrow.funded", records[1].RecordType)
	assert.Equal(t, "escrow.released", records[2].RecordType)

	valid, _, err := env.audit.VerifyChain(purchaseStream(escrow.PurchaseID))
	require.NoError(t, err)
	assert.True(t, valid)
}
