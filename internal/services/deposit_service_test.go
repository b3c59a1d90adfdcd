package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TractorMandi/internal/models"
)

// refundFailingGateway simulates a gateway whose refund endpoint is down
// while everything else works.
type refundFailingGateway struct {
	*FakeProvider
}

func (g *refundFailingGateway) Refund(paymentID string, amount int64, notes map[string]string) (string, error) {
	return "", fmt.Errorf("gateway timeout")
}

func TestRequestDepositReusesPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)

	first, err := env.deposits.RequestDeposit(auction.ID, bidder.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, first.Status)
	assert.NotEmpty(t, first.GatewayOrderID)

	second, err := env.deposits.RequestDeposit(auction.ID, bidder.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
}

func TestRequestDepositRejectsSeller(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)

	_, err := env.deposits.RequestDeposit(auction.ID, seller.ID, 10000)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRequestDepositRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)

	_, err := env.deposits.RequestDeposit(auction.ID, bidder.ID, 0)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestConfirmDepositRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)

	deposit, err := env.deposits.RequestDeposit(auction.ID, bidder.ID, 10000)
	require.NoError(t, err)

	_, err = env.deposits.ConfirmDeposit(deposit.ID, "pay_1", "not-a-signature")
	require.Error(t, err)
	assert.Equal(t, KindGateway, KindOf(err))

	reloaded, err := env.deposits.GetDeposit(deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, reloaded.Status)
	assert.Empty(t, reloaded.PaymentID)
}

func TestConfirmDepositIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)

	deposit, err := env.deposits.RequestDeposit(auction.ID, bidder.ID, 10000)
	require.NoError(t, err)
	sig := env.gateway.Sign(deposit.GatewayOrderID, "pay_1")

	first, err := env.deposits.ConfirmDeposit(deposit.ID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPaid, first.Status)
	assert.Equal(t, "pay_1", first.PaymentID)
	assert.NotNil(t, first.PaidAt)

	auditBefore, err := env.audit.Records(auctionStream(auction.ID))
	require.NoError(t, err)

	// Replayed callback returns the same outcome with no new side effects.
	second, err := env.deposits.ConfirmDeposit(deposit.ID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPaid, second.Status)
	assert.Equal(t, "pay_1", second.PaymentID)

	auditAfter, err := env.audit.Records(auctionStream(auction.ID))
	require.NoError(t, err)
	assert.Len(t, auditAfter, len(auditBefore))
	assert.Equal(t, int64(1), env.notificationCount(t, bidder.ID, models.NotificationDepositPaid))
}

func TestRefundDepositRefundsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)
	deposit := env.payDeposit(t, auction.ID, bidder.ID, 10000)

	refunded, err := env.deposits.RefundDeposit(deposit.ID, "auction ended")
	require.NoError(t, err)
	assert.Equal(t, models.DepositRefunded, refunded.Status)
	assert.NotEmpty(t, refunded.RefundID)
	assert.False(t, refunded.RefundFailed)
	assert.Equal(t, int64(10000), env.gateway.RefundedTotal(deposit.PaymentID))

	// Second refund is a no-op success, no second gateway refund.
	again, err := env.deposits.RefundDeposit(deposit.ID, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, models.DepositRefunded, again.Status)
	assert.Equal(t, int64(10000), env.gateway.RefundedTotal(deposit.PaymentID))
}

func TestRefundDepositSurvivesGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)
	deposit := env.payDeposit(t, auction.ID, bidder.ID, 10000)

	broken := NewDepositService(env.db, &refundFailingGateway{env.gateway}, env.audit, env.notifier)
	refunded, err := broken.RefundDeposit(deposit.ID, "auction ended")
	require.NoError(t, err)

	// The ledger still advances; the failure is flagged for retry.
	assert.Equal(t, models.DepositRefunded, refunded.Status)
	assert.True(t, refunded.RefundFailed)
	assert.Contains(t, refunded.RefundNote, "gateway refund failed")

	retried, err := env.deposits.RetryFailedRefunds()
	require.NoError(t, err)
	assert.Equal(t, 1, retried)

	reloaded, err := env.deposits.GetDeposit(deposit.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.RefundFailed)
	assert.NotEmpty(t, reloaded.RefundID)
	assert.Equal(t, int64(10000), env.gateway.RefundedTotal(deposit.PaymentID))
}

// reentrantRefundGateway fires a second refund for the same deposit while
// the first caller is still inside the provider call, the worst-case
// interleaving of two concurrent refunds.
type reentrantRefundGateway struct {
	*FakeProvider
	deposits  *DepositService
	depositID uint
	fired     bool
	innerErr  error
}

func (g *reentrantRefundGateway) Refund(paymentID string, amount int64, notes map[string]string) (string, error) {
	if !g.fired {
		g.fired = true
		_, g.innerErr = g.deposits.RefundDeposit(g.depositID, "racing refund")
	}
	return g.FakeProvider.Refund(paymentID, amount, notes)
}

func TestRefundDepositClaimsBeforeGatewayCall(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	bidder := env.createUser(t, "bidder")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)
	deposit := env.payDeposit(t, auction.ID, bidder.ID, 10000)

	gw := &reentrantRefundGateway{FakeProvider: env.gateway, deposits: env.deposits, depositID: deposit.ID}
	svc := NewDepositService(env.db, gw, env.audit, env.notifier)

	refunded, err := svc.RefundDeposit(deposit.ID, "auction ended")
	require.NoError(t, err)
	require.NoError(t, gw.innerErr)
	assert.Equal(t, models.DepositRefunded, refunded.Status)

	// The racing caller found the deposit already claimed and never reached
	// the provider: the money moved exactly once.
	assert.Equal(t, int64(10000), env.gateway.RefundedTotal(deposit.PaymentID))
}

func TestRefundAllExceptSparesWinner(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	winner := env.createUser(t, "winner")
	loser1 := env.createUser(t, "loser1")
	loser2 := env.createUser(t, "loser2")
	vehicle := env.createApprovedVehicle(t, seller.ID)
	auction := env.createLiveAuction(t, vehicle.ID, 100000, 5000)

	winnerDep := env.payDeposit(t, auction.ID, winner.ID, 10000)
	env.payDeposit(t, auction.ID, loser1.ID, 10000)
	env.payDeposit(t, auction.ID, loser2.ID, 10000)

	results := env.deposits.RefundAllExcept(auction.ID, winner.ID, "auction ended")
	assert.Len(t, results, 2)
	for _, err := range results {
		assert.NoError(t, err)
	}

	reloaded, err := env.deposits.GetDeposit(winnerDep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPaid, reloaded.Status)

	var refundedCount int64
	require.NoError(t, env.db.Model(&models.Deposit{}).
		Where("auction_id = ? AND status = ?", auction.ID, models.DepositRefunded).
		Count(&refundedCount).Error)
	assert.Equal(t, int64(2), refundedCount)
}
