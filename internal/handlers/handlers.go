package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/services"
)

var (
	auctionService *services.AuctionService
	bidService     *services.BidService
	depositService *services.DepositService
	escrowService  *services.EscrowService
	auditService   *services.AuditService

	validate = validator.New()
)

// InitServices wires the settlement core into the HTTP layer. Called once
// from main after the services are constructed.
func InitServices(
	auctions *services.AuctionService,
	bids *services.BidService,
	deposits *services.DepositService,
	escrows *services.EscrowService,
	audit *services.AuditService,
) {
	auctionService = auctions
	bidService = bids
	depositService = deposits
	escrowService = escrows
	auditService = audit
}

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindValidation:
		status = fiber.StatusBadRequest
	case services.KindNotFound:
		status = fiber.StatusNotFound
	case services.KindConflict:
		status = fiber.StatusConflict
	case services.KindAuthorization:
		status = fiber.StatusForbidden
	case services.KindGateway:
		status = fiber.StatusBadGateway
	}

	message := "Internal server error"
	if status != fiber.StatusInternalServerError {
		message = err.Error()
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
