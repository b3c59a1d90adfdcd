package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type RequestDepositRequest struct {
	AuctionID uint  `json:"auction_id" validate:"required"`
	Amount    int64 `json:"amount" validate:"required,gt=0"`
}

type ConfirmPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RequestDeposit creates a pending EMD and returns the gateway order to pay
func RequestDeposit(c *fiber.Ctx) error {
	req := new(RequestDepositRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	bidderID := c.Locals("user_id").(uint)

	deposit, err := depositService.RequestDeposit(req.AuctionID, bidderID, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Deposit requested. Complete the payment to activate it.",
		"deposit": deposit,
		"payment_info": fiber.Map{
			"order_id": deposit.GatewayOrderID,
			"amount":   deposit.Amount,
			"currency": "INR",
		},
	})
}

// ConfirmDeposit settles a deposit from the gateway callback (idempotent)
func ConfirmDeposit(c *fiber.Ctx) error {
	depositID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid deposit id"})
	}

	req := new(ConfirmPaymentRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	deposit, err := depositService.ConfirmDeposit(depositID, req.PaymentID, req.Signature)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Deposit confirmed",
		"deposit": deposit,
	})
}

// RefundDeposit refunds a deposit (admin). No-op success if already refunded.
func RefundDeposit(c *fiber.Ctx) error {
	depositID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid deposit id"})
	}

	req := new(RefundRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	deposit, err := depositService.RefundDeposit(depositID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Deposit refunded",
		"deposit": deposit,
	})
}

// GetDeposit retrieves a specific deposit
func GetDeposit(c *fiber.Ctx) error {
	depositID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid deposit id"})
	}

	deposit, err := depositService.GetDeposit(depositID)
	if err != nil {
		return respondError(c, err)
	}

	userID := c.Locals("user_id").(uint)
	role, _ := c.Locals("role").(string)
	if deposit.BidderID != userID && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this deposit",
		})
	}

	return c.JSON(fiber.Map{
		"deposit": deposit,
	})
}

// RetryFailedRefunds re-attempts gateway refunds flagged for retry (admin)
func RetryFailedRefunds(c *fiber.Ctx) error {
	retried, err := depositService.RetryFailedRefunds()
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Refund retries processed",
		"retried": retried,
	})
}
