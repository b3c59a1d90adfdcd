package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type CreateEscrowRequest struct {
	PurchaseID uint  `json:"purchase_id" validate:"required"`
	Amount     int64 `json:"amount" validate:"required,gt=0"`
}

type ResolveEscrowRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type RaiseDisputeRequest struct {
	Description string `json:"description" validate:"required"`
}

// CreateEscrow opens the escrow hold for a purchase
func CreateEscrow(c *fiber.Ctx) error {
	req := new(CreateEscrowRequest)
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

	escrow, err := escrowService.CreateEscrow(req.PurchaseID, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Escrow created. Complete the payment to secure the purchase.",
		"escrow":  escrow,
		"payment_info": fiber.Map{
			"order_id": escrow.GatewayOrderID,
			"amount":   escrow.Amount + escrow.Fee,
			"currency": "INR",
		},
	})
}

// ConfirmEscrowPayment settles the buyer's payment from the gateway
// callback (idempotent)
func ConfirmEscrowPayment(c *fiber.Ctx) error {
	escrowID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid escrow id"})
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

	escrow, err := escrowService.ConfirmPayment(escrowID, req.PaymentID, req.Signature)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Escrow payment confirmed",
		"escrow":  escrow,
	})
}

// ReleaseEscrow pays the seller out (admin)
func ReleaseEscrow(c *fiber.Ctx) error {
	escrowID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid escrow id"})
	}

	req := new(ResolveEscrowRequest)
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

	userID := c.Locals("user_id").(uint)

	escrow, err := escrowService.Release(escrowID, req.Reason, userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Escrow released to seller",
		"escrow":  escrow,
	})
}

// RefundEscrow returns the held funds to the buyer (admin)
func RefundEscrow(c *fiber.Ctx) error {
	escrowID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid escrow id"})
	}

	req := new(ResolveEscrowRequest)
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

	userID := c.Locals("user_id").(uint)

	escrow, err := escrowService.Refund(escrowID, req.Reason, userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Escrow refunded to buyer",
		"escrow":  escrow,
	})
}

// RaiseDispute freezes an escrow pending admin review
func RaiseDispute(c *fiber.Ctx) error {
	escrowID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid escrow id"})
	}

	req := new(RaiseDisputeRequest)
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

	userID := c.Locals("user_id").(uint)

	escrow, err := escrowService.RaiseDispute(escrowID, userID, req.Description)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Dispute raised. Our team will review it shortly.",
		"escrow":  escrow,
	})
}

// GetEscrow retrieves a specific escrow
func GetEscrow(c *fiber.Ctx) error {
	escrowID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid escrow id"})
	}

	escrow, err := escrowService.GetEscrow(escrowID)
	if err != nil {
		return respondError(c, err)
	}

	userID := c.Locals("user_id").(uint)
	role, _ := c.Locals("role").(string)
	if escrow.Purchase.BuyerID != userID && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this escrow",
		})
	}

	return c.JSON(fiber.Map{
		"escrow": escrow,
	})
}
