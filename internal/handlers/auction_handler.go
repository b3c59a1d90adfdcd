package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/services"
)

type CreateAuctionRequest struct {
	VehicleID    uint      `json:"vehicle_id" validate:"required"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required"`
	ReservePrice int64     `json:"reserve_price" validate:"required,gt=0"`
	MinIncrement int64     `json:"min_increment" validate:"required,gt=0"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// CreateAuction puts an approved vehicle up for auction (admin)
func CreateAuction(c *fiber.Ctx) error {
	req := new(CreateAuctionRequest)
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

	auction, err := auctionService.CreateAuction(req.VehicleID, req.StartTime, req.EndTime, req.ReservePrice, req.MinIncrement)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Auction created",
		"auction": auction,
	})
}

// GetAuction retrieves a specific auction
func GetAuction(c *fiber.Ctx) error {
	auctionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	auction, err := auctionService.GetAuction(auctionID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"auction": auction,
	})
}

// EndAuction ends an auction explicitly (admin). Racing the scheduler is
// fine: whoever loses sees "already ended".
func EndAuction(c *fiber.Ctx) error {
	auctionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	auction, err := auctionService.EndAuction(auctionID)
	if err != nil {
		if errors.Is(err, services.ErrAuctionAlreadyEnded) {
			return c.JSON(fiber.Map{
				"message": "Auction already ended",
			})
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Auction ended",
		"auction": auction,
	})
}

// PlaceBid places a bid on a live auction
func PlaceBid(c *fiber.Ctx) error {
	auctionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	req := new(PlaceBidRequest)
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

	bid, err := bidService.PlaceBid(auctionID, bidderID, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Bid placed",
		"bid":     bid,
	})
}

// GetAuctionBids lists an auction's bids, highest first
func GetAuctionBids(c *fiber.Ctx) error {
	auctionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid auction id"})
	}

	bids, err := bidService.ListBids(auctionID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"bids":  bids,
		"count": len(bids),
	})
}
