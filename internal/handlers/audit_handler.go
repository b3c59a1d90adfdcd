package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// VerifyAuditChain recomputes a stream's hash chain and reports whether it
// is intact. On tampering, the first bad sequence is returned.
func VerifyAuditChain(c *fiber.Ctx) error {
	streamKey := c.Params("stream")
	if streamKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing stream key"})
	}

	valid, badSeq, err := auditService.VerifyChain(streamKey)
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{
		"stream": streamKey,
		"valid":  valid,
	}
	if !valid {
		resp["first_bad_sequence"] = badSeq
	}
	return c.JSON(resp)
}

// GetAuditRecords returns a stream's records in chain order
func GetAuditRecords(c *fiber.Ctx) error {
	streamKey := c.Params("stream")
	if streamKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing stream key"})
	}

	records, err := auditService.Records(streamKey)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"stream":  streamKey,
		"records": records,
		"count":   len(records),
	})
}
