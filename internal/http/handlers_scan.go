package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"policyguard/internal/scan"
)

// scanHandler runs a full site scan synchronously and returns the report.
func scanHandler(c *fiber.Ctx) error {
	scanner, ok := c.Locals("scanner").(scan.Scanner)
	if !ok || scanner == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Scan failed",
			Message: "scanner not configured",
		})
	}
	logger, _ := c.Locals("logger").(*slog.Logger)
	if logger == nil {
		logger = slog.Default()
	}

	// The body is JSON whatever the Content-Type says.
	var req ScanRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Scan failed",
			Message: err.Error(),
		})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "URL required"})
	}
	c.Locals("scan_url", req.URL)

	report, err := scanner.Scan(c.UserContext(), req.URL)
	if err != nil {
		if errors.Is(err, scan.ErrURLRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "URL required"})
		}
		logger.Error("scan failed", "url", req.URL, "request_id", c.Locals("request_id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Scan failed",
			Message: err.Error(),
		})
	}

	return c.JSON(report)
}
