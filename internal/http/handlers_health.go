package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"policyguard/internal/metrics"
)

// healthHandler is the unconditional liveness check.
func healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC(),
		Service:   serviceName,
	})
}

func (s *Server) deepHealthHandler(c *fiber.Ctx) error {
	// Shallow health: process is up
	if c.Query("deep") != "true" {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	redisStatus := "disabled"
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
		} else {
			redisStatus = "ok"
		}
	}

	llmStatus := "disabled"
	if s.classifier.Enabled() {
		llmStatus = "enabled"
	}

	rodStatus := "disabled"
	if s.config.Rod.Enabled {
		rodStatus = "enabled"
	}

	status := "ok"
	if redisStatus == "error" {
		status = "error"
	}

	return c.JSON(DeepHealthResponse{
		Status: status,
		Redis:  redisStatus,
		LLM:    llmStatus,
		Rod:    rodStatus,
	})
}

// metricsHandler serves Prometheus text exposition.
func metricsHandler(c *fiber.Ctx) error {
	c.Type("text/plain")
	return c.SendString(metrics.Export())
}
