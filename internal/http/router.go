package http

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"policyguard/internal/config"
	"policyguard/internal/detect"
	"policyguard/internal/scan"
)

const serviceName = "PolicyGuard API"

type Server struct {
	app        *fiber.App
	config     *config.Config
	scanner    scan.Scanner
	classifier detect.Classifier
	rdb        *redis.Client
	logger     *slog.Logger
}

// NewServer builds the Fiber app. classifier is only consulted for
// health reporting; scanning goes through scanner.
func NewServer(cfg *config.Config, scanner scan.Scanner, classifier detect.Classifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = detect.Disabled()
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		} else {
			logger.Warn("invalid redis url, rate limiting disabled", "error", err)
		}
	}

	s := &Server{
		app:        app,
		config:     cfg,
		scanner:    scanner,
		classifier: classifier,
		rdb:        rdb,
		logger:     logger,
	}

	// Inject config, scanner and logger into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("scanner", scanner)
		c.Locals("logger", logger)
		return c.Next()
	})
	app.Use(requestLogMiddleware(logger))

	app.Get("/health", healthHandler)
	app.Get("/healthz", s.deepHealthHandler)
	app.Get("/metrics", metricsHandler)

	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb, logger)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}
	app.Post("/scan", rateMw, scanHandler)

	return s
}

// App exposes the underlying Fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("listening", "addr", addr, "semantic", s.classifier.Enabled(), "rate_limit", s.rdb != nil)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and closes the redis client.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	if s.rdb != nil {
		if cerr := s.rdb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
