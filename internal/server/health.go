package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	statusOK          = "healthy"
	statusFailed      = "unhealthy"
	statusUnavailable = "unavailable"
)

// LivenessCheck answers as long as the process can serve HTTP.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now().UTC()})
}

// ReadinessCheck pings the store and the cache. Only the store gates
// readiness; without Redis the board falls back to cookie view dedup and
// reports "degraded".
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	db := s.checkDatabase(ctx)
	cache := s.checkRedis(ctx)

	code, overall := fiber.StatusOK, statusOK
	switch {
	case db != statusOK:
		code, overall = fiber.StatusServiceUnavailable, statusFailed
	case cache != statusOK:
		overall = "degraded"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{"database": db, "redis": cache},
		"time":   time.Now().UTC(),
	})
}

func (s *Server) checkDatabase(ctx context.Context) string {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return statusFailed
	}
	return statusOK
}

func (s *Server) checkRedis(ctx context.Context) string {
	if s.redis == nil {
		return statusUnavailable
	}
	if s.redis.Ping(ctx).Err() != nil {
		return statusFailed
	}
	return statusOK
}
