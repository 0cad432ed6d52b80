package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Check(ctx *fiber.Ctx) error
}

type healthController struct {
	db            *gorm.DB
	redisClient   *redis.Client
	llmConfigured bool
}

func NewHealthController(db *gorm.DB, redisClient *redis.Client, llmConfigured bool) IHealthController {
	return &healthController{
		db:            db,
		redisClient:   redisClient,
		llmConfigured: llmConfigured,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Check)
}

// Check answers liveness with per component flags. Probes are bounded so a
// hung dependency cannot stall the endpoint.
func (c *healthController) Check(ctx *fiber.Ctx) error {
	probeCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	dbOk := false
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			dbOk = sqlDB.PingContext(probeCtx) == nil
		}
	}

	redisOk := false
	if c.redisClient != nil {
		redisOk = c.redisClient.Ping(probeCtx).Err() == nil
	}

	return ctx.JSON(fiber.Map{
		"status": "ok",
		"components": fiber.Map{
			"db":    dbOk,
			"redis": redisOk,
			"llm":   c.llmConfigured,
		},
	})
}
