package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/pipeline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/repository"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/staging"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/transport"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type Twin interface {
	Snapshot() twin.State
	Repair(id string, amount int) (twin.State, error)
}

type HistorySource interface {
	ListHistory(ctx context.Context, limit int) ([]repository.HistoryRecord, error)
}

// Services is what the API serves from. History, Publisher and Stats are
// optional.
type Services struct {
	Twin         Twin
	Scorer       pipeline.Scorer
	History      HistorySource
	Publisher    transport.Publisher
	Stats        func() pipeline.Stats
	SamplingRate float64
}

type repairRequest struct {
	Amount int `json:"amount"`
}

func Register(app *fiber.App, svcs *Services) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	g := app.Group("/")
	g.Get("state", func(c *fiber.Ctx) error {
		return c.JSON(svcs.Twin.Snapshot())
	})

	g.Get("stats", func(c *fiber.Ctx) error {
		if svcs.Stats == nil {
			return c.JSON(pipeline.Stats{})
		}
		return c.JSON(svcs.Stats())
	})

	g.Post("score", func(c *fiber.Ctx) error {
		raw, err := staging.DecodeReading(c.Body(), svcs.SamplingRate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		res, err := svcs.Scorer.ScoreReading(c.UserContext(), raw)
		switch {
		case err == nil:
			return c.JSON(res)
		case domain.IsInvalidInput(err):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, domain.ErrModelUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error(), "result": res})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	})

	g.Post("pillars/:id/repair", func(c *fiber.Ctx) error {
		var req repairRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		s, err := svcs.Twin.Repair(c.Params("id"), req.Amount)
		switch {
		case errors.Is(err, twin.ErrUnknownComponent):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Info().Str("component", "api").Str("pillar", c.Params("id")).Int("amount", req.Amount).Msg("pillar repaired")
		if svcs.Publisher != nil {
			_ = svcs.Publisher.Publish(c.UserContext(), s)
		}
		return c.JSON(s)
	})

	g.Get("history", func(c *fiber.Ctx) error {
		if svcs.History == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "history is disabled"})
		}
		limit := c.QueryInt("limit", defaultHistoryLimit)
		if limit <= 0 || limit > maxHistoryLimit {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be in [1,1000]"})
		}
		items, err := svcs.History.ListHistory(c.UserContext(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})
}
