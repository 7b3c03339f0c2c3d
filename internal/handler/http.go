package handler

import (
	"context"
	"errors"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type JobRunner interface {
	Trigger(ctx context.Context, name string) (domain.RunReport, error)
	ReleaseMatch(ctx context.Context, change domain.ReleaseChange) domain.RunReport
	States() map[string]domain.RunState
}

type HTTPHandler struct {
	jobs JobRunner
}

func NewHTTPHandler(jobs JobRunner) *HTTPHandler {
	return &HTTPHandler{jobs: jobs}
}

func (h *HTTPHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.handleHealth)

	api := app.Group("/api")
	api.Post("/changes/releases", h.handleReleaseChange)
	api.Post("/jobs/:name", h.handleTrigger)
}

func (h *HTTPHandler) handleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
		"jobs":   h.jobs.States(),
	})
}

func (h *HTTPHandler) handleReleaseChange(c *fiber.Ctx) error {
	var change domain.ReleaseChange
	if err := c.BodyParser(&change); err != nil {
		log.WithField("error", err).Warn("invalid release change payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if !change.Kind.Valid() {
		log.WithField("kind", change.Kind).Warn("unknown release change kind")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be created, updated or deleted"})
	}

	report := h.jobs.ReleaseMatch(c.UserContext(), change)
	return c.Status(reportStatus(report)).JSON(report)
}

func (h *HTTPHandler) handleTrigger(c *fiber.Ctx) error {
	report, err := h.jobs.Trigger(c.UserContext(), c.Params("name"))
	switch {
	case errors.Is(err, domain.ErrUnknownJob):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrJobRunning):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.WithField("error", err).Error("failed to trigger job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(reportStatus(report)).JSON(report)
}

// reportStatus maps a finished run to a response code. A run that did
// nothing on purpose answers 202.
func reportStatus(report domain.RunReport) int {
	switch {
	case report.State == domain.RunAborted:
		return fiber.StatusServiceUnavailable
	case report.Dispatched == 0 && report.Note != "":
		return fiber.StatusAccepted
	default:
		return fiber.StatusOK
	}
}
