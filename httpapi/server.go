// Package httpapi exposes a read-only status and cancellation surface
// over a durable.Store, for operators inspecting or cancelling workflows
// out-of-process. It never triggers step execution — that only happens
// when application code calls durable.Run or durable.Saga.
package httpapi

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/sicko7947/durable"
)

// Server wraps a fiber app bound to a single durable.Store.
type Server struct {
	app   *fiber.App
	store durable.Store
}

// New builds a Server backed by store. Call ListenAndServeUntilInterrupt
// to start serving.
func New(store durable.Store) *Server {
	s := &Server{app: fiber.New(), store: store}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "durable-workflow-engine"})
	})

	workflows := s.app.Group("/workflows")
	workflows.Get("/:id", s.handleGetStatus)
	workflows.Get("/:id/steps", s.handleGetCompletedSteps)
	workflows.Post("/:id/cancel", s.handleCancel)
}

func (s *Server) handleGetStatus(c fiber.Ctx) error {
	id := c.Params("id")
	status, ok, err := s.store.GetWorkflowStatus(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow not found"})
	}

	steps, err := s.store.GetCompletedSteps(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"workflowId":     id,
		"status":         status,
		"completedSteps": len(steps),
	})
}

func (s *Server) handleGetCompletedSteps(c fiber.Ctx) error {
	id := c.Params("id")
	steps, err := s.store.GetCompletedSteps(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"workflowId": id, "steps": steps})
}

func (s *Server) handleCancel(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.CancelWorkflow(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"workflowId": id, "status": durable.WorkflowCancelled})
}

// ListenAndServeUntilInterrupt starts the server on addr and blocks until
// SIGINT/SIGTERM, shutting down gracefully with a 5 second timeout.
func (s *Server) ListenAndServeUntilInterrupt(addr string) {
	go func() {
		log.Info().Str("address", addr).Msg("starting HTTP server")
		if err := s.app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}
