// Package web serves the JSON API behind the JANE web dashboard.
package web

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
)

// Greeting is spoken when the dashboard boots.
const Greeting = "Hello, I am JANE. Ready on the web dashboard."

// Assistant is the part of *core.Controller the API drives.
type Assistant interface {
	Process(ctx context.Context, text string) (core.Outcome, error)
	ApproveAndWait(ctx context.Context) (core.Outcome, error)
	DenyOutcome(ctx context.Context) (core.Outcome, error)
	Snapshot() core.Snapshot
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds how long a request waits for a command result.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithBaseContext sets the parent of the contexts handed to the assistant.
// Command jobs may outlive the HTTP request, so they never derive from the
// pooled fasthttp request context.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// Server is the dashboard API.
type Server struct {
	app            *fiber.App
	assistant      Assistant
	baseCtx        context.Context
	logger         *log.Logger
	requestTimeout time.Duration
	version        string
}

type commandRequest struct {
	Text string `json:"text"`
}

// New builds the API around assistant.
func New(assistant Assistant, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		assistant:      assistant,
		baseCtx:        context.Background(),
		logger:         logger.WithPrefix("web"),
		requestTimeout: 2 * time.Minute,
		version:        "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:      "jane-web",
		ErrorHandler: s.handleError,
	})
	app.Use(recoverer.New())
	app.Use(cors.New())
	app.Use(s.requestLogger)

	app.Get("/health", s.health)

	api := app.Group("/api")
	api.Get("/state", s.state)
	api.Post("/command", s.command)
	api.Post("/approve", s.approve)
	api.Post("/deny", s.deny)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	})
}

func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

// handleError renders every error as {"detail": ...}.
func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	detail := err.Error()
	if code == fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	} else if fe != nil {
		detail = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"detail": detail})
}

func (s *Server) health(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "healthy",
		"service":   "jane-web",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) state(c fiber.Ctx) error {
	return c.JSON(s.assistant.Snapshot().View())
}

// command accepts {"text": ...}. A missing or malformed body is treated as
// empty input.
func (s *Server) command(c fiber.Ctx) error {
	var req commandRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			req = commandRequest{}
		}
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.requestTimeout)
	defer cancel()
	out, err := s.assistant.Process(ctx, req.Text)
	if err != nil {
		return s.outcomeError(err)
	}
	return c.JSON(out)
}

func (s *Server) approve(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.requestTimeout)
	defer cancel()
	out, err := s.assistant.ApproveAndWait(ctx)
	if err != nil {
		return s.outcomeError(err)
	}
	return c.JSON(out)
}

func (s *Server) deny(c fiber.Ctx) error {
	out, err := s.assistant.DenyOutcome(s.baseCtx)
	if err != nil {
		return s.outcomeError(err)
	}
	return c.JSON(out)
}

func (s *Server) outcomeError(err error) error {
	switch {
	case core.IsNothingPending(err):
		return fiber.NewError(fiber.StatusNotFound, core.MsgNothingPending)
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "Timed out waiting for the command to finish.")
	case errors.Is(err, core.ErrControllerClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, "JANE is shutting down.")
	}
	return err
}
