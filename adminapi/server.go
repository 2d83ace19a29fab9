// Package adminapi exposes a read-only HTTP introspection surface over the
// subscription index: what topics exist, what a given client subscribes
// to, and liveness/metrics endpoints for an operator. It never mutates
// subscription state.
package adminapi

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// TopicsResponse is the GET /topics payload.
type TopicsResponse struct {
	EphemeralTopics []string `json:"ephemeralTopics"`
}

// ClientResponse is the GET /clients/:id payload.
type ClientResponse struct {
	ClientID        string   `json:"clientId"`
	EphemeralTopics []string `json:"ephemeralTopics"`
	SysTopics       []string `json:"sysTopics"`
}

// Index is the subset of subscription.Service the admin API reads from.
// It is satisfied by *subscription.Service; defined as an interface here
// so the server can be tested without a full Service.
type Index interface {
	EphemeralTopics() []string
	ClientEphemeralTopics(clientID string) []string
	ClientSysTopics(clientID string) []string
}

// Server is the fiber-backed admin HTTP surface.
type Server struct {
	app    *fiber.App
	index  Index
	logger zerolog.Logger
}

// NewServer builds a Server reading from index.
func NewServer(index Index, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	s := &Server{app: app, index: index, logger: logger}

	app.Get("/healthz", s.handleHealthz)
	app.Get("/topics", s.handleTopics)
	app.Get("/clients/:id", s.handleClient)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return s
}

// Listen starts serving on addr. It blocks until the server stops.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleTopics(c *fiber.Ctx) error {
	return c.JSON(TopicsResponse{EphemeralTopics: s.index.EphemeralTopics()})
}

func (s *Server) handleClient(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing client id"})
	}
	return c.JSON(ClientResponse{
		ClientID:        id,
		EphemeralTopics: s.index.ClientEphemeralTopics(id),
		SysTopics:       s.index.ClientSysTopics(id),
	})
}
