package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

func (s *Server) HelloWorldHandler(ctx echo.Context) error {
	resp := map[string]string{
		"message": "Invory notification service",
	}

	return ctx.JSON(200, resp)
}

// healthHandler reports the database and the push gateway. The gateway check
// obtains a credential, so a broken service account shows up here before any
// notification is attempted.
func (s *Server) healthHandler(ctx echo.Context) error {
	stats := s.server.Health()

	stats["gateway"] = "up"
	if err := s.server.VerifyGateway(ctx.Request().Context()); err != nil {
		s.logger.Warn("gateway credential check failed", slog.String("err", err.Error()))
		stats["gateway"] = "down"
		stats["gateway_error"] = err.Error()
	}

	for _, v := range stats {
		if v == "down" {
			return ctx.JSON(503, stats)
		}
	}

	return ctx.JSON(200, stats)
}
