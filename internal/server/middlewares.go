package server

import (
	"context"
	"crypto/subtle"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/invory/notification-service/internal/config"
)

var (
	apiKey   = os.Getenv(config.ENV_KEY_API_KEY)
	clientID = os.Getenv(config.ENV_KEY_CLIENT_ID)
)

// APIKeyMiddleware guards the server-to-server notification routes.
func (s *Server) APIKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(config.HEADER_KEY_X_API_KEY)

		if apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			return c.JSON(401, map[string]string{"error": "invalid api key"})
		}

		return next(c)
	}
}

func (s *Server) getUID(c echo.Context) (string, error) {
	var (
		reqClientID = c.Request().Header.Get(config.HEADER_KEY_X_CLIENT_ID)
		reqUID      = c.Request().Header.Get(config.HEADER_KEY_X_UID)
	)

	// Internal clients pass the Firebase UID directly.
	if reqClientID != "" &&
		reqUID != "" &&
		clientID != "" &&
		reqClientID == clientID {
		return reqUID, nil
	}

	var auth = c.Request().Header.Get("Authorization")

	if len(auth) < len("Bearer ") {
		return "", echo.NewHTTPError(401, "Authorization header is required")
	}

	token := auth[len("Bearer "):]

	return s.server.VerifyIDToken(c.Request().Context(), token)
}

// AuthMiddleware checks the authorization header, verifies the ID token and
// transforms the request to have the Firebase UID in downstream context.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := s.getUID(c)
		if err != nil {
			return c.JSON(401, map[string]string{
				"error":   err.Error(),
				"message": "Invalid token",
			})
		}

		ctx := context.WithValue(c.Request().Context(), config.CTX_KEY_USER_ID, uid)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
