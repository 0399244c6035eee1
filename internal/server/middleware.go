package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDContextKey = "userID"

// requireAuth verifies the Bearer token and stores the authenticated user ID
// in the request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		userID, err := s.tokens.Verify(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}
