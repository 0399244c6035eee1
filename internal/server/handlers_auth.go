package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/crowdcast/internal/domain"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// handleRegister creates a new account.
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user, err := s.app.RegisterUser(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "username already taken"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, userResponse{UserID: user.ID.String(), Username: user.Username})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

// handleToken exchanges form-encoded credentials for a bearer token.
func (s *Server) handleToken(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username and password required"})
	}

	token, user, err := s.app.Login(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      user.ID.String(),
	})
}
