package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/crowdcast/internal/domain"
	"github.com/pscheid92/crowdcast/internal/estimation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from arbitrary origins; auth happens via token
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket authenticates the token query parameter, checks the room,
// upgrades the connection, and runs the estimation session until the client
// leaves or disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
	}

	room, err := s.app.GetRoomByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not load room"})
	}
	if !room.Active {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "room is not active"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		return nil
	}

	session := estimation.NewSession(room.Code, room.ID, userID, conn, s.broadcaster, s.dispatcher)
	_ = session.Run(c.Request().Context())

	return nil
}
