package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/crowdcast/internal/domain"
)

func currentUserID(c echo.Context) uuid.UUID {
	return c.Get(userIDContextKey).(uuid.UUID)
}

// handleCreateRoom creates a room owned by the caller.
func (s *Server) handleCreateRoom(c echo.Context) error {
	room, err := s.app.CreateRoom(c.Request().Context(), currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create room"})
	}
	return c.JSON(http.StatusCreated, room)
}

// handleGetRoom looks a room up by its join code.
func (s *Server) handleGetRoom(c echo.Context) error {
	room, err := s.app.GetRoomByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not load room"})
	}
	return c.JSON(http.StatusOK, room)
}

// handleListOwnRooms lists the rooms the caller created, newest first.
func (s *Server) handleListOwnRooms(c echo.Context) error {
	rooms, err := s.app.ListOwnRooms(c.Request().Context(), currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list rooms"})
	}
	return c.JSON(http.StatusOK, rooms)
}

// handleListQuestions lists a room's questions with vote data for the caller.
func (s *Server) handleListQuestions(c echo.Context) error {
	questions, err := s.app.ListQuestions(c.Request().Context(), c.Param("code"), currentUserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list questions"})
	}
	return c.JSON(http.StatusOK, questions)
}

func (s *Server) handleActivateRoom(c echo.Context) error {
	return s.setRoomStatus(c, true)
}

func (s *Server) handleDeactivateRoom(c echo.Context) error {
	return s.setRoomStatus(c, false)
}

// setRoomStatus flips a room's active flag. Not-found and not-owner both
// answer 404 so the endpoint leaks nothing about foreign rooms.
func (s *Server) setRoomStatus(c echo.Context, active bool) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room id"})
	}

	if err := s.app.SetRoomStatus(c.Request().Context(), roomID, currentUserID(c), active); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not update room"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"active": active})
}

// handleGetUser returns a user's public profile.
func (s *Server) handleGetUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}

	user, err := s.app.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not load user"})
	}

	return c.JSON(http.StatusOK, userResponse{UserID: user.ID.String(), Username: user.Username})
}
