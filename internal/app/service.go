package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pscheid92/crowdcast/internal/auth"
	"github.com/pscheid92/crowdcast/internal/domain"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I
	codeRetryLimit   = 5

	minUsernameLength = 3
	minPasswordLength = 8
)

// Service implements domain.AppService.
type Service struct {
	users     domain.UserRepository
	rooms     domain.RoomRepository
	questions domain.QuestionRepository
	tokens    *auth.TokenService
}

func NewService(users domain.UserRepository, rooms domain.RoomRepository, questions domain.QuestionRepository, tokens *auth.TokenService) *Service {
	return &Service{users: users, rooms: rooms, questions: questions, tokens: tokens}
}

// RegisterUser creates an account with a bcrypt-hashed password.
func (s *Service) RegisterUser(ctx context.Context, username, password string) (*domain.User, error) {
	if len(username) < minUsernameLength {
		return nil, fmt.Errorf("username must be at least %d characters", minUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, username, hash)
}

// Login verifies the credentials and issues a signed access token.
// Unknown username and wrong password collapse into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	return token, user, nil
}

func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// CreateRoom creates a room with a fresh join code, retrying on the
// unlikely code collision.
func (s *Service) CreateRoom(ctx context.Context, ownerID uuid.UUID) (*domain.Room, error) {
	for attempt := 0; attempt < codeRetryLimit; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, err
		}

		room, err := s.rooms.Create(ctx, code, ownerID)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateCode) {
				continue
			}
			return nil, err
		}
		return room, nil
	}

	return nil, fmt.Errorf("could not generate a unique room code after %d attempts", codeRetryLimit)
}

func (s *Service) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	return s.rooms.GetByCode(ctx, code)
}

func (s *Service) ListOwnRooms(ctx context.Context, ownerID uuid.UUID) ([]domain.Room, error) {
	return s.rooms.ListByOwner(ctx, ownerID)
}

// SetRoomStatus activates or deactivates a room. Only the owner may change
// the status; a mismatch surfaces as ErrRoomNotFound.
func (s *Service) SetRoomStatus(ctx context.Context, roomID, callerID uuid.UUID, active bool) error {
	return s.rooms.SetActive(ctx, roomID, callerID, active)
}

// ListQuestions returns the room's questions with per-viewer vote data,
// newest first.
func (s *Service) ListQuestions(ctx context.Context, code string, viewerID uuid.UUID) ([]domain.QuestionSummary, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.questions.ListByRoom(ctx, room.ID, viewerID)
}

func generateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}

	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf), nil
}
