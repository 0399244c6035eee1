package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Room struct {
	ID        uuid.UUID `json:"room_id"`
	Code      string    `json:"room_code"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is an estimation item posed within a room. Estimate stays nil
// until voting is closed, at which point Resolved flips exactly once.
type Question struct {
	ID        uuid.UUID `json:"question_id"`
	RoomID    uuid.UUID `json:"-"`
	Title     string    `json:"title"`
	Body      string    `json:"text"`
	Estimate  *float64  `json:"estimate"`
	Resolved  bool      `json:"is_resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionSummary is a Question enriched with aggregate vote data for one viewer.
type QuestionSummary struct {
	Question
	VoteCount int64 `json:"vote_count"`
	Voted     bool  `json:"voted"`
}

// --- Interfaces ---

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	Create(ctx context.Context, code string, ownerID uuid.UUID) (*Room, error)
	GetByID(ctx context.Context, roomID uuid.UUID) (*Room, error)
	GetByCode(ctx context.Context, code string) (*Room, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Room, error)
	// SetActive updates the activation status iff ownerID owns the room.
	// Returns ErrRoomNotFound when no row matches both conditions, matching
	// the API's not-found-or-not-authorized collapse.
	SetActive(ctx context.Context, roomID, ownerID uuid.UUID, active bool) error
}

// QuestionRepository abstracts question persistence.
type QuestionRepository interface {
	Create(ctx context.Context, roomID uuid.UUID, title, body string) (*Question, error)
	GetByID(ctx context.Context, questionID uuid.UUID) (*Question, error)
	ListByRoom(ctx context.Context, roomID, viewerID uuid.UUID) ([]QuestionSummary, error)
	// CloseWithEstimate sets the estimate and flips Resolved via compare-and-set.
	// Returns ErrAlreadyResolved when the question was closed before this call.
	CloseWithEstimate(ctx context.Context, questionID uuid.UUID, estimate float64) error
	Delete(ctx context.Context, questionID uuid.UUID) error
}

// VoteRepository abstracts vote persistence.
type VoteRepository interface {
	// Append records an additional vote row regardless of prior votes.
	Append(ctx context.Context, questionID, voterID uuid.UUID, estimate float64) error
	// Replace records a vote, overwriting any earlier vote by the same voter.
	Replace(ctx context.Context, questionID, voterID uuid.UUID, estimate float64) error
	Count(ctx context.Context, questionID uuid.UUID) (int64, error)
	ListEstimates(ctx context.Context, questionID uuid.UUID) ([]float64, error)
}

// AppService is the application layer contract. HTTP handlers route all
// non-realtime operations through here.
type AppService interface {
	RegisterUser(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) (token string, user *User, err error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error)
	CreateRoom(ctx context.Context, ownerID uuid.UUID) (*Room, error)
	GetRoomByCode(ctx context.Context, code string) (*Room, error)
	ListOwnRooms(ctx context.Context, ownerID uuid.UUID) ([]Room, error)
	SetRoomStatus(ctx context.Context, roomID, callerID uuid.UUID, active bool) error
	ListQuestions(ctx context.Context, code string, viewerID uuid.UUID) ([]QuestionSummary, error)
}
