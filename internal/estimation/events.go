package estimation

import (
	"encoding/json"
	"fmt"

	"github.com/pscheid92/crowdcast/internal/domain"
)

// Inbound event types.
const (
	EventJoin           = "join"
	EventLeave          = "leave"
	EventVote           = "vote"
	EventNewQuestion    = "new_question"
	EventCloseVote      = "close_vote"
	EventDeleteQuestion = "delete_question"
)

// Outbound event types.
const (
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventVoteUpdate      = "vote_update"
	EventVoteClosed      = "vote_closed"
	EventQuestionDeleted = "question_deleted"
	EventError           = "error"
)

// Envelope is the inbound wire frame. Only the fields relevant to the
// event type are populated; UserID is accepted for compatibility but the
// session's authenticated identity is authoritative.
type Envelope struct {
	Type       string   `json:"type"`
	UserID     string   `json:"user_id,omitempty"`
	QuestionID string   `json:"question_id,omitempty"`
	Estimate   *float64 `json:"estimate,omitempty"`
	Title      string   `json:"title,omitempty"`
	Text       string   `json:"text,omitempty"`
}

// ParseEnvelope decodes an inbound frame. A frame without a type is invalid.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("event frame missing type")
	}
	return &env, nil
}

// --- Outbound events ---

type UserJoined struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	ClientCount int    `json:"count"`
}

func NewUserJoined(userID string, clientCount int) UserJoined {
	return UserJoined{Type: EventUserJoined, UserID: userID, ClientCount: clientCount}
}

type UserLeft struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	ClientCount int    `json:"count"`
}

func NewUserLeft(userID string, clientCount int) UserLeft {
	return UserLeft{Type: EventUserLeft, UserID: userID, ClientCount: clientCount}
}

type VoteUpdate struct {
	Type       string `json:"type"`
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	VoteCount  int64  `json:"vote_count"`
}

func NewVoteUpdate(questionID, userID string, voteCount int64) VoteUpdate {
	return VoteUpdate{Type: EventVoteUpdate, QuestionID: questionID, UserID: userID, VoteCount: voteCount}
}

type QuestionCreated struct {
	Type     string           `json:"type"`
	Question *domain.Question `json:"question"`
}

func NewQuestionCreated(question *domain.Question) QuestionCreated {
	return QuestionCreated{Type: EventNewQuestion, Question: question}
}

type VoteClosed struct {
	Type       string  `json:"type"`
	QuestionID string  `json:"question_id"`
	Estimate   float64 `json:"estimate"`
}

func NewVoteClosed(questionID string, estimate float64) VoteClosed {
	return VoteClosed{Type: EventVoteClosed, QuestionID: questionID, Estimate: estimate}
}

type QuestionDeleted struct {
	Type       string `json:"type"`
	QuestionID string `json:"question_id"`
}

func NewQuestionDeleted(questionID string) QuestionDeleted {
	return QuestionDeleted{Type: EventQuestionDeleted, QuestionID: questionID}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}
