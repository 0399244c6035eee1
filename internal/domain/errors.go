package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateCode      = errors.New("room code already exists")
	ErrNoVotes            = errors.New("no votes recorded for question")
	ErrAlreadyResolved    = errors.New("voting already closed for question")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
