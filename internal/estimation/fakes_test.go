package estimation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pscheid92/crowdcast/internal/domain"
)

type voteRecord struct {
	voterID  uuid.UUID
	estimate float64
}

// fakeVoteRepo is an in-memory domain.VoteRepository with injectable failures.
type fakeVoteRepo struct {
	mu        sync.Mutex
	votes     map[uuid.UUID][]voteRecord
	appendErr error
	countErr  error
	listErr   error
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{votes: make(map[uuid.UUID][]voteRecord)}
}

func (f *fakeVoteRepo) Append(_ context.Context, questionID, voterID uuid.UUID, estimate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.votes[questionID] = append(f.votes[questionID], voteRecord{voterID, estimate})
	return nil
}

func (f *fakeVoteRepo) Replace(_ context.Context, questionID, voterID uuid.UUID, estimate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	for i, rec := range f.votes[questionID] {
		if rec.voterID == voterID {
			f.votes[questionID][i].estimate = estimate
			return nil
		}
	}
	f.votes[questionID] = append(f.votes[questionID], voteRecord{voterID, estimate})
	return nil
}

func (f *fakeVoteRepo) Count(_ context.Context, questionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.votes[questionID])), nil
}

func (f *fakeVoteRepo) ListEstimates(_ context.Context, questionID uuid.UUID) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	estimates := make([]float64, 0, len(f.votes[questionID]))
	for _, rec := range f.votes[questionID] {
		estimates = append(estimates, rec.estimate)
	}
	return estimates, nil
}

// fakeQuestionRepo is an in-memory domain.QuestionRepository.
type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*domain.Question
	createErr error
	closeErr  error
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{questions: make(map[uuid.UUID]*domain.Question)}
}

func (f *fakeQuestionRepo) add(roomID uuid.UUID, resolved bool) *domain.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := &domain.Question{ID: uuid.New(), RoomID: roomID, Title: "estimate this", Resolved: resolved}
	f.questions[q.ID] = q
	return q
}

func (f *fakeQuestionRepo) Create(_ context.Context, roomID uuid.UUID, title, body string) (*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	q := &domain.Question{ID: uuid.New(), RoomID: roomID, Title: title, Body: body}
	f.questions[q.ID] = q
	return q, nil
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, questionID uuid.UUID) (*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuestionRepo) ListByRoom(context.Context, uuid.UUID, uuid.UUID) ([]domain.QuestionSummary, error) {
	return nil, nil
}

func (f *fakeQuestionRepo) CloseWithEstimate(_ context.Context, questionID uuid.UUID, estimate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return f.closeErr
	}
	q, ok := f.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if q.Resolved {
		return domain.ErrAlreadyResolved
	}
	q.Resolved = true
	q.Estimate = &estimate
	return nil
}

func (f *fakeQuestionRepo) Delete(_ context.Context, questionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(f.questions, questionID)
	return nil
}

// fakeRoomRepo serves only GetByID lookups for delete authorization.
type fakeRoomRepo struct {
	rooms map[uuid.UUID]*domain.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[uuid.UUID]*domain.Room)}
}

func (f *fakeRoomRepo) add(ownerID uuid.UUID) *domain.Room {
	room := &domain.Room{ID: uuid.New(), Code: "ABC234", OwnerID: ownerID, Active: true}
	f.rooms[room.ID] = room
	return room
}

func (f *fakeRoomRepo) Create(context.Context, string, uuid.UUID) (*domain.Room, error) {
	return nil, nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) GetByCode(context.Context, string) (*domain.Room, error) {
	return nil, domain.ErrRoomNotFound
}

func (f *fakeRoomRepo) ListByOwner(context.Context, uuid.UUID) ([]domain.Room, error) {
	return nil, nil
}

func (f *fakeRoomRepo) SetActive(context.Context, uuid.UUID, uuid.UUID, bool) error {
	return nil
}

// fakeBroadcaster records broadcast events per room.
type fakeBroadcaster struct {
	mu        sync.Mutex
	events    []any
	clientNum int
}

func (f *fakeBroadcaster) Broadcast(_ string, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBroadcaster) ClientCount(string) int { return f.clientNum }

func (f *fakeBroadcaster) broadcasts() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.events...)
}

// fakeClient implements the dispatcher's client interface and records replies.
type fakeClient struct {
	roomCode string
	roomID   uuid.UUID
	userID   uuid.UUID
	replies  []any
}

func (f *fakeClient) RoomCode() string  { return f.roomCode }
func (f *fakeClient) RoomID() uuid.UUID { return f.roomID }
func (f *fakeClient) UserID() uuid.UUID { return f.userID }
func (f *fakeClient) Reply(event any)   { f.replies = append(f.replies, event) }

// fakeLimiter rejects votes when denied is set.
type fakeLimiter struct {
	denied bool
	err    error
	calls  int
}

func (f *fakeLimiter) Allow(context.Context, uuid.UUID) (bool, error) {
	f.calls++
	return !f.denied, f.err
}
