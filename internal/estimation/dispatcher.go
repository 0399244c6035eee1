package estimation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/crowdcast/internal/domain"
	"github.com/pscheid92/crowdcast/internal/metrics"
)

var knownEvents = map[string]bool{
	EventJoin:           true,
	EventLeave:          true,
	EventVote:           true,
	EventNewQuestion:    true,
	EventCloseVote:      true,
	EventDeleteQuestion: true,
}

// RoomBroadcaster is the fan-out surface the dispatcher needs.
type RoomBroadcaster interface {
	Broadcast(roomCode string, event any)
	ClientCount(roomCode string) int
}

// VoteLimiter throttles votes per voter. Nil limiter means unthrottled.
type VoteLimiter interface {
	Allow(ctx context.Context, voterID uuid.UUID) (bool, error)
}

// client is one connected participant. Reply delivers an event to this
// participant only, through its connection's writer.
type client interface {
	RoomCode() string
	RoomID() uuid.UUID
	UserID() uuid.UUID
	Reply(event any)
}

// Dispatcher routes inbound room events to the aggregator and repositories
// and decides what gets broadcast versus replied to the sender. Store
// failures stay sender-scoped; only confirmed state changes are broadcast.
type Dispatcher struct {
	broadcaster RoomBroadcaster
	aggregator  *Aggregator
	questions   domain.QuestionRepository
	rooms       domain.RoomRepository
	limiter     VoteLimiter
}

func NewDispatcher(broadcaster RoomBroadcaster, aggregator *Aggregator, questions domain.QuestionRepository, rooms domain.RoomRepository, limiter VoteLimiter) *Dispatcher {
	return &Dispatcher{
		broadcaster: broadcaster,
		aggregator:  aggregator,
		questions:   questions,
		rooms:       rooms,
		limiter:     limiter,
	}
}

// Dispatch handles one inbound frame from a client. Returns true when the
// client asked to leave the room.
func (d *Dispatcher) Dispatch(ctx context.Context, from client, raw []byte) (leave bool) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		from.Reply(NewErrorEvent("invalid event"))
		return false
	}

	// Label only known types; client input must not mint metric labels
	if knownEvents[env.Type] {
		metrics.EventsTotal.WithLabelValues(env.Type).Inc()
	}
	log := slog.With("room_code", from.RoomCode(), "user_id", from.UserID(), "event_type", env.Type)

	switch env.Type {
	case EventJoin:
		d.handleJoin(from)
	case EventLeave:
		return true
	case EventVote:
		d.handleVote(ctx, from, env, log)
	case EventNewQuestion:
		d.handleNewQuestion(ctx, from, env, log)
	case EventCloseVote:
		d.handleCloseVote(ctx, from, env, log)
	case EventDeleteQuestion:
		d.handleDeleteQuestion(ctx, from, env, log)
	default:
		// Unknown event types are ignored so the protocol can grow.
		log.Debug("Ignoring unknown event type")
	}

	return false
}

func (d *Dispatcher) handleJoin(from client) {
	count := d.broadcaster.ClientCount(from.RoomCode())
	d.broadcaster.Broadcast(from.RoomCode(), NewUserJoined(from.UserID().String(), count))
}

func (d *Dispatcher) handleVote(ctx context.Context, from client, env *Envelope, log *slog.Logger) {
	questionID, err := uuid.Parse(env.QuestionID)
	if err != nil || env.Estimate == nil {
		from.Reply(NewErrorEvent("vote requires question_id and estimate"))
		return
	}

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, from.UserID())
		if err != nil {
			// Limiter outage must not take voting down with it
			log.Warn("Rate limiter unavailable, allowing vote", "error", err)
		} else if !allowed {
			metrics.VotesRateLimitedTotal.Inc()
			from.Reply(NewErrorEvent("voting too fast, slow down"))
			return
		}
	}

	question, err := d.questions.GetByID(ctx, questionID)
	if err != nil {
		from.Reply(NewErrorEvent("question not found"))
		return
	}
	if question.Resolved {
		from.Reply(NewErrorEvent("voting is closed for this question"))
		return
	}

	count, err := d.aggregator.RecordVote(ctx, questionID, from.UserID(), *env.Estimate)
	switch {
	case errors.Is(err, errCountUnavailable):
		// Vote persisted, count unknown: broadcast a degraded update
		log.Warn("Vote recorded but count unavailable", "error", err)
		metrics.VotesRecordedTotal.Inc()
		d.broadcaster.Broadcast(from.RoomCode(), NewVoteUpdate(env.QuestionID, from.UserID().String(), 0))
	case errors.Is(err, domain.ErrQuestionNotFound):
		from.Reply(NewErrorEvent("question not found"))
	case err != nil:
		log.Error("Failed to record vote", "error", err)
		from.Reply(NewErrorEvent("could not record vote"))
	default:
		metrics.VotesRecordedTotal.Inc()
		d.broadcaster.Broadcast(from.RoomCode(), NewVoteUpdate(env.QuestionID, from.UserID().String(), count))
	}
}

func (d *Dispatcher) handleNewQuestion(ctx context.Context, from client, env *Envelope, log *slog.Logger) {
	if env.Title == "" {
		from.Reply(NewErrorEvent("new_question requires a title"))
		return
	}

	question, err := d.questions.Create(ctx, from.RoomID(), env.Title, env.Text)
	if err != nil {
		log.Error("Failed to create question", "error", err)
		from.Reply(NewErrorEvent("could not create question"))
		return
	}

	d.broadcaster.Broadcast(from.RoomCode(), NewQuestionCreated(question))
}

func (d *Dispatcher) handleCloseVote(ctx context.Context, from client, env *Envelope, log *slog.Logger) {
	questionID, err := uuid.Parse(env.QuestionID)
	if err != nil {
		from.Reply(NewErrorEvent("close_vote requires question_id"))
		return
	}

	estimate, err := d.aggregator.CloseVoting(ctx, questionID)
	switch {
	case errors.Is(err, domain.ErrNoVotes):
		from.Reply(NewErrorEvent("no votes to close"))
	case errors.Is(err, domain.ErrAlreadyResolved):
		from.Reply(NewErrorEvent("voting already closed"))
	case errors.Is(err, domain.ErrQuestionNotFound):
		from.Reply(NewErrorEvent("question not found"))
	case err != nil:
		log.Error("Failed to close voting", "error", err)
		from.Reply(NewErrorEvent("could not close voting"))
	default:
		d.broadcaster.Broadcast(from.RoomCode(), NewVoteClosed(env.QuestionID, estimate))
	}
}

func (d *Dispatcher) handleDeleteQuestion(ctx context.Context, from client, env *Envelope, log *slog.Logger) {
	questionID, err := uuid.Parse(env.QuestionID)
	if err != nil {
		from.Reply(NewErrorEvent("delete_question requires question_id"))
		return
	}

	question, err := d.questions.GetByID(ctx, questionID)
	if err != nil {
		from.Reply(NewErrorEvent("question not found"))
		return
	}

	room, err := d.rooms.GetByID(ctx, question.RoomID)
	if err != nil {
		log.Error("Failed to load room for delete authorization", "error", err)
		from.Reply(NewErrorEvent("could not delete question"))
		return
	}
	if room.OwnerID != from.UserID() {
		from.Reply(NewErrorEvent("only the room owner can delete questions"))
		return
	}

	if err := d.questions.Delete(ctx, questionID); err != nil {
		log.Error("Failed to delete question", "error", err)
		from.Reply(NewErrorEvent("could not delete question"))
		return
	}

	d.broadcaster.Broadcast(from.RoomCode(), NewQuestionDeleted(env.QuestionID))
}
