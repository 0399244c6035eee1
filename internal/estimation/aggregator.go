package estimation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pscheid92/crowdcast/internal/config"
	"github.com/pscheid92/crowdcast/internal/domain"
	"golang.org/x/sync/singleflight"
)

// errCountUnavailable marks a vote that was persisted but whose fresh count
// could not be read. The dispatcher broadcasts a degraded update in that case.
var errCountUnavailable = errors.New("vote count unavailable")

// Aggregator records votes and resolves questions with the median estimate.
type Aggregator struct {
	votes      domain.VoteRepository
	questions  domain.QuestionRepository
	policy     string
	closeGroup singleflight.Group
}

// NewAggregator creates an aggregator. policy is config.VotePolicySingle
// (a voter's new vote replaces their old one) or config.VotePolicyMulti
// (every vote is appended).
func NewAggregator(votes domain.VoteRepository, questions domain.QuestionRepository, policy string) *Aggregator {
	return &Aggregator{votes: votes, questions: questions, policy: policy}
}

// RecordVote persists a vote and returns the fresh vote count for the
// question. The count is always re-read, never incremented locally, so
// concurrent voters converge on the same number. If the vote persisted but
// the count read failed, the count is 0 and the error wraps
// errCountUnavailable.
func (a *Aggregator) RecordVote(ctx context.Context, questionID, voterID uuid.UUID, estimate float64) (int64, error) {
	var err error
	if a.policy == config.VotePolicyMulti {
		err = a.votes.Append(ctx, questionID, voterID, estimate)
	} else {
		err = a.votes.Replace(ctx, questionID, voterID, estimate)
	}
	if err != nil {
		return 0, err
	}

	count, err := a.votes.Count(ctx, questionID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errCountUnavailable, err)
	}
	return count, nil
}

// CloseVoting resolves a question with the median of its recorded estimates.
// Concurrent closers for the same question are collapsed via singleflight;
// the repository's compare-and-set guarantees the question resolves at most
// once even across processes.
func (a *Aggregator) CloseVoting(ctx context.Context, questionID uuid.UUID) (float64, error) {
	result, err, _ := a.closeGroup.Do(questionID.String(), func() (any, error) {
		estimates, err := a.votes.ListEstimates(ctx, questionID)
		if err != nil {
			return 0.0, err
		}
		if len(estimates) == 0 {
			return 0.0, domain.ErrNoVotes
		}

		final := median(estimates)
		if err := a.questions.CloseWithEstimate(ctx, questionID, final); err != nil {
			return 0.0, err
		}
		return final, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

// median returns the middle value of values, or the mean of the two middle
// values for an even count. The input slice is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
