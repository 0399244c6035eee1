package estimation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pscheid92/crowdcast/internal/config"
	"github.com/pscheid92/crowdcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd count", []float64{3, 1, 2}, 2},
		{"even count", []float64{4, 1, 3, 2}, 2.5},
		{"single value", []float64{5}, 5},
		{"duplicates", []float64{2, 2, 8}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.values))
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestRecordVote_SinglePolicyReplacesEarlierVote(t *testing.T) {
	votes := newFakeVoteRepo()
	questions := newFakeQuestionRepo()
	agg := NewAggregator(votes, questions, config.VotePolicySingle)

	questionID := uuid.New()
	voter := uuid.New()

	count, err := agg.RecordVote(context.Background(), questionID, voter, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = agg.RecordVote(context.Background(), questionID, voter, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "revote must not add a second vote")

	estimates, err := votes.ListEstimates(context.Background(), questionID)
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, estimates)
}

func TestRecordVote_MultiPolicyAppends(t *testing.T) {
	votes := newFakeVoteRepo()
	questions := newFakeQuestionRepo()
	agg := NewAggregator(votes, questions, config.VotePolicyMulti)

	questionID := uuid.New()
	voter := uuid.New()

	_, err := agg.RecordVote(context.Background(), questionID, voter, 3)
	require.NoError(t, err)
	count, err := agg.RecordVote(context.Background(), questionID, voter, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRecordVote_CountFailureMarksDegraded(t *testing.T) {
	votes := newFakeVoteRepo()
	votes.countErr = errors.New("connection reset")
	questions := newFakeQuestionRepo()
	agg := NewAggregator(votes, questions, config.VotePolicySingle)

	questionID := uuid.New()
	_, err := agg.RecordVote(context.Background(), questionID, uuid.New(), 5)
	require.ErrorIs(t, err, errCountUnavailable)

	// The vote itself survived
	estimates, listErr := votes.ListEstimates(context.Background(), questionID)
	require.NoError(t, listErr)
	assert.Len(t, estimates, 1)
}

func TestCloseVoting_ResolvesWithMedian(t *testing.T) {
	votes := newFakeVoteRepo()
	questions := newFakeQuestionRepo()
	agg := NewAggregator(votes, questions, config.VotePolicyMulti)

	question := questions.add(uuid.New(), false)
	for _, e := range []float64{1, 10, 4} {
		_ = votes.Append(context.Background(), question.ID, uuid.New(), e)
	}

	estimate, err := agg.CloseVoting(context.Background(), question.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, estimate)

	stored, err := questions.GetByID(context.Background(), question.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)
	require.NotNil(t, stored.Estimate)
	assert.Equal(t, 4.0, *stored.Estimate)
}

func TestCloseVoting_NoVotes(t *testing.T) {
	votes := newFakeVoteRepo()
	questions := newFakeQuestionRepo()
	agg := NewAggregator(votes, questions, config.VotePolicySingle)

	question := questions.add(uuid.New(), false)

	_, err := agg.CloseVoting(context.Background(), question.ID)
	require.ErrorIs(t, err, domain.ErrNoVotes)

	stored, err := questions.GetByID(context.Background(), question.ID)
	require.NoError(t, err)
	assert.False(t, stored.Resolved, "failed close must not resolve the question")
}

func TestCloseVoting_SecondCloseFails(t *testing.T) {
	votes := newFakeVoteRepo()
	questions := newFakeQuestionRepo()
	agg := NewAggregator(votes, questions, config.VotePolicySingle)

	question := questions.add(uuid.New(), false)
	_ = votes.Append(context.Background(), question.ID, uuid.New(), 7)

	_, err := agg.CloseVoting(context.Background(), question.ID)
	require.NoError(t, err)

	_, err = agg.CloseVoting(context.Background(), question.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}
