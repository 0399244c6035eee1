package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// voteRateLimitScript implements an atomic token bucket. State lives in a
// hash per voter; elapsed time refills tokens up to capacity.
// ARGV: [1]=now_ms, [2]=capacity, [3]=rate (tokens per minute)
var voteRateLimitScript = goredis.NewScript(`
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last_refill = tonumber(redis.call('HGET', KEYS[1], 'last_refill'))
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
if tokens == nil then
  tokens = capacity
  last_refill = now
end
local elapsed_min = (now - last_refill) / 60000.0
tokens = math.min(capacity, tokens + elapsed_min * rate)
local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('PEXPIRE', KEYS[1], 120000)
return allowed
`)

// VoteRateLimiter implements token bucket rate limiting for votes.
type VoteRateLimiter struct {
	rdb      *goredis.Client
	clock    clockwork.Clock
	capacity int
	rate     int // tokens per minute
}

// NewVoteRateLimiter creates a new vote rate limiter.
// capacity: maximum burst size (tokens)
// rate: sustained rate (tokens per minute)
func NewVoteRateLimiter(client *Client, clock clockwork.Clock, capacity, rate int) *VoteRateLimiter {
	return &VoteRateLimiter{
		rdb:      client.Underlying(),
		clock:    clock,
		capacity: capacity,
		rate:     rate,
	}
}

// Allow checks if a vote is allowed for the voter.
// Returns true if allowed (token consumed), false if rate limited.
func (v *VoteRateLimiter) Allow(ctx context.Context, voterID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("rate_limit:votes:%s", voterID)

	result, err := voteRateLimitScript.Run(ctx, v.rdb, []string{key},
		v.clock.Now().UnixMilli(),
		v.capacity,
		v.rate,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return result == 1, nil
}
