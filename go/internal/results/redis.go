package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/redis/go-redis/v9"
)

const (
	resultsKey          = "jpd:results"
	nonTrivialJudgesKey = "jpd:nonTrivialJudges"
	counterKeyPrefix    = "jpd:"
)

// Client is the subset of *redis.Client the sink needs.
type Client interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisSink records finished games, usage counters and manual verdicts that
// disagreed with a literal match. It implements game.ResultsSink.
type RedisSink struct {
	client Client
}

func NewRedisSink(client Client) *RedisSink {
	return &RedisSink{client: client}
}

// RecordResults pushes the final standings as one JSON list entry.
func (s *RedisSink) RecordResults(ctx context.Context, standings []events.Standing) error {
	data, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}
	if err := s.client.LPush(ctx, resultsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to record results: %w", err)
	}
	return nil
}

func (s *RedisSink) IncrementCounter(ctx context.Context, name string) error {
	if err := s.client.Incr(ctx, counterKeyPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to increment %s: %w", name, err)
	}
	return nil
}

// RecordJudgement logs an accepted answer as "reference,submitted,1".
func (s *RedisSink) RecordJudgement(ctx context.Context, reference, submitted string) error {
	entry := reference + "," + submitted + ",1"
	if err := s.client.LPush(ctx, nonTrivialJudgesKey, entry).Err(); err != nil {
		return fmt.Errorf("failed to record judgement: %w", err)
	}
	return nil
}
