// internal/history/redis.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pidr-game/pidr-engine/internal/config"
	"github.com/pidr-game/pidr-engine/internal/engine"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultActionQueue is the Redis list name the accounting worker drains for
// per-move records.
var DefaultActionQueue = "pidr_actions"

// DefaultRewardQueue is the Redis list name for end-of-match reward reports.
var DefaultRewardQueue = "pidr_rewards"

// RewardReport is the end-of-match accounting record, one row per seat.
type RewardReport struct {
	MatchID     uuid.UUID `json:"match_id"`
	SeatID      uuid.UUID `json:"seat_id"`
	Place       int       `json:"place"`
	Coins       int       `json:"coins"`
	RatingDelta int       `json:"rating_delta"`
	Timestamp   int64     `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := config.GetEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishAction serializes one accepted move and pushes it onto the action
// queue. Only a quick network send blocks the caller.
func PublishAction(ctx context.Context, record engine.ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
	}

	queueName := config.GetEnv("HISTORY_ACTION_QUEUE", DefaultActionQueue)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// PublishRewards pushes one RewardReport per seat onto the reward queue at
// match end.
func PublishRewards(ctx context.Context, matchID uuid.UUID, results []engine.SeatResult) error {
	queueName := config.GetEnv("HISTORY_REWARD_QUEUE", DefaultRewardQueue)
	now := time.Now().UnixMilli()
	for _, r := range results {
		report := RewardReport{
			MatchID:     matchID,
			SeatID:      r.SeatID,
			Place:       r.Place,
			Coins:       r.Reward.Coins,
			RatingDelta: r.Reward.RatingDelta,
			Timestamp:   now,
		}
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal reward report: %w", err)
		}
		if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
			return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
		}
	}
	return nil
}
