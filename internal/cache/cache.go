// Package cache publishes match action records to Redis for downstream
// consumers (replay history, spectator feeds).
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Callers guard on nil; the server runs
// without Redis, losing only the action feed.
var Rdb *redis.Client

const (
	actionStream  = "match_actions"
	actionChannel = "match_actions_live"
)

// Init connects the shared client and verifies the connection.
func Init(ctx context.Context, addr, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	Rdb = client
	logrus.Info("redis connected")
	return nil
}

// MatchActionRecord is one resolved action in a match, ordered by the
// per-match action index.
type MatchActionRecord struct {
	MatchID       uuid.UUID      `json:"matchId"`
	ActionIndex   int            `json:"actionIndex"`
	ActorUserID   uuid.UUID      `json:"actorUserId"` // Nil for system actions (turn timeouts)
	ActionType    string         `json:"actionType"`
	ActionPayload map[string]any `json:"actionPayload,omitempty"`
	Timestamp     int64          `json:"timestamp"` // unix millis
}

// PublishMatchAction queues the record on the action list and notifies live
// subscribers.
func PublishMatchAction(ctx context.Context, rec MatchActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	pipe := Rdb.Pipeline()
	pipe.RPush(ctx, actionStream, data)
	pipe.Publish(ctx, actionChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish action record: %w", err)
	}
	return nil
}
