package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/redis"
)

// RedisNotifier publishes turn resolutions to a per-game pub/sub channel.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger,
	}
}

// Channel returns the pub/sub channel carrying a game's turn notifications.
func Channel(gameID int) string {
	return fmt.Sprintf("game:%d:turns", gameID)
}

func (n *RedisNotifier) TurnResolved(ctx context.Context, resolution TurnResolution) {
	logger := n.logger.With(
		"component", "redis_notifier",
		"operation", "turn_resolved",
		"game_id", resolution.GameID,
	)

	payload, err := json.Marshal(resolution)
	if err != nil {
		logger.Error("Failed to encode turn resolution", "error", err)
		return
	}

	if err := n.client.Publish(ctx, Channel(resolution.GameID), payload).Err(); err != nil {
		logger.Error("Failed to publish turn resolution", "error", err)
		return
	}

	logger.Debug("Turn resolution published", "new_turn_number", resolution.NewTurnNumber)
}
