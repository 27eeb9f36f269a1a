package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/playerbridge/internal/repository/registry"
)

// repo keeps registered videos in a sorted set scored by registration time.
type repo struct {
	rc     *redis.Client
	key    string
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, namespace string, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		key:    namespace + ":registry:videos",
		logger: logger,
	}
}

// Register is idempotent and keeps the first registration time.
func (r repo) Register(ctx context.Context, embedID string) error {
	funcName := "registry.redis.Register"
	r.logger.DebugContext(ctx, funcName, "embed_id", embedID)

	added, err := r.rc.ZAddNX(ctx, r.key, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: embedID,
	}).Result()
	if err != nil {
		r.logger.InfoContext(ctx, funcName, "error", err)
		return err
	}

	r.logger.DebugContext(ctx, funcName, "added", added)
	return nil
}

func (r repo) Unregister(ctx context.Context, embedID string) error {
	funcName := "registry.redis.Unregister"
	r.logger.DebugContext(ctx, funcName, "embed_id", embedID)

	removed, err := r.rc.ZRem(ctx, r.key, embedID).Result()
	if err != nil {
		r.logger.InfoContext(ctx, funcName, "error", err)
		return err
	}

	if removed == 0 {
		r.logger.InfoContext(ctx, funcName, "error", registry.ErrVideoNotRegistered)
		return registry.ErrVideoNotRegistered
	}

	r.logger.DebugContext(ctx, funcName, "result", "OK")
	return nil
}

// List returns the registered videos in registration order.
func (r repo) List(ctx context.Context) ([]registry.Entry, error) {
	funcName := "registry.redis.List"
	members, err := r.rc.ZRangeWithScores(ctx, r.key, 0, -1).Result()
	if err != nil {
		r.logger.InfoContext(ctx, funcName, "error", err)
		return nil, err
	}

	entries := make([]registry.Entry, 0, len(members))
	for _, m := range members {
		embedID, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, registry.Entry{
			EmbedID:      embedID,
			RegisteredAt: time.UnixMilli(int64(m.Score)).UTC(),
		})
	}

	r.logger.DebugContext(ctx, funcName, "count", len(entries))
	return entries, nil
}

// Clear drops every registration, used when the process starts with no
// live embeds.
func (r repo) Clear(ctx context.Context) error {
	return r.rc.Del(ctx, r.key).Err()
}
