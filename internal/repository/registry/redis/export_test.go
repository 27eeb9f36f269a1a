package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func (r repo) IsRegistered(ctx context.Context, embedID string) (bool, error) {
	err := r.rc.ZScore(ctx, r.key, embedID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
