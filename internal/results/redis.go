package results

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "plonk:results:"
	// Stream is the redis stream that announces every uploaded archive.
	Stream = "plonk:results"
)

// RedisUploader stores archives as plain keys with a TTL and announces them
// on Stream.
type RedisUploader struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisUploader(client *redis.Client, ttl time.Duration) *RedisUploader {
	return &RedisUploader{client: client, ttl: ttl}
}

// Key is the redis key holding sessionID's archive.
func Key(sessionID string) string { return keyPrefix + sessionID }

func (u *RedisUploader) Upload(ctx context.Context, sessionID string, archive []byte) error {
	_, err := u.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, Key(sessionID), archive, u.ttl)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: Stream,
			MaxLen: 10000,
			Approx: true,
			Values: map[string]any{
				"session": sessionID,
				"key":     Key(sessionID),
				"bytes":   len(archive),
			},
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upload of %s: %w", sessionID, err)
	}
	return nil
}
