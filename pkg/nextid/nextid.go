// Package nextid assigns identifiers to newly created records.
package nextid

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Generator returns a fresh identifier on every call.
type Generator interface {
	Next(ctx context.Context) (string, error)
}

// Random draws 128 random bits and renders them as 32 hex characters.
type Random struct{}

func (Random) Next(context.Context) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("nextid: random: %w", err)
	}
	return hex.EncodeToString(u[:]), nil
}

type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Redis hands out a shared, monotonically increasing sequence so several API
// processes never mint the same id.
type Redis struct {
	client incrementer
	key    string
}

// NewRedis returns a Redis generator counting on key.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (g *Redis) Next(ctx context.Context) (string, error) {
	n, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return "", fmt.Errorf("nextid: incr %s: %w", g.key, err)
	}
	return strconv.FormatInt(n, 10), nil
}
