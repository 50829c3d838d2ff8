// Package inflight rejects overlapping submissions of the same action on
// the same resource.
package inflight

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInFlight = errors.New("request already in flight")

// release only deletes the lock when it still holds our token, so a lock
// that expired and was taken by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Guard struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func New(rdb *redis.Client, ttl, opTimeout time.Duration) *Guard {
	return &Guard{rdb: rdb, ttl: ttl, opTimeout: opTimeout}
}

func Key(action, resource string) string {
	return "inflight:" + action + ":" + resource
}

// Acquire takes the lock for action on resource. The returned func releases
// it and must be called once the request is done.
func (g *Guard) Acquire(ctx context.Context, action, resource string) (func(), error) {
	key := Key(action, resource)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, g.opTimeout)
	defer cancel()

	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.opTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, g.rdb, []string{key}, token).Err(); err != nil {
			slog.Warn("impossible de libérer le verrou de requête", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return release, nil
}
