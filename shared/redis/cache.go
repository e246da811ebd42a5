package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Generation identifies one version of a cached view. Every invalidation starts a new one.
type Generation int64

// NoGeneration is returned when the cache cannot be trusted; values must not be stored under it.
const NoGeneration Generation = -1

// ViewCache stores a JSON-encoded read projection of type T under a generation-scoped key.
// Invalidation increments the generation counter, so a reader that loaded its data before a
// write can only fill a key nobody reads any more.
// A zero TTL keeps view keys until the next invalidation removes them.
type ViewCache[T any] struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
	// stale is set when an invalidation could not reach Redis. While set, reads bypass
	// the cache until a new generation has been started.
	stale atomic.Bool
}

func NewViewCache[T any](client *goredis.Client, key string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, key: key, ttl: ttl}
}

func (c *ViewCache[T]) generationKey() string {
	return c.key + ":generation"
}

func (c *ViewCache[T]) viewKey(gen Generation) string {
	return fmt.Sprintf("%s:%d", c.key, gen)
}

// Get returns the view of the current generation. On a miss the returned generation is the
// one a freshly built view must be stored under; it is NoGeneration when Redis failed.
// Numbers inside dynamic fields decode as json.Number so they re-encode unchanged.
func (c *ViewCache[T]) Get(ctx context.Context) (*T, Generation, bool) {
	if c.stale.Load() {
		if err := c.Invalidate(ctx); err != nil {
			return nil, NoGeneration, false
		}
	}

	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && err != goredis.Nil {
		log.Warn().Err(err).Str("key", c.generationKey()).Msg("view cache generation read failed")
		return nil, NoGeneration, false
	}

	key := c.viewKey(Generation(gen))
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("view cache read failed")
			return nil, NoGeneration, false
		}
		return nil, Generation(gen), false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v T
	if err := dec.Decode(&v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("view cache holds undecodable value")
		return nil, Generation(gen), false
	}
	return &v, Generation(gen), true
}

// Set stores value under gen. It is best effort: a failed cache write is logged, never returned.
func (c *ViewCache[T]) Set(ctx context.Context, gen Generation, value *T) {
	if gen == NoGeneration {
		return
	}
	key := c.viewKey(gen)
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("view cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("view cache write failed")
	}
}

// Invalidate starts a new generation and drops the previous view. If the counter cannot be
// incremented the cache is marked stale and reads bypass it until a later call succeeds.
func (c *ViewCache[T]) Invalidate(ctx context.Context) error {
	gen, err := c.client.Incr(ctx, c.generationKey()).Result()
	if err != nil {
		c.stale.Store(true)
		return fmt.Errorf("failed to invalidate view cache %s: %w", c.key, err)
	}
	c.stale.Store(false)

	old := c.viewKey(Generation(gen - 1))
	if err := c.client.Del(ctx, old).Err(); err != nil {
		log.Debug().Err(err).Str("key", old).Msg("view cache cleanup failed")
	}
	return nil
}
