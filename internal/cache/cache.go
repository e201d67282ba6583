// Package cache holds the daemon's cache-aside layer for the full lead list.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fentz26/leadboard/internal/models"
	"github.com/go-redis/redis/v8"
)

// ListCache caches the unfiltered lead list snapshot.
//
// Snapshots are tagged with a generation. Invalidate starts a new one, so a
// list read from the database before a mutation and written after it lands
// in a generation nobody reads again.
type ListCache interface {
	// GetList returns the cached snapshot, whether it was present, and the
	// generation to pass to SetList on a miss.
	GetList(ctx context.Context) (leads []models.Lead, gen int64, ok bool, err error)
	SetList(ctx context.Context, gen int64, leads []models.Lead) error
	// Invalidate drops the snapshot after any mutation.
	Invalidate(ctx context.Context) error
}

const (
	genKey     = "leadboard:leads:gen"
	listPrefix = "leadboard:leads:all:"
)

func listKey(gen int64) string {
	return listPrefix + strconv.FormatInt(gen, 10)
}

// Redis is a ListCache backed by a Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// GetList implements ListCache.
func (r *Redis) GetList(ctx context.Context) ([]models.Lead, int64, bool, error) {
	gen, err := r.client.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}

	str, err := r.client.Get(ctx, listKey(gen)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}

	var leads []models.Lead
	if err := json.Unmarshal([]byte(str), &leads); err != nil {
		// A snapshot written by an older schema is treated as a miss.
		return nil, gen, false, nil
	}
	return leads, gen, true, nil
}

// SetList implements ListCache.
func (r *Redis) SetList(ctx context.Context, gen int64, leads []models.Lead) error {
	data, err := json.Marshal(leads)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, listKey(gen), data, r.ttl).Err()
}

// Invalidate implements ListCache.
func (r *Redis) Invalidate(ctx context.Context) error {
	gen, err := r.client.Incr(ctx, genKey).Result()
	if err != nil {
		return err
	}
	return r.client.Del(ctx, listKey(gen-1)).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop never caches.
type Nop struct{}

func (Nop) GetList(context.Context) ([]models.Lead, int64, bool, error) { return nil, 0, false, nil }
func (Nop) SetList(context.Context, int64, []models.Lead) error         { return nil }
func (Nop) Invalidate(context.Context) error                            { return nil }
