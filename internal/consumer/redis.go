package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/nifty-data/internal/model"
)

// StreamAdder appends to a Redis stream. *redis.Client satisfies it.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisConfig configures a Redis consumer.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	StreamKey string
	MaxLen    int64         // Approximate stream length cap; 0 keeps everything
	Timeout   time.Duration // Per-XADD timeout
}

// Redis appends every tick and order event to a Redis stream as JSON.
type Redis struct {
	client   StreamAdder
	cfg      RedisConfig
	producer string
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, cfg RedisConfig) (*Redis, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedis(client, cfg), client, nil
}

// NewRedis creates a Redis consumer over an existing client.
func NewRedis(client StreamAdder, cfg RedisConfig) *Redis {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Redis{client: client, cfg: cfg, producer: uuid.NewString()}
}

func (r *Redis) OnTick(t model.CanonicalTick) error {
	return r.add("tick", t)
}

func (r *Redis) OnOrderEvent(e map[string]any) error {
	return r.add("order", e)
}

func (r *Redis) add(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.cfg.StreamKey,
		MaxLen: r.cfg.MaxLen,
		Approx: r.cfg.MaxLen > 0,
		Values: map[string]any{
			"kind":     kind,
			"producer": r.producer,
			"data":     string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis XADD %s: %w", r.cfg.StreamKey, err)
	}
	return nil
}
