package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Redis struct {
	Client  *redis.Client
	Logger  *zap.SugaredLogger
	Channel string
}

func New(host, password, channel string, logger *zap.SugaredLogger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host,
		Password: password,
	})

	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{
		Client:  client,
		Logger:  logger,
		Channel: channel,
	}, nil
}

// Publish sends payload on <Channel>:<suffix>, or on Channel when suffix is
// empty.
func (r *Redis) Publish(ctx context.Context, suffix string, payload []byte) error {
	channel := r.Channel
	if suffix != "" {
		channel = r.Channel + ":" + suffix
	}

	if err := r.Client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}

	r.Logger.Debugw("redis: Publish", "channel", channel, "bytes", len(payload))

	return nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
