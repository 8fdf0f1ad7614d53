package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const channelPrefix = "storyhive:"

// NewRedisClient parses redisURL and checks the server answers.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// RedisPublisher publishes events on Redis channels so every API process can
// relay them to its own sockets.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Relay forwards frames received on Redis into a local Deliverer.
type Relay struct {
	client *redis.Client
	target Deliverer
	log    logrus.FieldLogger
}

func NewRelay(client *redis.Client, target Deliverer, log logrus.FieldLogger) *Relay {
	return &Relay{client: client, target: target, log: log}
}

// Start subscribes and returns once the subscription is confirmed. Frames are
// forwarded until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe realtime channels: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					r.log.Warn("realtime relay channel closed")
					return
				}
				topic := strings.TrimPrefix(msg.Channel, channelPrefix)
				r.target.Deliver(topic, []byte(msg.Payload))
			}
		}
	}()
	return nil
}
