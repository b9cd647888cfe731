// Package redis relays room invalidations between server instances over
// Redis pub/sub so that every instance can push them to its own sockets.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rx3lixir/focus_rooms/internal/event"
)

type ClientConfig struct {
	Address  string
	Password string
	DB       int
}

// NewClient connects and pings Redis.
func NewClient(ctx context.Context, cfg ClientConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxConnAge:   30 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

const (
	relayRetryMin = 500 * time.Millisecond
	relayRetryMax = 30 * time.Second
)

// Broker publishes invalidations to Redis and delivers the ones it receives
// to the local notifier. While the relay subscription is up an instance
// hears its own events through Redis; while it is down they are delivered
// locally as well.
type Broker struct {
	client *goredis.Client
	prefix string
	local  event.Notifier
	log    *slog.Logger

	relaying atomic.Bool
	retryMin time.Duration
	retryMax time.Duration
}

func NewBroker(client *goredis.Client, prefix string, local event.Notifier, log *slog.Logger) *Broker {
	return &Broker{
		client:   client,
		prefix:   prefix,
		local:    local,
		log:      log,
		retryMin: relayRetryMin,
		retryMax: relayRetryMax,
	}
}

func (b *Broker) channel(inv event.Invalidation) string {
	return b.prefix + "room:" + inv.RoomID.String()
}

// Relaying reports whether the subscription that feeds local sockets is up.
func (b *Broker) Relaying() bool {
	return b.relaying.Load()
}

// Notify publishes inv for the other instances. This instance's sockets get
// it directly when Redis is unreachable or the relay is down.
func (b *Broker) Notify(ctx context.Context, inv event.Invalidation) {
	payload, err := json.Marshal(inv)
	if err != nil {
		b.log.Error("failed to encode invalidation", "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	err = b.client.Publish(pubCtx, b.channel(inv), payload).Err()
	if err != nil {
		b.log.Warn("failed to publish invalidation, delivering locally",
			"room_id", inv.RoomID,
			"topic", inv.Topic,
			"error", err)
	}
	if err != nil || !b.relaying.Load() {
		b.local.Notify(ctx, inv)
	}
}

// Run keeps the relay subscription up until ctx ends, resubscribing with
// backoff whenever it drops.
func (b *Broker) Run(ctx context.Context) {
	backoff := b.retryMin
	for {
		connected, err := b.relay(ctx)
		b.relaying.Store(false)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = b.retryMin
		}

		b.log.Warn("redis relay down, delivering locally",
			"error", err,
			"retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, b.retryMax)
	}
}

// relay runs one subscription. connected reports whether it was confirmed.
func (b *Broker) relay(ctx context.Context) (connected bool, err error) {
	pattern := b.prefix + "room:*"
	pubsub := b.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	b.relaying.Store(true)
	b.log.Info("relaying room invalidations from redis", "pattern", pattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription closed")
			}
			b.deliver(ctx, msg)
		}
	}
}

func (b *Broker) deliver(ctx context.Context, msg *goredis.Message) {
	if !strings.HasPrefix(msg.Channel, b.prefix+"room:") {
		return
	}

	var inv event.Invalidation
	if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
		b.log.Warn("dropping malformed invalidation",
			"channel", msg.Channel,
			"error", err)
		return
	}

	b.local.Notify(ctx, inv)
}
