package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/frahmantamala/audit-workflow/internal"
)

const (
	DefaultChannel    = "audit-workflow:events"
	subscriberBacklog = 256
)

var ErrRelayClosed = errors.New("realtime relay closed")

// Relay carries envelopes between the event bus and every hub.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe returns a channel that is closed when ctx ends or the relay closes.
	Subscribe(ctx context.Context) (<-chan Envelope, error)
	Close() error
}

// LocalRelay keeps the feed inside one process.
type LocalRelay struct {
	mu          sync.Mutex
	subscribers map[chan Envelope]struct{}
	closed      bool
	logger      *slog.Logger
}

func NewLocalRelay(logger *slog.Logger) *LocalRelay {
	return &LocalRelay{
		subscribers: make(map[chan Envelope]struct{}),
		logger:      logger,
	}
}

func (r *LocalRelay) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRelayClosed
	}
	for ch := range r.subscribers {
		select {
		case ch <- env:
		default:
			r.logger.Warn("realtime subscriber backlog full, dropping event", "event_type", env.Type, "event_id", env.ID)
		}
	}
	return nil
}

func (r *LocalRelay) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRelayClosed
	}

	ch := make(chan Envelope, subscriberBacklog)
	r.subscribers[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
	}()
	return ch, nil
}

func (r *LocalRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
	return nil
}

// RedisRelay shares the feed between instances over redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisClient(cfg internal.RealtimeConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewRedisRelay(client *redis.Client, channel string, logger *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{client: client, channel: channel, logger: logger}
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Envelope, subscriberBacklog)
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Warn("skipping malformed realtime payload", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
