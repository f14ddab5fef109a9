package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/echiweshe/sceneforge/pkg/errors"
)

// jobChannel is the pub/sub channel and result key for one job.
func jobChannel(jobID string) string {
	return "sceneforge:job:" + jobID
}

// RedisConfig configures the Redis bus backend.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `json:"addr"`

	// Password is optional.
	Password string `json:"password,omitempty"`

	// DB selects the logical database.
	DB int `json:"db,omitempty"`
}

// RedisBus distributes events through Redis pub/sub. The latest event per
// job is kept under the same key for cross-process polling.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeIO, err, "connecting to redis at %s", cfg.Addr)
	}
	return &RedisBus{client: client}, nil
}

var _ Bus = (*RedisBus)(nil)

// Publish stores the event under the job's result key and broadcasts it.
func (b *RedisBus) Publish(ctx context.Context, ev JobEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encoding job event")
	}
	key := jobChannel(ev.JobID)
	if err := b.client.Set(ctx, key, data, ResultTTL).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "storing job event")
	}
	if err := b.client.Publish(ctx, key, data).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "publishing job event")
	}
	return nil
}

// Subscribe streams events for one job until cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, jobID string) (<-chan JobEvent, func(), error) {
	sub := b.client.Subscribe(ctx, jobChannel(jobID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "subscribing to job %s", jobID)
	}

	out := make(chan JobEvent, subscriberBuffer)
	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			sub.Close()
		})
	}

	go func() {
		defer close(out)
		in := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				cancel()
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var ev JobEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, cancel, nil
}

// Last polls the job's result key.
func (b *RedisBus) Last(ctx context.Context, jobID string) (JobEvent, bool, error) {
	data, err := b.client.Get(ctx, jobChannel(jobID)).Bytes()
	if err == redis.Nil {
		return JobEvent{}, false, nil
	}
	if err != nil {
		return JobEvent{}, false, errors.Wrap(errors.ErrCodeIO, err, "reading job event")
	}
	var ev JobEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return JobEvent{}, false, errors.Wrap(errors.ErrCodeIO, err, "decoding job event")
	}
	return ev, true, nil
}

// Close releases the Redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
