// Package bus distributes job lifecycle events to interested consumers.
//
// Two backends are provided:
//   - memory: in-process fan-out for single-binary deployments and tests
//   - redis: pub/sub plus a result key for cross-process deployments
//
// Publishers emit a JobEvent whenever a job changes state. Subscribers
// receive events for a single job id; the latest event is additionally
// retained so late consumers can poll for completion.
//
// # Usage
//
//	b := bus.NewMemoryBus()
//	defer b.Close()
//
//	events, cancel, err := b.Subscribe(ctx, jobID)
//	if err != nil {
//		return err
//	}
//	defer cancel()
//	for ev := range events {
//		// react to ev.State
//	}
package bus

import (
	"context"
	"time"
)

// JobEvent describes one job state change.
type JobEvent struct {
	JobID string    `json:"job_id"`
	State string    `json:"state"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// Bus is the event distribution interface.
type Bus interface {
	// Publish emits an event. Delivery to subscribers is best-effort; the
	// latest event per job is always retained for Last.
	Publish(ctx context.Context, ev JobEvent) error

	// Subscribe streams events for one job. The returned cancel func
	// releases the subscription and closes the channel.
	Subscribe(ctx context.Context, jobID string) (<-chan JobEvent, func(), error)

	// Last returns the most recent event for a job. The bool reports
	// whether any event was found.
	Last(ctx context.Context, jobID string) (JobEvent, bool, error)

	// Close releases the bus.
	Close() error
}

// ResultTTL bounds how long the latest event per job is retained.
const ResultTTL = time.Hour

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind loses events rather than blocking publishers.
const subscriberBuffer = 16
