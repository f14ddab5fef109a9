// Package worker runs pipeline jobs concurrently. A Pool bounds
// concurrency with a weighted semaphore sized from the machine's CPU
// count, gives every job its own pipeline invocation over a fully
// isolated scene graph, and tracks each job through the state machine
//
//	pending → parsing → building → (animating) → rendering → done | failed
//
// State changes are published to an optional message bus and reported to
// the observability server hooks.
package worker

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/semaphore"

	"github.com/echiweshe/sceneforge/pkg/bus"
	"github.com/echiweshe/sceneforge/pkg/cache"
	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/observability"
	"github.com/echiweshe/sceneforge/pkg/pipeline"
)

// =============================================================================
// Job states
// =============================================================================

// State is one step of a job's lifecycle.
type State string

const (
	StatePending   State = "pending"
	StateParsing   State = "parsing"
	StateBuilding  State = "building"
	StateAnimating State = "animating"
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions leave the state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// validNext lists the allowed transitions. Animating is optional and
// rendering may be skipped, so several states can jump straight to done.
var validNext = map[State][]State{
	StatePending:   {StateParsing, StateFailed},
	StateParsing:   {StateBuilding, StateFailed},
	StateBuilding:  {StateAnimating, StateRendering, StateDone, StateFailed},
	StateAnimating: {StateRendering, StateDone, StateFailed},
	StateRendering: {StateDone, StateFailed},
}

// CanTransition reports whether the move from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, n := range validNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// =============================================================================
// Job records
// =============================================================================

// Job is a snapshot of one submitted job. Callers receive copies; the
// pool owns the live record.
type Job struct {
	ID             string     `json:"id"`
	State          State      `json:"state"`
	Error          string     `json:"error,omitempty"`
	ObjectsCreated []string   `json:"objects_created,omitempty"`
	OutputPath     string     `json:"output_path,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type jobRecord struct {
	job  Job
	err  error
	done chan struct{}
}

// =============================================================================
// Pool
// =============================================================================

// Config configures a Pool.
type Config struct {
	// Workers bounds concurrent jobs. Zero sizes the pool from the
	// machine's logical CPU count.
	Workers int `json:"workers,omitempty"`

	// JobTimeout bounds each job's run time. Zero applies DefaultJobTimeout.
	JobTimeout time.Duration `json:"job_timeout,omitempty"`

	// Bus receives job state events. Nil disables publishing.
	Bus bus.Bus `json:"-"`

	// Logger defaults to the runner's logger.
	Logger *log.Logger `json:"-"`
}

// DefaultJobTimeout bounds a job when the config does not.
const DefaultJobTimeout = 10 * time.Minute

// defaultWorkers sizes the pool from the logical CPU count.
func defaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Pool executes pipeline jobs with bounded concurrency.
type Pool struct {
	runner  *pipeline.Runner
	sem     *semaphore.Weighted
	timeout time.Duration
	bus     bus.Bus
	logger  *log.Logger

	mu     sync.Mutex
	jobs   map[string]*jobRecord
	wg     sync.WaitGroup
	closed bool
}

// NewPool creates a pool running jobs through the given runner.
func NewPool(runner *pipeline.Runner, cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = runner.Logger
	}
	return &Pool{
		runner:  runner,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
		bus:     cfg.Bus,
		logger:  logger,
		jobs:    make(map[string]*jobRecord),
	}
}

// Submit queues a job. Validation failures surface synchronously; the
// returned snapshot is in the pending state.
func (p *Pool) Submit(ctx context.Context, opts *pipeline.Options) (Job, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Job{}, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Job{}, errors.New(errors.ErrCodeInvalidInput, "pool is shut down")
	}
	rec := &jobRecord{
		job: Job{
			ID:        uuid.NewString(),
			State:     StatePending,
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	p.jobs[rec.job.ID] = rec
	p.wg.Add(1)
	p.mu.Unlock()

	p.publish(ctx, rec.job.ID, StatePending, nil)
	go p.run(context.WithoutCancel(ctx), rec, opts)
	return p.snapshot(rec), nil
}

// Job returns a snapshot of a submitted job.
func (p *Pool) Job(id string) (Job, bool) {
	p.mu.Lock()
	rec, ok := p.jobs[id]
	p.mu.Unlock()
	if !ok {
		return Job{}, false
	}
	return p.snapshot(rec), true
}

// Jobs returns snapshots of every known job.
func (p *Pool) Jobs() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Job, 0, len(p.jobs))
	for _, rec := range p.jobs {
		out = append(out, p.snapshotLocked(rec))
	}
	return out
}

// Wait blocks until the job reaches a terminal state or the context ends.
func (p *Pool) Wait(ctx context.Context, id string) (Job, error) {
	p.mu.Lock()
	rec, ok := p.jobs[id]
	p.mu.Unlock()
	if !ok {
		return Job{}, errors.New(errors.ErrCodeInvalidInput, "unknown job %q", id)
	}
	select {
	case <-rec.done:
		return p.snapshot(rec), nil
	case <-ctx.Done():
		return Job{}, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "waiting for job %s", id)
	}
}

// Shutdown stops accepting jobs and waits for in-flight jobs to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "waiting for jobs to drain")
	}
}

// =============================================================================
// Execution
// =============================================================================

func (p *Pool) run(ctx context.Context, rec *jobRecord, opts *pipeline.Options) {
	defer p.wg.Done()
	defer close(rec.done)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.fail(ctx, rec, pipeline.StageParsing, err)
		return
	}
	defer p.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	now := time.Now()
	p.mu.Lock()
	rec.job.StartedAt = &now
	p.mu.Unlock()

	p.transition(ctx, rec, StateParsing)
	doc, _, err := p.runner.ParseWithCacheInfo(ctx, opts)
	if err != nil {
		p.fail(ctx, rec, pipeline.StageParsing, err)
		return
	}
	docHash := cache.Hash(opts.Markup)

	p.transition(ctx, rec, StateBuilding)
	s, _, err := p.runner.BuildWithCacheInfo(ctx, doc, docHash, opts)
	if err != nil {
		p.fail(ctx, rec, pipeline.StageBuilding, err)
		return
	}
	p.mu.Lock()
	rec.job.ObjectsCreated = s.IDs()
	p.mu.Unlock()

	if opts.Animated() {
		p.transition(ctx, rec, StateAnimating)
	}
	animated, err := p.runner.Animate(s, opts)
	if err != nil {
		p.fail(ctx, rec, pipeline.StageAnimating, err)
		return
	}

	if !opts.SkipRender {
		p.transition(ctx, rec, StateRendering)
		if _, err := p.runner.RenderWithCacheInfo(ctx, animated, pipeline.SceneHash(s), opts); err != nil {
			p.fail(ctx, rec, pipeline.StageRendering, err)
			return
		}
		p.mu.Lock()
		rec.job.OutputPath = opts.OutputPath
		p.mu.Unlock()
	}

	p.transition(ctx, rec, StateDone)
	p.logger.Info("job finished", "job", rec.job.ID, "objects", len(rec.job.ObjectsCreated))
}

func (p *Pool) transition(ctx context.Context, rec *jobRecord, to State) {
	p.mu.Lock()
	from := rec.job.State
	if !from.CanTransition(to) {
		p.mu.Unlock()
		p.logger.Warn("dropping illegal job transition", "job", rec.job.ID, "from", from, "to", to)
		return
	}
	rec.job.State = to
	if to.Terminal() {
		now := time.Now()
		rec.job.FinishedAt = &now
	}
	p.mu.Unlock()

	observability.Server().OnJobStateChange(ctx, rec.job.ID, string(from), string(to))
	p.publish(ctx, rec.job.ID, to, nil)
}

func (p *Pool) fail(ctx context.Context, rec *jobRecord, stage pipeline.Stage, err error) {
	err = &pipeline.StageError{Stage: stage, Err: err}

	p.mu.Lock()
	from := rec.job.State
	if !from.CanTransition(StateFailed) {
		p.mu.Unlock()
		p.logger.Warn("dropping illegal job transition", "job", rec.job.ID, "from", from, "to", StateFailed)
		return
	}
	rec.job.State = StateFailed
	rec.job.Error = err.Error()
	rec.err = err
	now := time.Now()
	rec.job.FinishedAt = &now
	p.mu.Unlock()

	observability.Server().OnJobStateChange(ctx, rec.job.ID, string(from), string(StateFailed))
	p.publish(ctx, rec.job.ID, StateFailed, err)
	p.logger.Error("job failed", "job", rec.job.ID, "stage", stage, "error", err)
}

func (p *Pool) publish(ctx context.Context, jobID string, state State, err error) {
	if p.bus == nil {
		return
	}
	ev := bus.JobEvent{JobID: jobID, State: string(state), Time: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	if pubErr := p.bus.Publish(ctx, ev); pubErr != nil {
		p.logger.Warn("publishing job event", "job", jobID, "error", pubErr)
	}
}

func (p *Pool) snapshot(rec *jobRecord) Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(rec)
}

func (p *Pool) snapshotLocked(rec *jobRecord) Job {
	j := rec.job
	j.ObjectsCreated = append([]string(nil), rec.job.ObjectsCreated...)
	return j
}

// Err returns the failure of a finished job, nil for success or unknown ids.
func (p *Pool) Err(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.jobs[id]; ok {
		return rec.err
	}
	return nil
}
