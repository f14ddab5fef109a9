package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/bus"
	sferrors "github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/pipeline"
)

const testMarkup = `<svg viewBox="0 0 100 100">
	<rect id="box" x="10" y="10" width="30" height="30" fill="red"/>
</svg>`

func testOptions() *pipeline.Options {
	return &pipeline.Options{
		Markup:     []byte(testMarkup),
		SkipRender: true,
	}
}

func testPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p := NewPool(pipeline.NewRunner(nil, nil, nil), cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	})
	return p
}

func TestStateMachine(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateParsing, true},
		{StatePending, StateFailed, true},
		{StateParsing, StateBuilding, true},
		{StateBuilding, StateAnimating, true},
		{StateBuilding, StateRendering, true},
		{StateBuilding, StateDone, true},
		{StateAnimating, StateRendering, true},
		{StateRendering, StateDone, true},
		{StatePending, StateRendering, false},
		{StateDone, StateParsing, false},
		{StateFailed, StatePending, false},
		{StateRendering, StateParsing, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() || StateRendering.Terminal() {
		t.Error("terminal states misreported")
	}
}

func TestSubmitAndWait(t *testing.T) {
	p := testPool(t, Config{Workers: 2})
	ctx := context.Background()

	job, err := p.Submit(ctx, testOptions())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID == "" {
		t.Fatal("empty job id")
	}

	done, err := p.Wait(ctx, job.ID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if done.State != StateDone {
		t.Errorf("State = %s, want %s (error %q)", done.State, StateDone, done.Error)
	}
	if len(done.ObjectsCreated) == 0 {
		t.Error("ObjectsCreated is empty")
	}
	if done.StartedAt == nil || done.FinishedAt == nil {
		t.Error("missing timestamps")
	}
	if err := p.Err(job.ID); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
}

func TestSubmitValidatesSynchronously(t *testing.T) {
	p := testPool(t, Config{Workers: 1})

	_, err := p.Submit(context.Background(), &pipeline.Options{SkipRender: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if !sferrors.Is(err, sferrors.ErrCodeInvalidInput) {
		t.Errorf("code = %s, want %s", sferrors.GetCode(err), sferrors.ErrCodeInvalidInput)
	}
	if len(p.Jobs()) != 0 {
		t.Error("invalid submission left a job record")
	}
}

func TestJobFailureCarriesStage(t *testing.T) {
	p := testPool(t, Config{Workers: 1})
	ctx := context.Background()

	opts := testOptions()
	opts.Tracks = []anim.Track{{
		Target:    "ghost",
		Property:  anim.PropOpacity,
		Keyframes: []anim.Keyframe{{Frame: 0, Value: anim.Value{1}}},
	}}

	job, err := p.Submit(ctx, opts)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	done, err := p.Wait(ctx, job.ID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if done.State != StateFailed {
		t.Fatalf("State = %s, want %s", done.State, StateFailed)
	}
	if done.Error == "" {
		t.Error("missing error message")
	}

	var stageE *pipeline.StageError
	if !errors.As(p.Err(job.ID), &stageE) {
		t.Fatalf("Err = %T, want *pipeline.StageError", p.Err(job.ID))
	}
	if stageE.Stage != pipeline.StageAnimating {
		t.Errorf("Stage = %s, want %s", stageE.Stage, pipeline.StageAnimating)
	}
}

func TestPoolPublishesStateEvents(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()
	p := testPool(t, Config{Workers: 1, Bus: b})
	ctx := context.Background()

	job, err := p.Submit(ctx, testOptions())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := p.Wait(ctx, job.ID); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ev, ok, err := b.Last(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("Last = ok %v, err %v", ok, err)
	}
	if ev.State != string(StateDone) {
		t.Errorf("final event state = %q, want %q", ev.State, StateDone)
	}
}

func TestPoolDropsIllegalTransition(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()
	p := testPool(t, Config{Workers: 1, Bus: b})
	ctx := context.Background()

	rec := &jobRecord{
		job:  Job{ID: "finished", State: StateDone},
		done: make(chan struct{}),
	}

	// A finished job must stay finished: the transition table rejects
	// moves out of a terminal state and nothing may be published.
	p.transition(ctx, rec, StateRendering)
	if rec.job.State != StateDone {
		t.Errorf("state after illegal transition = %q, want %q", rec.job.State, StateDone)
	}
	p.fail(ctx, rec, pipeline.StageRendering, sferrors.New(sferrors.ErrCodeRender, "late failure"))
	if rec.job.State != StateDone {
		t.Errorf("state after illegal fail = %q, want %q", rec.job.State, StateDone)
	}
	if rec.job.Error != "" {
		t.Errorf("error set on finished job: %q", rec.job.Error)
	}

	if _, ok, err := b.Last(ctx, "finished"); err != nil || ok {
		t.Errorf("illegal transition published an event (ok=%v, err=%v)", ok, err)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := testPool(t, Config{Workers: 2})
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		job, err := p.Submit(ctx, testOptions())
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids[i] = job.ID
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if done, err := p.Wait(ctx, id); err != nil || done.State != StateDone {
				t.Errorf("job %s: state %s, err %v", id, done.State, err)
			}
		}(job.ID)
	}
	wg.Wait()

	if got := len(p.Jobs()); got != 8 {
		t.Errorf("Jobs() = %d records, want 8", got)
	}
}

func TestShutdownRejectsNewJobs(t *testing.T) {
	p := NewPool(pipeline.NewRunner(nil, nil, nil), Config{Workers: 1})
	ctx := context.Background()

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := p.Submit(ctx, testOptions()); err == nil {
		t.Fatal("Submit after Shutdown succeeded")
	}
}

func TestWaitUnknownJob(t *testing.T) {
	p := testPool(t, Config{Workers: 1})
	if _, err := p.Wait(context.Background(), "nope"); err == nil {
		t.Fatal("expected error")
	}
}
