package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinnerStartStop(t *testing.T) {
	s := newSpinner("working")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
}

func TestSpinnerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, "working")
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerDoubleStop(t *testing.T) {
	s := newSpinner("working")
	s.Start()
	s.Stop()
	// A second Stop must not panic on the closed done channel.
	s.Stop()
}

func TestSpinnerElapsed(t *testing.T) {
	s := newSpinner("working")
	time.Sleep(20 * time.Millisecond)
	if s.Elapsed() <= 0 {
		t.Error("elapsed time should be positive")
	}
}
