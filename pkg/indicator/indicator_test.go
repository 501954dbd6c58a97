package indicator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-boardlist/pkg/clock"
	"github.com/google/go-cmp/cmp"
)

type transition struct {
	Target  string
	Visible bool
}

func TestServiceVisibilityCountsHandles(t *testing.T) {
	var transitions []transition
	svc := NewService(WithObserver(func(target string, visible bool) {
		transitions = append(transitions, transition{target, visible})
	}))

	first := svc.Indicator("board")
	second := svc.Indicator(" board ")
	first.Start()
	first.Start()
	second.Start()
	if !svc.Visible("board") {
		t.Fatalf("expected board to be visible")
	}
	first.Stop()
	if !svc.Visible("board") {
		t.Fatalf("expected board to stay visible while second handle runs")
	}
	second.Stop()
	second.Stop()
	if svc.Visible("board") {
		t.Fatalf("expected board to be hidden")
	}

	want := []transition{{"board", true}, {"board", false}}
	if diff := cmp.Diff(want, transitions); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapKeepsIndicatorForMinimumDuration(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	svc := NewService()
	wrapped := Wrap(func(context.Context) (string, error) {
		clk.Advance(10 * time.Millisecond)
		return "query", nil
	}, svc.Indicator("board"), 50*time.Millisecond, clk)

	value, err := wrapped(context.Background())
	if err != nil || value != "query" {
		t.Fatalf("unexpected result %q, %v", value, err)
	}
	if !svc.Visible("board") {
		t.Fatalf("expected indicator visible right after a fast fetch")
	}
	clk.Advance(39 * time.Millisecond)
	if !svc.Visible("board") {
		t.Fatalf("expected indicator visible at 49ms")
	}
	clk.Advance(time.Millisecond)
	if svc.Visible("board") {
		t.Fatalf("expected indicator hidden at 50ms")
	}
}

func TestWrapHidesImmediatelyAfterSlowWork(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	svc := NewService()
	boom := errors.New("boom")
	wrapped := Wrap(func(context.Context) (int, error) {
		if !svc.Visible("board") {
			t.Fatalf("expected indicator visible while work runs")
		}
		clk.Advance(80 * time.Millisecond)
		return 0, boom
	}, svc.Indicator("board"), 50*time.Millisecond, clk)

	if _, err := wrapped(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if svc.Visible("board") {
		t.Fatalf("expected indicator hidden once work outlived the minimum")
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no pending hide timer, got %d", clk.Pending())
	}
}

func TestWrapSkipsTogglesAfterCancellation(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	svc := NewService()
	ctx, cancel := context.WithCancel(context.Background())

	wrapped := Wrap(func(context.Context) (string, error) {
		clk.Advance(10 * time.Millisecond)
		return "query", nil
	}, svc.Indicator("board"), 50*time.Millisecond, clk)

	if _, err := wrapped(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	clk.Advance(time.Second)
	if !svc.Visible("board") {
		t.Fatalf("expected no hide toggle after cancellation")
	}
}

type stopCountingClock struct {
	*clock.Manual
	stops atomic.Int32
}

func (c *stopCountingClock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	return countedTimer{Timer: c.Manual.AfterFunc(d, fn), stops: &c.stops}
}

type countedTimer struct {
	clock.Timer
	stops *atomic.Int32
}

func (t countedTimer) Stop() bool {
	t.stops.Add(1)
	return t.Timer.Stop()
}

func TestWrapReleasesCancellationWatchAfterHide(t *testing.T) {
	clk := &stopCountingClock{Manual: clock.NewManual(time.Time{})}
	svc := NewService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapped := Wrap(func(context.Context) (string, error) {
		clk.Advance(10 * time.Millisecond)
		return "query", nil
	}, svc.Indicator("board"), 50*time.Millisecond, clk)

	if _, err := wrapped(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(40 * time.Millisecond)
	if svc.Visible("board") {
		t.Fatalf("expected indicator hidden at 50ms")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	if n := clk.stops.Load(); n != 0 {
		t.Fatalf("expected the cancellation watch released once the hide ran, got %d timer stops", n)
	}
}
