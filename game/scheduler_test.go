package game

import (
	"reflect"
	"testing"
	"time"
)

func TestSchedulerRunsInDueOrder(t *testing.T) {
	var s Scheduler
	var got []string
	s.After(30*time.Millisecond, func() { got = append(got, "c") })
	s.After(10*time.Millisecond, func() { got = append(got, "a") })
	s.After(10*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(20 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected order after 20ms: %v", got)
	}
	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", s.Pending())
	}
	s.Advance(10 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order after 30ms: %v", got)
	}
	if s.Now() != 30*time.Millisecond {
		t.Fatalf("expected clock at 30ms, got %v", s.Now())
	}
}

func TestSchedulerChainedTasksWithinOneAdvance(t *testing.T) {
	var s Scheduler
	var at []time.Duration
	var step func(n int)
	step = func(n int) {
		at = append(at, s.Now())
		if n < 3 {
			s.After(100*time.Millisecond, func() { step(n + 1) })
		}
	}
	s.After(0, func() { step(1) })

	s.Advance(250 * time.Millisecond)
	want := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}
	if !reflect.DeepEqual(at, want) {
		t.Fatalf("expected steps at %v, got %v", want, at)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected chain to finish, %d pending", s.Pending())
	}
}
