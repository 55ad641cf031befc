package game

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EnemyEnabled = false
	cfg.Seed = 1
	cfg.Layout = "empty"
	return cfg
}

func newTestSession(t *testing.T, cfg Config, layout Layout, opts ...Option) *Session {
	t.Helper()
	base := []Option{WithLayout(layout), WithLogger(zaptest.NewLogger(t).Sugar())}
	s, err := NewSession(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func joinPlayer(t *testing.T, s *Session, id string) *Agent {
	t.Helper()
	a, err := s.Join(id, RolePlayer)
	if err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
	return a
}

// settle 以 Tick 粒度推进足够长的时间
func settle(s *Session, total time.Duration) {
	const tick = 10 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < total; elapsed += tick {
		s.Advance(tick)
	}
}

func countKind(b *Board, kind Cell, row int) int {
	n := 0
	for x := 0; x < b.Width(); x++ {
		if b.CellAt(x, row) == kind {
			n++
		}
	}
	return n
}

func eventsOfKind(evs []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func mustInvariants(t *testing.T, b *Board) {
	t.Helper()
	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("board invariant violated: %v", err)
	}
}
