package game

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTelemetry struct {
	outcomes map[Operation][]error
}

func (r *recordingTelemetry) RecordOutcome(op Operation, err error) {
	if r.outcomes == nil {
		r.outcomes = make(map[Operation][]error)
	}
	r.outcomes[op] = append(r.outcomes[op], err)
}

func TestSimultaneousCreateRequestsYieldOneObstacle(t *testing.T) {
	cfg := testConfig()
	tel := &recordingTelemetry{}
	s := newTestSession(t, cfg, farFruit(cfg), WithTelemetry(tel))
	joinPlayer(t, s, "alice")
	joinPlayer(t, s, "bob")

	errA := s.Submit(Request{Participant: "alice", Op: OpCreateObstacle, X: 5, Z: 5})
	errB := s.Submit(Request{Participant: "bob", Op: OpCreateObstacle, X: 5, Z: 5})
	if errA != nil {
		t.Fatalf("expected first request to win, got %v", errA)
	}
	if !errors.Is(errB, ErrPreconditionFailed) {
		t.Fatalf("expected second request to lose on precondition, got %v", errB)
	}
	spawns := eventsOfKind(s.Drain(), EventSpawn)
	if len(spawns) != 1 {
		t.Fatalf("expected exactly one spawn, got %d", len(spawns))
	}
	if s.Board().Occupant(5, 5) == nil || s.Board().Occupant(5, 5).ID() != spawns[0].EntityID {
		t.Fatalf("expected registered obstacle to match the spawn event")
	}
	if got := len(tel.outcomes[OpCreateObstacle]); got != 2 {
		t.Fatalf("expected 2 create outcomes recorded, got %d", got)
	}
	mustInvariants(t, s.Board())
}

func TestRejectedRequests(t *testing.T) {
	cfg := testConfig()
	layout := farFruit(cfg)
	layout.Obstacles = []Coord{{6, 6}}
	s := newTestSession(t, cfg, layout)
	joinPlayer(t, s, "alice")
	if _, err := s.Join("carol", RoleObserver); err != nil {
		t.Fatalf("join observer: %v", err)
	}

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"observer create", Request{Participant: "carol", Op: OpCreateObstacle, X: 3, Z: 3}, ErrUnauthorized},
		{"observer move", Request{Participant: "carol", Op: OpMove, Dir: DirUp}, ErrUnauthorized},
		{"unknown participant", Request{Participant: "mallory", Op: OpDestroyObstacle, X: 6, Z: 6}, ErrUnauthorized},
		{"out of bounds", Request{Participant: "alice", Op: OpCreateObstacle, X: 40, Z: 3}, ErrInvalidPosition},
		{"negative", Request{Participant: "alice", Op: OpDestroyObstacle, X: -1, Z: 3}, ErrInvalidPosition},
		{"destroy empty", Request{Participant: "alice", Op: OpDestroyObstacle, X: 3, Z: 3}, ErrPreconditionFailed},
		{"destroy wall", Request{Participant: "alice", Op: OpDestroyObstacle, X: 0, Z: 3}, ErrPreconditionFailed},
		{"create on wall", Request{Participant: "alice", Op: OpCreateObstacle, X: 0, Z: 0}, ErrPreconditionFailed},
		{"move without direction", Request{Participant: "alice", Op: OpMove}, ErrUnknownOperation},
		{"bogus op", Request{Participant: "alice", Op: "teleport"}, ErrUnknownOperation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := s.Board().Cells()
			if err := s.Submit(tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			after := s.Board().Cells()
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("expected no board change, index %d changed", i)
				}
			}
		})
	}
	if s.Board().CellAt(6, 6) != CellObstacle {
		t.Fatalf("expected obstacle untouched by rejected destroy")
	}
}

func TestOutOfBoundsRequestIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testConfig()
	s := newTestSession(t, cfg, farFruit(cfg), WithLogger(zap.New(core).Sugar()))
	joinPlayer(t, s, "alice")

	_ = s.Submit(Request{Participant: "alice", Op: OpCreateObstacle, X: 99, Z: 99})
	if logs.FilterMessage("request dropped").Len() != 1 {
		t.Fatalf("expected dropped request to be logged, got %v", logs.All())
	}
}

func TestDestroyRequestStartsAnimation(t *testing.T) {
	cfg := testConfig()
	layout := farFruit(cfg)
	layout.Obstacles = []Coord{{4, 4}}
	s := newTestSession(t, cfg, layout)
	joinPlayer(t, s, "alice")
	joinPlayer(t, s, "bob")
	e := s.Board().Occupant(4, 4)

	if err := s.Submit(Request{Participant: "alice", Op: OpDestroyObstacle, X: 4, Z: 4}); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := s.Submit(Request{Participant: "bob", Op: OpDestroyObstacle, X: 4, Z: 4}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected duplicate destroy to lose, got %v", err)
	}
	if e.State() != StateDestroying {
		t.Fatalf("expected destroying, got %s", e.State())
	}
	settle(s, cfg.ObstacleDestroyDuration)
	if e.State() != StateGone || s.Board().CellAt(4, 4) != CellEmpty {
		t.Fatalf("expected obstacle removed after animation")
	}
	if n := len(eventsOfKind(s.Drain(), EventDespawn)); n != 1 {
		t.Fatalf("expected one despawn, got %d", n)
	}
}

func TestRequestsRejectedAfterLevelEnds(t *testing.T) {
	cfg := testConfig()
	s := newTestSession(t, cfg, farFruit(cfg))
	joinPlayer(t, s, "alice")
	s.Fail("out of time")

	err := s.Submit(Request{Participant: "alice", Op: OpCreateObstacle, X: 3, Z: 3})
	if !errors.Is(err, ErrLevelOver) {
		t.Fatalf("expected ErrLevelOver, got %v", err)
	}
	if s.Board().CellAt(3, 3) != CellEmpty {
		t.Fatalf("expected no mutation after level end")
	}
}

func TestForwarderOnlySends(t *testing.T) {
	cfg := testConfig()
	s := newTestSession(t, cfg, farFruit(cfg))
	var sent []Request
	fw := NewForwarder(func(r Request) error {
		sent = append(sent, r)
		return nil
	})
	if err := fw.Submit(Request{Op: OpCreateObstacle, X: 2, Z: 2}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(sent) != 1 || sent[0].X != 2 {
		t.Fatalf("expected request forwarded, got %+v", sent)
	}
	if s.Board().CellAt(2, 2) != CellEmpty {
		t.Fatalf("expected forwarder not to touch any board")
	}
	if err := NewForwarder(nil).Submit(Request{Op: OpAct}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unconnected forwarder to refuse, got %v", err)
	}
}
