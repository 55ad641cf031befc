package server

import (
	"context"
	"testing"
	"time"

	"icegrid/game"
)

func TestJoinSendsWelcomeAndSnapshot(t *testing.T) {
	r := newTestRoom(t, testConfig())
	alice := joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.Step()

	msgs := drainMessages(t, alice)
	if len(msgs) < 3 || msgs[0].Type != MsgWelcome || msgs[1].Type != MsgSnapshot || msgs[2].Type != MsgTick {
		t.Fatalf("expected welcome, snapshot, tick; got %+v", msgs)
	}
	if msgs[0].Participant != "alice" || msgs[0].Role != game.RolePlayer {
		t.Fatalf("unexpected welcome %+v", msgs[0])
	}
	snap := msgs[1].Snapshot
	if snap == nil || snap.Width != 15 || len(snap.Cells) != 15*15 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Agents) != 1 || snap.Agents[0].ID != "alice" {
		t.Fatalf("expected alice in snapshot agents, got %+v", snap.Agents)
	}
}

func TestSimultaneousCreatesThroughRoom(t *testing.T) {
	r := newTestRoom(t, testConfig())
	alice := joinRoom(t, r, "alice", game.RolePlayer, "json")
	bob := joinRoom(t, r, "bob", game.RolePlayer, "json")
	r.Step()
	drainMessages(t, alice)
	drainMessages(t, bob)

	r.OnInput(create("alice", 7, 7, 1))
	r.OnInput(create("bob", 7, 7, 1))
	r.Step()

	aliceMsgs := drainMessages(t, alice)
	if n := spawnsAt(aliceMsgs, 7, 7); n != 1 {
		t.Fatalf("expected one spawn at (7,7), got %d", n)
	}
	if len(messagesOfType(drainMessages(t, bob), MsgReject)) != 0 {
		t.Fatalf("expected losing request to be silent")
	}
	if r.session.Board().CellAt(7, 7) != game.CellObstacle {
		t.Fatalf("expected obstacle on authority board")
	}
	m := r.Metrics().Snapshot()
	if m["applied"].(int64) != 1 || m["precondition_failed"].(int64) != 1 {
		t.Fatalf("unexpected outcomes %v", m)
	}
}

func TestRateLimitPerTick(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInputsPerTick = 2
	r := newTestRoom(t, cfg)
	joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.Step()

	for i := 0; i < 5; i++ {
		r.OnInput(create("alice", 7+i%3, 7+i/3, int64(i+1)))
	}
	r.Step()

	if got := r.Metrics().RateLimited; got != 3 {
		t.Fatalf("expected 3 rate limited inputs, got %d", got)
	}
	if got := r.Metrics().Applied; got != 2 {
		t.Fatalf("expected 2 applied, got %d", got)
	}
}

func TestOldSequenceIgnored(t *testing.T) {
	r := newTestRoom(t, testConfig())
	joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.Step()

	r.OnInput(create("alice", 7, 7, 2))
	r.OnInput(create("alice", 8, 8, 2))
	r.OnInput(create("alice", 9, 9, 1))
	r.OnInput(create("alice", 9, 7, 0))
	r.Step()

	if got := r.Metrics().OldSeqIgnored; got != 2 {
		t.Fatalf("expected 2 stale inputs ignored, got %d", got)
	}
	b := r.session.Board()
	if b.CellAt(8, 8) != game.CellEmpty || b.CellAt(9, 9) != game.CellEmpty {
		t.Fatalf("expected stale inputs to have no effect")
	}
	if b.CellAt(7, 7) != game.CellObstacle || b.CellAt(9, 7) != game.CellObstacle {
		t.Fatalf("expected fresh and unsequenced inputs applied")
	}
}

func TestObserverMutationRejected(t *testing.T) {
	r := newTestRoom(t, testConfig())
	carol := joinRoom(t, r, "carol", game.RoleObserver, "json")
	r.Step()
	drainMessages(t, carol)

	r.OnInput(create("carol", 7, 7, 1))
	r.Step()

	rejects := messagesOfType(drainMessages(t, carol), MsgReject)
	if len(rejects) != 1 || rejects[0].Op != string(game.OpCreateObstacle) || rejects[0].Seq != 1 {
		t.Fatalf("expected one reject for create, got %+v", rejects)
	}
	if r.session.Board().CellAt(7, 7) != game.CellEmpty {
		t.Fatalf("expected observer request to have no effect")
	}
	if r.Metrics().Unauthorized != 1 {
		t.Fatalf("expected unauthorized outcome recorded")
	}
}

func TestMsgpackObserverMirrorsAuthority(t *testing.T) {
	r := newTestRoom(t, testConfig())
	joinRoom(t, r, "alice", game.RolePlayer, "json")
	watcher := joinRoom(t, r, "watcher", game.RoleObserver, "msgpack")
	r.Step()

	var mirror *game.Mirror
	apply := func(msgs []ServerMessage) {
		for _, m := range msgs {
			switch m.Type {
			case MsgSnapshot:
				mirror = game.NewMirror(*m.Snapshot)
			case MsgTick:
				mirror.ApplyAll(m.Events)
			}
		}
	}
	apply(drainMessages(t, watcher))
	if mirror == nil {
		t.Fatalf("expected snapshot over msgpack")
	}

	r.OnInput(create("alice", 7, 7, 1))
	r.OnInput(Input{Participant: "alice", Request: game.Request{Op: game.OpDestroyObstacle, X: 5, Z: 5}, Seq: 2})
	for i := 0; i < 20; i++ {
		r.Step()
		apply(drainMessages(t, watcher))
	}

	want, got := r.session.Board(), mirror.Board()
	for z := 0; z < want.Height(); z++ {
		for x := 0; x < want.Width(); x++ {
			if want.CellAt(x, z) != got.CellAt(x, z) {
				t.Fatalf("cell (%d,%d): authority %s mirror %s", x, z, want.CellAt(x, z), got.CellAt(x, z))
			}
		}
	}
	if got.CellAt(5, 5) != game.CellEmpty || got.CellAt(7, 7) != game.CellObstacle {
		t.Fatalf("expected mirror to reflect create and destroy")
	}
}

func TestLeaveRemovesParticipant(t *testing.T) {
	r := newTestRoom(t, testConfig())
	alice := joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.Step()

	stale := fakeConn(t, "json")
	r.RequestLeave("alice", stale)
	r.Step()
	if _, ok := r.participants["alice"]; !ok {
		t.Fatalf("expected leave from another connection to be ignored")
	}

	r.RequestLeave("alice", alice)
	r.Step()
	if _, ok := r.participants["alice"]; ok {
		t.Fatalf("expected alice removed")
	}
	if r.session.Players() != 0 {
		t.Fatalf("expected agent removed from session")
	}
	select {
	case <-alice.done:
	default:
		t.Fatalf("expected connection closed")
	}
}

func TestDuplicateJoinRefused(t *testing.T) {
	r := newTestRoom(t, testConfig())
	first := joinRoom(t, r, "alice", game.RolePlayer, "json")
	second := joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.Step()

	errs := messagesOfType(drainMessages(t, second), MsgError)
	if len(errs) != 1 {
		t.Fatalf("expected error message for duplicate join, got %d", len(errs))
	}
	select {
	case <-second.done:
	default:
		t.Fatalf("expected duplicate connection closed")
	}
	if r.participants["alice"].Conn != first {
		t.Fatalf("expected first connection to stay")
	}
}

func TestSimulatedDropAndFullChannel(t *testing.T) {
	cfg := testConfig()
	cfg.InputBuffer = 1
	r := newTestRoom(t, cfg)

	r.UpdateTuning(func(tu *Tuning) { tu.SimulateDropProb = 1 })
	r.OnInput(create("alice", 7, 7, 1))
	if r.Metrics().DropsSimulated != 1 {
		t.Fatalf("expected simulated drop")
	}

	r.UpdateTuning(func(tu *Tuning) { tu.SimulateDropProb = 0 })
	r.OnInput(create("alice", 7, 7, 1))
	r.OnInput(create("alice", 8, 8, 2))
	if r.Metrics().ChanFullDiscarded != 1 {
		t.Fatalf("expected one discarded input, got %d", r.Metrics().ChanFullDiscarded)
	}
}

func TestSimulatedDelayDefersInput(t *testing.T) {
	r := newTestRoom(t, testConfig())
	joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.Step()

	r.UpdateTuning(func(tu *Tuning) { tu.SimulateDelayMinMs, tu.SimulateDelayMaxMs = 30, 30 })
	r.OnInput(create("alice", 7, 7, 1))
	r.Step()
	if r.session.Board().CellAt(7, 7) != game.CellEmpty {
		t.Fatalf("expected delayed input not yet applied")
	}
	deadline := time.Now().Add(2 * time.Second)
	for r.session.Board().CellAt(7, 7) != game.CellObstacle {
		if time.Now().After(deadline) {
			t.Fatalf("delayed input never applied")
		}
		time.Sleep(10 * time.Millisecond)
		r.Step()
	}
}

func TestRestartKeepsParticipants(t *testing.T) {
	r := newTestRoom(t, testConfig())
	joinRoom(t, r, "alice", game.RolePlayer, "json")
	r.OnInput(create("alice", 7, 7, 1))
	r.StartTicker()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	waitFor(t, func() bool {
		st, err := r.State(ctx)
		return err == nil && st.Snapshot.Cells[7*15+7] == game.CellObstacle
	})

	if err := r.Restart(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.Snapshot.Cells[7*15+7] != game.CellEmpty {
		t.Fatalf("expected fresh board after restart")
	}
	if st.Players != 1 || len(st.Participants) != 1 || st.Participants[0].ID != "alice" {
		t.Fatalf("expected alice kept after restart, got %+v", st.Participants)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func isClosed(c *ClientConn) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func TestJoinAfterStopClosesConnection(t *testing.T) {
	r := newTestRoom(t, testConfig())
	r.Stop()

	conn := fakeConn(t, "json")
	r.RequestJoin("alice", game.RolePlayer, conn)
	if !isClosed(conn) {
		t.Fatalf("expected connection closed when joining a stopped room")
	}
}

func TestStopClosesQueuedJoins(t *testing.T) {
	r := newTestRoom(t, testConfig())

	// 入队但尚未被 Tick 处理
	conn := fakeConn(t, "json")
	r.RequestJoin("alice", game.RolePlayer, conn)
	if isClosed(conn) {
		t.Fatalf("expected queued join to stay open while the room runs")
	}
	r.Stop()
	if !isClosed(conn) {
		t.Fatalf("expected queued join closed by stop")
	}
	if len(r.joinChan) != 0 {
		t.Fatalf("expected join queue drained, %d left", len(r.joinChan))
	}
}
