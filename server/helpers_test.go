package server

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"icegrid/game"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Game.EnemyEnabled = false
	cfg.Game.Seed = 1
	return cfg
}

func newTestRoom(t *testing.T, cfg Config) *Room {
	t.Helper()
	r, err := NewRoom("test", cfg, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	t.Cleanup(r.Stop)
	return r
}

// fakeConn 不启动读写协程，测试直接读取发送队列
func fakeConn(t *testing.T, codecName string) *ClientConn {
	t.Helper()
	c, err := LookupCodec(codecName)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return NewClientConn(nil, c, 64)
}

func drainMessages(t *testing.T, c *ClientConn) []ServerMessage {
	t.Helper()
	var out []ServerMessage
	for {
		select {
		case b := <-c.send:
			var msg ServerMessage
			if err := c.codec.Unmarshal(b, &msg); err != nil {
				t.Fatalf("decode %s: %v", c.codec.Name(), err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func messagesOfType(msgs []ServerMessage, typ string) []ServerMessage {
	var out []ServerMessage
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func spawnsAt(msgs []ServerMessage, x, z int) int {
	n := 0
	for _, m := range messagesOfType(msgs, MsgTick) {
		for _, ev := range m.Events {
			if ev.Kind == game.EventSpawn && ev.X == x && ev.Z == z {
				n++
			}
		}
	}
	return n
}

func joinRoom(t *testing.T, r *Room, id string, role game.Role, codecName string) *ClientConn {
	t.Helper()
	c := fakeConn(t, codecName)
	r.RequestJoin(id, role, c)
	return c
}

func create(id string, x, z int, seq int64) Input {
	return Input{Participant: id, Request: game.Request{Op: game.OpCreateObstacle, X: x, Z: z}, Seq: seq}
}
