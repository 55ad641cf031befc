package server

import "icegrid/game"

// 服务端消息类型
const (
	MsgWelcome  = "welcome"
	MsgSnapshot = "snapshot"
	MsgTick     = "tick"
	MsgReject   = "reject"
	MsgError    = "error"
)

// ServerMessage 下行消息；按 Type 使用不同字段
type ServerMessage struct {
	Type string `json:"type" msgpack:"type"`
	Tick uint64 `json:"tick,omitempty" msgpack:"tick,omitempty"`

	// welcome
	Participant string    `json:"participant,omitempty" msgpack:"participant,omitempty"`
	Role        game.Role `json:"role,omitempty" msgpack:"role,omitempty"`

	// snapshot
	Snapshot *game.Snapshot `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`

	// tick
	Events  []game.Event      `json:"events,omitempty" msgpack:"events,omitempty"`
	Agents  []game.AgentState `json:"agents,omitempty" msgpack:"agents,omitempty"`
	Enemies []game.AgentState `json:"enemies,omitempty" msgpack:"enemies,omitempty"`
	Phase   *game.Status      `json:"phase,omitempty" msgpack:"phase,omitempty"`
	Score   *game.ScoreState  `json:"score,omitempty" msgpack:"score,omitempty"`

	// reject / error
	Seq   int64  `json:"seq,omitempty" msgpack:"seq,omitempty"`
	Op    string `json:"op,omitempty" msgpack:"op,omitempty"`
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
}
