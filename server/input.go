package server

import (
	"fmt"
	"strings"

	"icegrid/game"
)

// Input 客户端输入（意图），由服务端在 Tick 中解释并提交给会话
type Input struct {
	Participant string
	Request     game.Request
	Seq         int64 // 客户端本地序列号，用于去重
}

// InputMessage 上行消息
// 示例：{"type":"move","command":"up"}、{"type":"act"}、{"type":"create","x":5,"z":5}
type InputMessage struct {
	Type    string `json:"type" msgpack:"type"`
	Command string `json:"command,omitempty" msgpack:"command,omitempty"`
	X       int    `json:"x,omitempty" msgpack:"x,omitempty"`
	Z       int    `json:"z,omitempty" msgpack:"z,omitempty"`
	Seq     int64  `json:"seq,omitempty" msgpack:"seq,omitempty"`
}

// ToRequest 转换为会话请求；未知类型返回错误
func (m InputMessage) ToRequest(participant string) (game.Request, error) {
	req := game.Request{Participant: participant, X: m.X, Z: m.Z, Seq: m.Seq}
	switch strings.ToLower(m.Type) {
	case "move":
		req.Op = game.OpMove
		req.Dir = game.ParseDirection(strings.ToLower(m.Command))
	case "act":
		req.Op = game.OpAct
	case "create":
		req.Op = game.OpCreateObstacle
	case "destroy":
		req.Op = game.OpDestroyObstacle
	default:
		return game.Request{}, fmt.Errorf("input type %q: %w", m.Type, game.ErrUnknownOperation)
	}
	return req, nil
}
