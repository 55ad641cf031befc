package server

import "icegrid/game"

// Participant 房间内的连接方；仅在 Tick 线程中访问
type Participant struct {
	ID   string
	Role game.Role
	Conn *ClientConn

	lastSeq        int64
	inputsThisTick int
}

// ParticipantState 管理接口输出
type ParticipantState struct {
	ID      string    `json:"id"`
	Role    game.Role `json:"role"`
	Codec   string    `json:"codec,omitempty"`
	LastSeq int64     `json:"lastSeq"`
}

func (p *Participant) State() ParticipantState {
	st := ParticipantState{ID: p.ID, Role: p.Role, LastSeq: p.lastSeq}
	if p.Conn != nil {
		st.Codec = p.Conn.codec.Name()
	}
	return st
}
