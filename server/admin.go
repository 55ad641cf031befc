package server

import (
	"encoding/json"
	"net/http"
)

// roomFromQuery 只查找已存在的房间，管理接口不创建新房间
func (m *RoomManager) roomFromQuery(w http.ResponseWriter, r *http.Request) (*Room, bool) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = m.cfg.DefaultRoom
	}
	room, ok := m.Room(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return nil, false
	}
	return room, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间参数的读取与更新（热更新）
// GET /admin/config?room=room-1  返回当前参数与关卡配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}

	type patch struct {
		MaxInputsPerTick   *int     `json:"maxInputsPerTick,omitempty"`
		SimulateDelayMinMs *int     `json:"simulateDelayMinMs,omitempty"`
		SimulateDelayMaxMs *int     `json:"simulateDelayMaxMs,omitempty"`
		SimulateDropProb   *float64 `json:"simulateDropProb,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{
			"room":   room.ID,
			"tuning": room.Tuning(),
			"game":   m.cfg.Game,
		})
	case http.MethodPost:
		var body patch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		next := room.Tuning()
		if body.MaxInputsPerTick != nil {
			next.MaxInputsPerTick = *body.MaxInputsPerTick
		}
		if body.SimulateDelayMinMs != nil {
			next.SimulateDelayMinMs = *body.SimulateDelayMinMs
		}
		if body.SimulateDelayMaxMs != nil {
			next.SimulateDelayMaxMs = *body.SimulateDelayMaxMs
		}
		if body.SimulateDropProb != nil {
			next.SimulateDropProb = *body.SimulateDropProb
		}
		if next.MaxInputsPerTick <= 0 || next.SimulateDelayMinMs < 0 || next.SimulateDelayMaxMs < 0 ||
			next.SimulateDropProb < 0 || next.SimulateDropProb > 1 {
			http.Error(w, "invalid tuning", http.StatusBadRequest)
			return
		}
		cur := room.UpdateTuning(func(t *Tuning) { *t = next })
		m.log.Infof("config updated: room=%s maxInputsPerTick=%d delay=[%d,%d] drop=%.2f",
			room.ID, cur.MaxInputsPerTick, cur.SimulateDelayMinMs, cur.SimulateDelayMaxMs, cur.SimulateDropProb)
		writeJSON(w, map[string]any{"ok": true, "tuning": cur})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRestart 以相同配置重新开始一局
// POST /admin/restart?room=room-1
func (m *RoomManager) HandleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}
	if err := room.Restart(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// HandleState 输出房间完整状态（棋盘、实体、玩家、阶段）
// GET /state?room=room-1
func (m *RoomManager) HandleState(w http.ResponseWriter, r *http.Request) {
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}
	st, err := room.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, st)
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"room":    room.ID,
		"tick":    room.Tick(),
		"metrics": room.Metrics().Snapshot(),
	})
}
