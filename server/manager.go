package server

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	cfg Config
	log *zap.SugaredLogger

	mu     sync.RWMutex
	rooms  map[string]*Room
	closed bool
}

func NewRoomManager(cfg Config, log *zap.SugaredLogger) *RoomManager {
	if log == nil {
		log = Log
	}
	return &RoomManager{cfg: cfg, log: log, rooms: make(map[string]*Room)}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrRoomClosed
	}
	r, ok := m.rooms[id]
	if !ok {
		var err error
		r, err = NewRoom(id, m.cfg, m.log.Named("room"))
		if err != nil {
			return nil, fmt.Errorf("create room %q: %w", id, err)
		}
		m.rooms[id] = r
		r.StartTicker()
		m.log.Infow("room created", "room", id, "layout", m.cfg.Game.Layout, "tps", m.cfg.TicksPerSecond)
	}
	return r, nil
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

func (m *RoomManager) RoomIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close 停止所有房间；之后不再创建新房间
func (m *RoomManager) Close() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.closed = true
	m.mu.Unlock()
	for _, r := range rooms {
		r.Stop()
	}
}

// Handler 注册全部 HTTP 路由
func (m *RoomManager) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", m.HandleAdminConfig)
	mux.HandleFunc("/admin/restart", m.HandleRestart)
	mux.HandleFunc("/state", m.HandleState)
	mux.HandleFunc("/metrics", m.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
