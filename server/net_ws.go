package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"icegrid/game"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 1 << 20 // 1MB
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec Codec
	send  chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClientConn(ws *websocket.Conn, codec Codec, buffer int) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, buffer),
		done:  make(chan struct{}),
	}
}

func (c *ClientConn) Codec() Codec { return c.codec }

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃消息（防止阻塞 Tick）
		return false
	}
}

// Close 通知写协程发送剩余消息后关闭连接；可重复调用
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.write(c.codec.MessageType(), msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case msg := <-c.send:
					if err := c.write(c.codec.MessageType(), msg); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *ClientConn) write(messageType int, payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, payload)
}

// readPump 读取客户端输入，转换为 Input 注入房间
func (c *ClientConn) readPump(room *Room, participant string) {
	// 读泵退出时，通知房间在 Tick 线程中移除该参与者
	defer room.RequestLeave(participant, c)
	defer c.Close()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				room.log.Debugw("read failed", "participant", participant, "err", err)
			}
			return
		}
		var im InputMessage
		if err := c.codec.Unmarshal(payload, &im); err != nil {
			room.metrics.IncBadFrames()
			room.log.Debugw("bad frame", "participant", participant, "codec", c.codec.Name(), "err", err)
			continue
		}
		req, err := im.ToRequest(participant)
		if err != nil {
			room.metrics.IncBadFrames()
			room.log.Debugw("bad input", "participant", participant, "err", err)
			continue
		}
		room.OnInput(Input{Participant: participant, Request: req, Seq: im.Seq})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?room=room-1&participant=alice&role=player|observer&codec=json|msgpack
// 未提供 participant 时分配匿名 ID
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		roomID = m.cfg.DefaultRoom
	}
	participant := q.Get("participant")
	if participant == "" {
		participant = "anon-" + uuid.NewString()[:8]
	}
	role := game.RolePlayer
	switch q.Get("role") {
	case "", string(game.RolePlayer):
	case string(game.RoleObserver):
		role = game.RoleObserver
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	codecName := q.Get("codec")
	if codecName == "" {
		codecName = m.cfg.Codec
	}
	codec, err := LookupCodec(codecName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	room, err := m.GetOrCreateRoom(roomID)
	if err != nil {
		m.log.Errorw("room unavailable", "room", roomID, "err", err)
		http.Error(w, "room unavailable", http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warnw("upgrade failed", "err", err)
		return
	}

	client := NewClientConn(ws, codec, m.cfg.SendBuffer)
	room.RequestJoin(participant, role, client)

	go client.writePump()
	go client.readPump(room, participant)
}
