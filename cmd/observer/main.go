// observer 终端客户端：通过 WebSocket 接收复制事件，在本地 Mirror 上渲染棋盘。
// 以 player 角色连接时方向键移动、空格执行动作，请求经 Forwarder 发往权威服务端。
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"icegrid/game"
	"icegrid/server"
)

func main() {
	var (
		addr        = flag.String("addr", "localhost:8080", "server address")
		room        = flag.String("room", "room-1", "room id")
		participant = flag.String("participant", "", "participant id (empty: assigned by server)")
		role        = flag.String("role", "player", "player or observer")
		codecName   = flag.String("codec", "msgpack", "json or msgpack")
	)
	flag.Parse()

	if err := run(*addr, *room, *participant, *role, *codecName); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr, room, participant, role, codecName string) error {
	codec, err := server.LookupCodec(codecName)
	if err != nil {
		return err
	}
	q := url.Values{"room": {room}, "role": {role}, "codec": {codecName}}
	if participant != "" {
		q.Set("participant", participant)
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws", RawQuery: q.Encode()}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer ws.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()

	v := &view{screen: screen}
	c := &client{ws: ws, codec: codec}
	fw := game.NewForwarder(c.send)

	go c.readLoop(v)

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			v.draw()
		case *tcell.EventInterrupt:
			v.draw()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return nil
			case tcell.KeyUp:
				v.report(fw.Submit(game.Request{Op: game.OpMove, Dir: game.DirUp}))
			case tcell.KeyDown:
				v.report(fw.Submit(game.Request{Op: game.OpMove, Dir: game.DirDown}))
			case tcell.KeyLeft:
				v.report(fw.Submit(game.Request{Op: game.OpMove, Dir: game.DirLeft}))
			case tcell.KeyRight:
				v.report(fw.Submit(game.Request{Op: game.OpMove, Dir: game.DirRight}))
			case tcell.KeyRune:
				switch ev.Rune() {
				case ' ':
					v.report(fw.Submit(game.Request{Op: game.OpAct}))
				case 'q':
					return nil
				}
			}
		case nil:
			return nil
		}
	}
}

// client 单写者：gorilla 连接不允许并发写
type client struct {
	ws    *websocket.Conn
	codec server.Codec

	mu  sync.Mutex
	seq int64
}

func (c *client) send(req game.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	msg := server.InputMessage{Type: string(req.Op), X: req.X, Z: req.Z, Seq: c.seq}
	if req.Op == game.OpMove {
		msg.Command = req.Dir.String()
	}
	b, err := c.codec.Marshal(msg)
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(c.codec.MessageType(), b)
}

func (c *client) readLoop(v *view) {
	defer v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			v.setStatus("disconnected: " + err.Error())
			return
		}
		var msg server.ServerMessage
		if err := c.codec.Unmarshal(payload, &msg); err != nil {
			v.setStatus("bad message: " + err.Error())
			continue
		}
		v.apply(msg)
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}
