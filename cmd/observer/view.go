package main

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"icegrid/game"
	"icegrid/server"
)

var (
	styleWall        = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleObstacle    = tcell.StyleDefault.Foreground(tcell.ColorTeal).Bold(true)
	styleCollectible = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleSelf        = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleAgent       = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleEnemy       = tcell.StyleDefault.Foreground(tcell.ColorPurple).Bold(true)
	styleStatus      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// view 由网络协程写入、UI 协程读取
type view struct {
	screen tcell.Screen

	mu     sync.Mutex
	mirror *game.Mirror
	self   string
	role   game.Role
	status string
}

func (v *view) apply(msg server.ServerMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch msg.Type {
	case server.MsgWelcome:
		v.self, v.role = msg.Participant, msg.Role
	case server.MsgSnapshot:
		if msg.Snapshot == nil {
			return
		}
		if v.mirror == nil {
			v.mirror = game.NewMirror(*msg.Snapshot)
		} else {
			v.mirror.Reset(*msg.Snapshot)
		}
	case server.MsgTick:
		if v.mirror == nil {
			return
		}
		v.mirror.ApplyAll(msg.Events)
		v.mirror.SetActors(msg.Agents, msg.Enemies)
		if msg.Score != nil {
			v.mirror.SetScore(*msg.Score)
		}
	case server.MsgReject, server.MsgError:
		v.status = fmt.Sprintf("%s %s: %s", msg.Type, msg.Op, msg.Error)
	}
}

func (v *view) setStatus(s string) {
	v.mu.Lock()
	v.status = s
	v.mu.Unlock()
}

func (v *view) report(err error) {
	if err != nil {
		v.setStatus(err.Error())
	}
}

func (v *view) draw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.screen
	s.Clear()
	if v.mirror == nil {
		drawText(s, 0, 0, styleStatus, "waiting for snapshot...")
		s.Show()
		return
	}
	b := v.mirror.Board()
	h := b.Height()
	// z 轴向上：第 0 行在屏幕底部
	for z := 0; z < h; z++ {
		for x := 0; x < b.Width(); x++ {
			r, st := ' ', tcell.StyleDefault
			switch b.CellAt(x, z) {
			case game.CellWall:
				r, st = '#', styleWall
			case game.CellObstacle:
				r, st = '=', styleObstacle
				if e := b.Occupant(x, z); e != nil && v.mirror.Scale(e.ID()) < 0.5 {
					r = '-'
				}
			case game.CellCollectible:
				r, st = '*', styleCollectible
				if e := b.Occupant(x, z); e != nil && v.mirror.Scale(e.ID()) < 0.5 {
					r = '.'
				}
			}
			s.SetContent(x*2, h-1-z, r, nil, st)
		}
	}
	for _, a := range v.mirror.Agents() {
		st := styleAgent
		if a.ID == v.self {
			st = styleSelf
		}
		s.SetContent(a.X*2, h-1-a.Z, '@', nil, st)
	}
	for _, e := range v.mirror.Enemies() {
		s.SetContent(e.X*2, h-1-e.Z, 'E', nil, styleEnemy)
	}

	ph, sc := v.mirror.Phase(), v.mirror.Score()
	drawText(s, 0, h+1, styleStatus, fmt.Sprintf("%s (%s)  phase %d  %s  %d/%d  score %d  lives %d",
		v.self, v.role, ph.Number, ph.State, ph.Consumed, ph.Goal, sc.Score, sc.Lives))
	if ph.Reason != "" {
		drawText(s, 0, h+2, styleStatus, ph.Reason)
	}
	drawText(s, 0, h+3, styleStatus, v.status)
	drawText(s, 0, h+4, styleWall, "arrows: move  space: build/break  q: quit")
	s.Show()
}

func drawText(s tcell.Screen, x, y int, st tcell.Style, text string) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, st)
	}
}
