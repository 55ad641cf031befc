package game

import (
	"time"

	"go.uber.org/zap"
)

// AgentRules 玩家移动与连线动作参数
type AgentRules struct {
	MaxLineLength int
	LineStepDelay time.Duration
	// 每秒移动的格数
	MoveSpeed float64
}

// AgentState 广播给客户端的轻量状态
type AgentState struct {
	ID     string `json:"id" msgpack:"id"`
	X      int    `json:"x" msgpack:"x"`
	Z      int    `json:"z" msgpack:"z"`
	Facing string `json:"facing" msgpack:"facing"`
	Moving bool   `json:"moving" msgpack:"moving"`
	Pos    Vec3   `json:"pos" msgpack:"pos"`
	Active bool   `json:"active" msgpack:"active"`
}

// Agent 把离散意图翻译成网格移动与连线动作。
// 网格坐标在移动被接受时立即提交，插值只影响表现位置。
type Agent struct {
	id        string
	board     *Board
	transform Transform
	sched     *Scheduler
	channel   Channel
	rules     AgentRules
	log       *zap.SugaredLogger

	coord  Coord
	facing Direction
	moving bool
	pos    Vec3
	target Vec3
	active bool

	// onEnter 在网格坐标提交后调用（收集、碰撞检测）
	onEnter func(*Agent)
}

func NewAgent(id string, spawn Coord, board *Board, transform Transform, sched *Scheduler, channel Channel, rules AgentRules, log *zap.SugaredLogger) *Agent {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := transform.WorldFromGrid(spawn)
	return &Agent{
		id:        id,
		board:     board,
		transform: transform,
		sched:     sched,
		channel:   channel,
		rules:     rules,
		log:       log,
		coord:     spawn,
		facing:    DirUp,
		pos:       p,
		target:    p,
		active:    true,
		onEnter:   func(*Agent) {},
	}
}

func (a *Agent) ID() string { return a.id }
func (a *Agent) Coord() Coord { return a.coord }
func (a *Agent) Facing() Direction { return a.facing }
func (a *Agent) Moving() bool { return a.moving }
func (a *Agent) Position() Vec3 { return a.pos }
func (a *Agent) Target() Vec3 { return a.target }
func (a *Agent) Active() bool { return a.active }

// Deactivate 关卡结束后停止响应意图
func (a *Agent) Deactivate() {
	a.active = false
}

// Teleport 直接放置到某格（重生），不经过插值
func (a *Agent) Teleport(c Coord) {
	a.coord = c
	a.pos = a.transform.WorldFromGrid(c)
	a.target = a.pos
	a.moving = false
}

func (a *Agent) State() AgentState {
	return AgentState{
		ID:     a.id,
		X:      a.coord.X,
		Z:      a.coord.Z,
		Facing: a.facing.String(),
		Moving: a.moving,
		Pos:    a.pos,
		Active: a.active,
	}
}

// RequestMove 移动中或目标不可通行时为 no-op
func (a *Agent) RequestMove(dir Direction) bool {
	if !a.active || a.moving || dir == DirNone {
		return false
	}
	a.facing = dir
	next := a.coord.Add(dir.Delta())
	if !a.board.IsWalkable(next.X, next.Z) {
		return false
	}
	a.coord = next
	a.target = a.transform.WorldFromGrid(next)
	a.moving = true
	a.onEnter(a)
	return true
}

// Advance 以固定速度向目标插值
func (a *Agent) Advance(dt time.Duration) {
	if !a.moving {
		return
	}
	step := a.rules.MoveSpeed * a.transform.TileSize() * dt.Seconds()
	a.pos = a.pos.MoveTowards(a.target, step)
	if a.target.Sub(a.pos).Len() < 0.01 {
		a.pos = a.target
		a.moving = false
	}
}

// RequestAction 面前是冰块则连续破坏，是空地则连续造冰，否则无效
func (a *Agent) RequestAction() bool {
	if !a.active {
		return false
	}
	dir := a.facing
	front := a.coord.Add(dir.Delta())
	switch a.board.EffectiveCell(front.X, front.Z) {
	case CellObstacle:
		a.destroyStep(front, dir, 0)
		return true
	case CellEmpty:
		a.createStep(front, dir, 0)
		return true
	default:
		return false
	}
}

func (a *Agent) createStep(at Coord, dir Direction, created int) {
	if !a.active {
		return
	}
	if created >= a.rules.MaxLineLength {
		a.log.Debugw("ice line stopped: max length reached", "agent", a.id, "created", created)
		return
	}
	if !a.board.IsValidPosition(at.X, at.Z) {
		a.log.Debugw("ice line stopped: boundary", "agent", a.id, "at", at)
		return
	}
	if c := a.board.EffectiveCell(at.X, at.Z); c != CellEmpty {
		a.log.Debugw("ice line stopped: hit "+c.String(), "agent", a.id, "at", at)
		return
	}
	if err := a.channel.Submit(Request{Participant: a.id, Op: OpCreateObstacle, X: at.X, Z: at.Z}); err != nil {
		a.log.Debugw("ice line stopped: request rejected", "agent", a.id, "at", at, "err", err)
		return
	}
	created++
	if created >= a.rules.MaxLineLength {
		a.log.Debugw("ice line stopped: max length reached", "agent", a.id, "created", created)
		return
	}
	next := at.Add(dir.Delta())
	a.sched.After(a.rules.LineStepDelay, func() { a.createStep(next, dir, created) })
}

func (a *Agent) destroyStep(at Coord, dir Direction, destroyed int) {
	if !a.active {
		return
	}
	if !a.board.IsValidPosition(at.X, at.Z) || a.board.EffectiveCell(at.X, at.Z) != CellObstacle {
		if destroyed > 0 {
			a.log.Debugw("ice line destroyed", "agent", a.id, "count", destroyed)
		}
		return
	}
	if err := a.channel.Submit(Request{Participant: a.id, Op: OpDestroyObstacle, X: at.X, Z: at.Z}); err != nil {
		a.log.Debugw("ice break stopped: request rejected", "agent", a.id, "at", at, "err", err)
		return
	}
	destroyed++
	next := at.Add(dir.Delta())
	a.sched.After(a.rules.LineStepDelay, func() { a.destroyStep(next, dir, destroyed) })
}
