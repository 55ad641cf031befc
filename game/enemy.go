package game

import (
	"math/rand"
	"time"
)

// EnemyRules 敌人参数
type EnemyRules struct {
	MoveSpeed  float64
	ThinkDelay time.Duration
}

// Enemy 贪心追踪最近玩家的网格敌人；与玩家同格即为接触
type Enemy struct {
	id        string
	board     *Board
	transform Transform
	sched     *Scheduler
	rules     EnemyRules
	rng       *rand.Rand

	coord  Coord
	facing Direction
	moving bool
	pos    Vec3
	target Vec3
	active bool

	// chase 返回追踪目标
	chase   func(from Coord) (Coord, bool)
	onEnter func(*Enemy)
}

func NewEnemy(id string, spawn Coord, board *Board, transform Transform, sched *Scheduler, rules EnemyRules, rng *rand.Rand) *Enemy {
	p := transform.WorldFromGrid(spawn)
	return &Enemy{
		id:        id,
		board:     board,
		transform: transform,
		sched:     sched,
		rules:     rules,
		rng:       rng,
		coord:     spawn,
		facing:    DirDown,
		pos:       p,
		target:    p,
		active:    true,
		chase:     func(Coord) (Coord, bool) { return Coord{}, false },
		onEnter:   func(*Enemy) {},
	}
}

func (e *Enemy) ID() string { return e.id }
func (e *Enemy) Coord() Coord { return e.coord }

func (e *Enemy) State() AgentState {
	return AgentState{ID: e.id, X: e.coord.X, Z: e.coord.Z, Facing: e.facing.String(), Moving: e.moving, Pos: e.pos, Active: e.active}
}

// Start 开始周期性思考
func (e *Enemy) Start() {
	e.sched.After(e.rules.ThinkDelay, e.think)
}

func (e *Enemy) Stop() { e.active = false }

func (e *Enemy) think() {
	if !e.active {
		return
	}
	if !e.moving {
		if dir := e.decide(); dir != DirNone {
			e.step(dir)
		}
	}
	e.sched.After(e.rules.ThinkDelay, e.think)
}

func (e *Enemy) canMove(c Coord) bool {
	return e.board.IsWalkable(c.X, c.Z)
}

// decide 优先沿差值较大的轴靠近目标，被挡住时换另一轴，最后随机
func (e *Enemy) decide() Direction {
	goal, ok := e.chase(e.coord)
	if !ok {
		return DirNone
	}
	dx, dz := goal.X-e.coord.X, goal.Z-e.coord.Z
	horiz, vert := DirNone, DirNone
	if dx > 0 {
		horiz = DirRight
	} else if dx < 0 {
		horiz = DirLeft
	}
	if dz > 0 {
		vert = DirUp
	} else if dz < 0 {
		vert = DirDown
	}
	order := []Direction{vert, horiz}
	if abs(dx) > abs(dz) {
		order = []Direction{horiz, vert}
	}
	for _, d := range order {
		if d != DirNone && e.canMove(e.coord.Add(d.Delta())) {
			return d
		}
	}
	return e.randomDirection()
}

func (e *Enemy) randomDirection() Direction {
	dirs := Directions
	e.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
	for _, d := range dirs {
		if e.canMove(e.coord.Add(d.Delta())) {
			return d
		}
	}
	return DirNone
}

func (e *Enemy) step(dir Direction) {
	next := e.coord.Add(dir.Delta())
	if !e.canMove(next) {
		return
	}
	e.facing = dir
	e.coord = next
	e.target = e.transform.WorldFromGrid(next)
	e.moving = true
	e.onEnter(e)
}

// Advance 插值
func (e *Enemy) Advance(dt time.Duration) {
	if !e.moving {
		return
	}
	e.pos = e.pos.MoveTowards(e.target, e.rules.MoveSpeed*e.transform.TileSize()*dt.Seconds())
	if e.target.Sub(e.pos).Len() < 0.01 {
		e.pos = e.target
		e.moving = false
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
