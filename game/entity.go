package game

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityState Alive → Destroying → Gone，不可逆
type EntityState int

const (
	StateAlive EntityState = iota
	StateDestroying
	StateGone
)

func (s EntityState) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateDestroying:
		return "destroying"
	default:
		return "gone"
	}
}

// Cause 销毁原因；只有 CauseCollected 计入阶段目标
type Cause string

const (
	CauseDestroyed Cause = "destroyed"
	CauseCollected Cause = "collected"
	CauseCleared   Cause = "cleared"
)

// Entity 绑定在网格上的冰块或水果
type Entity struct {
	id    string
	kind  Cell
	at    Coord
	phase int
	state EntityState
	cause Cause
}

func (e *Entity) ID() string { return e.id }
func (e *Entity) Kind() Cell { return e.kind }
func (e *Entity) Coord() Coord { return e.at }
func (e *Entity) Phase() int { return e.phase }
func (e *Entity) State() EntityState { return e.state }
func (e *Entity) Cause() Cause { return e.cause }

// AnimationTiming 销毁动画时长与帧间隔
type AnimationTiming struct {
	ObstacleDuration    time.Duration
	CollectibleDuration time.Duration
	StepInterval        time.Duration
}

func (t AnimationTiming) frames(kind Cell) int {
	d := t.ObstacleDuration
	if kind == CellCollectible {
		d = t.CollectibleDuration
	}
	if t.StepInterval <= 0 || d <= 0 {
		return 1
	}
	return int(math.Ceil(float64(d) / float64(t.StepInterval)))
}

// GoneListener 实体彻底移除时回调（每个实体恰好一次）
type GoneListener func(e *Entity)

// Lifecycle 负责实体的创建与一次性销毁流程
type Lifecycle struct {
	board     *Board
	sched     *Scheduler
	journal   *Journal
	presenter Presenter
	timing    AnimationTiming
	log       *zap.SugaredLogger

	live      map[string]*Entity
	listeners []GoneListener
}

func NewLifecycle(board *Board, sched *Scheduler, journal *Journal, timing AnimationTiming, presenter Presenter, log *zap.SugaredLogger) *Lifecycle {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Lifecycle{
		board:     board,
		sched:     sched,
		journal:   journal,
		presenter: presenter,
		timing:    timing,
		log:       log,
		live:      make(map[string]*Entity),
	}
}

// OnGone 注册移除回调
func (l *Lifecycle) OnGone(fn GoneListener) {
	l.listeners = append(l.listeners, fn)
}

// Lookup 按 ID 查找尚未移除的实体
func (l *Lifecycle) Lookup(id string) *Entity {
	return l.live[id]
}

// Live 尚未移除的实体数量（含销毁中）
func (l *Lifecycle) Live() int { return len(l.live) }

// Create 目标格子（按有效类型）必须为空；占着该格的销毁中实体会被挤出注册表
func (l *Lifecycle) Create(kind Cell, at Coord, phase int) (*Entity, error) {
	if !kind.Occupied() {
		return nil, fmt.Errorf("create %s: %w", kind, ErrUnknownOperation)
	}
	if !l.board.IsValidPosition(at.X, at.Z) {
		l.log.Warnw("create out of bounds", "kind", kind, "at", at)
		return nil, fmt.Errorf("create %s at %v: %w", kind, at, ErrInvalidPosition)
	}
	if c := l.board.EffectiveCell(at.X, at.Z); c != CellEmpty {
		return nil, fmt.Errorf("create %s at %v over %s: %w", kind, at, c, ErrPreconditionFailed)
	}
	e := &Entity{id: uuid.NewString(), kind: kind, at: at, phase: phase}
	if err := l.board.SetCell(at.X, at.Z, kind, e); err != nil {
		return nil, err
	}
	l.live[e.id] = e
	ev := l.journal.Append(Event{Kind: EventSpawn, EntityID: e.id, EntityKind: kind, X: at.X, Z: at.Z})
	l.presenter.OnSpawn(ev)
	return e, nil
}

// Destroy 一次性：第二次调用返回 false 且无副作用。
// 格子立即视为可通行；注册表清理、despawn 事件与回调在动画最后一帧执行。
func (l *Lifecycle) Destroy(e *Entity, cause Cause) bool {
	if e == nil || e.state != StateAlive {
		return false
	}
	e.state = StateDestroying
	e.cause = cause
	frames := l.timing.frames(e.kind)
	l.journal.Append(Event{Kind: EventDestroying, EntityID: e.id, EntityKind: e.kind, X: e.at.X, Z: e.at.Z, Frames: frames, Cause: string(cause)})
	l.scheduleFrame(e, 1, frames)
	return true
}

func (l *Lifecycle) scheduleFrame(e *Entity, frame, frames int) {
	l.sched.After(l.timing.StepInterval, func() {
		scale := 1 - float64(frame)/float64(frames)
		ev := l.journal.Append(Event{Kind: EventAnimStep, EntityID: e.id, EntityKind: e.kind, X: e.at.X, Z: e.at.Z, Frame: frame, Frames: frames, Scale: scale})
		l.presenter.OnAnimationStep(ev)
		if frame < frames {
			l.scheduleFrame(e, frame+1, frames)
			return
		}
		l.finish(e)
	})
}

func (l *Lifecycle) finish(e *Entity) {
	if e.state == StateGone {
		return
	}
	e.state = StateGone
	delete(l.live, e.id)
	if l.board.Occupant(e.at.X, e.at.Z) == e {
		l.board.Clear(e.at.X, e.at.Z)
	}
	ev := l.journal.Append(Event{Kind: EventDespawn, EntityID: e.id, EntityKind: e.kind, X: e.at.X, Z: e.at.Z, Cause: string(e.cause)})
	l.presenter.OnDespawn(ev)
	for _, fn := range l.listeners {
		fn(e)
	}
}
