package game

import (
	"math/rand"
	"time"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"
)

// PhaseState 关卡进度状态机：Phase1 → Phase2 → Complete，或任意活动阶段 → Failed
type PhaseState string

const (
	PhaseOne      PhaseState = "phase1"
	PhaseTwo      PhaseState = "phase2"
	PhaseComplete PhaseState = "complete"
	PhaseFailed   PhaseState = "failed"
)

// Status 阶段状态快照（同时用于复制）
type Status struct {
	State    PhaseState `json:"state" msgpack:"state"`
	Number   int        `json:"number" msgpack:"number"`
	Consumed int        `json:"consumed" msgpack:"consumed"`
	Goal     int        `json:"goal" msgpack:"goal"`
	Active   bool       `json:"active" msgpack:"active"`
	Reason   string     `json:"reason,omitempty" msgpack:"reason,omitempty"`
	// 当前阶段已用时（毫秒）
	ElapsedMs int64 `json:"elapsed_ms" msgpack:"elapsed_ms"`
}

// PhaseRules 阶段相关配置
type PhaseRules struct {
	Phase1Goal         int
	Phase2Goal         int
	Phase2Spots        []Coord
	SpawnAttemptFactor int
}

// PhaseController 统计被收集的水果并驱动阶段切换
type PhaseController struct {
	board   *Board
	life    *Lifecycle
	sched   *Scheduler
	journal *Journal
	rules   PhaseRules
	rng     *rand.Rand
	log     *zap.SugaredLogger

	// blocked 为 true 的格子不用于随机生成（例如玩家/敌人所在格）
	blocked func(Coord) bool

	state    PhaseState
	number   int
	consumed int
	goal     int
	reason   string
	started  time.Duration
	spawned  mapset.Set[Coord]
	elapsed  map[int]time.Duration
	onChange []func(Status)
}

func NewPhaseController(board *Board, life *Lifecycle, sched *Scheduler, journal *Journal, rules PhaseRules, rng *rand.Rand, log *zap.SugaredLogger) *PhaseController {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if rules.SpawnAttemptFactor <= 0 {
		rules.SpawnAttemptFactor = 30
	}
	pc := &PhaseController{
		board:   board,
		life:    life,
		sched:   sched,
		journal: journal,
		rules:   rules,
		rng:     rng,
		log:     log,
		blocked: func(Coord) bool { return false },
		state:   PhaseOne,
		number:  1,
		spawned: mapset.New[Coord](),
		elapsed: make(map[int]time.Duration),
	}
	life.OnGone(pc.onGone)
	return pc
}

// SetBlocked 设置随机生成时需要避开的格子
func (pc *PhaseController) SetBlocked(fn func(Coord) bool) {
	if fn != nil {
		pc.blocked = fn
	}
}

// OnChange 状态变化回调
func (pc *PhaseController) OnChange(fn func(Status)) {
	pc.onChange = append(pc.onChange, fn)
}

// Start 以棋盘上现有水果作为第一阶段集合；未配置目标时目标为水果数量
func (pc *PhaseController) Start() {
	pc.started = pc.sched.Now()
	pc.spawned.Clear()
	for _, e := range pc.board.Entities() {
		if e.Kind() == CellCollectible {
			pc.spawned.Put(e.Coord())
		}
	}
	pc.goal = pc.rules.Phase1Goal
	if pc.goal <= 0 {
		pc.goal = pc.spawned.Size()
	}
	pc.log.Infow("phase 1 started", "goal", pc.goal, "collectibles", pc.spawned.Size())
	if pc.goal <= 0 {
		pc.enterPhaseTwo()
		return
	}
	pc.emit()
}

func (pc *PhaseController) Active() bool {
	return pc.state == PhaseOne || pc.state == PhaseTwo
}

func (pc *PhaseController) State() PhaseState { return pc.state }

func (pc *PhaseController) Number() int { return pc.number }

func (pc *PhaseController) Consumed() int { return pc.consumed }

func (pc *PhaseController) Goal() int { return pc.goal }

// SpawnSet 当前阶段生成的水果坐标
func (pc *PhaseController) SpawnSet() mapset.Set[Coord] { return pc.spawned }

// PhaseDuration 已结束阶段的用时
func (pc *PhaseController) PhaseDuration(number int) (time.Duration, bool) {
	d, ok := pc.elapsed[number]
	return d, ok
}

func (pc *PhaseController) Status() Status {
	elapsed := pc.sched.Now() - pc.started
	if !pc.Active() {
		// 终态下用时冻结为结束时刻
		elapsed = pc.elapsed[pc.number]
	}
	return Status{
		State:     pc.state,
		Number:    pc.number,
		Consumed:  pc.consumed,
		Goal:      pc.goal,
		Active:    pc.Active(),
		Reason:    pc.reason,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

// Fail 外部失败条件（生命耗尽/超时）；终态，重复调用无效
func (pc *PhaseController) Fail(reason string) bool {
	if !pc.Active() {
		return false
	}
	pc.elapsed[pc.number] = pc.sched.Now() - pc.started
	pc.state = PhaseFailed
	pc.reason = reason
	pc.log.Infow("level failed", "phase", pc.number, "reason", reason)
	pc.emit()
	return true
}

func (pc *PhaseController) onGone(e *Entity) {
	if e.Kind() != CellCollectible || e.Cause() != CauseCollected {
		return
	}
	if !pc.Active() || e.Phase() != pc.number {
		return
	}
	pc.consumed++
	if pc.consumed < pc.goal {
		pc.emit()
		return
	}
	switch pc.state {
	case PhaseOne:
		pc.enterPhaseTwo()
	case PhaseTwo:
		pc.complete()
	}
}

func (pc *PhaseController) enterPhaseTwo() {
	d := pc.sched.Now() - pc.started
	pc.elapsed[1] = d
	pc.log.Infof("phase 1 completed in %.2f sec", d.Seconds())

	pc.state = PhaseTwo
	pc.number = 2
	pc.consumed = 0
	pc.started = pc.sched.Now()

	for _, e := range pc.board.Entities() {
		if e.Kind() == CellCollectible && e.State() == StateAlive {
			pc.life.Destroy(e, CauseCleared)
		}
	}

	pc.spawned.Clear()
	want := pc.rules.Phase2Goal
	n := pc.spawnPhaseTwo(want)
	pc.goal = want
	if n < want {
		pc.log.Warnw("phase 2 spawned fewer collectibles than goal", "spawned", n, "goal", want)
		pc.goal = n
	}
	pc.log.Infow("phase 2 started", "goal", pc.goal)
	if pc.goal <= 0 {
		pc.complete()
		return
	}
	pc.emit()
}

func (pc *PhaseController) spawnPhaseTwo(want int) int {
	if len(pc.rules.Phase2Spots) > 0 {
		for _, c := range pc.rules.Phase2Spots {
			if pc.spawned.Size() >= want {
				break
			}
			pc.trySpawn(c)
		}
		return pc.spawned.Size()
	}
	w, h := pc.board.Width(), pc.board.Height()
	if w <= 2 || h <= 2 {
		return 0
	}
	for attempts := 0; pc.spawned.Size() < want && attempts < want*pc.rules.SpawnAttemptFactor; attempts++ {
		c := Coord{X: 1 + pc.rng.Intn(w-2), Z: 1 + pc.rng.Intn(h-2)}
		pc.trySpawn(c)
	}
	return pc.spawned.Size()
}

func (pc *PhaseController) trySpawn(c Coord) {
	if pc.blocked(c) {
		return
	}
	if _, err := pc.life.Create(CellCollectible, c, pc.number); err != nil {
		pc.log.Debugw("phase spawn skipped", "at", c, "err", err)
		return
	}
	pc.spawned.Put(c)
}

func (pc *PhaseController) complete() {
	pc.elapsed[pc.number] = pc.sched.Now() - pc.started
	pc.state = PhaseComplete
	pc.log.Infof("level complete: phase %d finished in %.2f sec", pc.number, pc.elapsed[pc.number].Seconds())
	pc.emit()
}

func (pc *PhaseController) emit() {
	st := pc.Status()
	pc.journal.Append(Event{Kind: EventPhase, Phase: &st})
	for _, fn := range pc.onChange {
		fn(st)
	}
}
