package game

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// EntityView 实体的复制视图
type EntityView struct {
	ID    string `json:"id" msgpack:"id"`
	Kind  Cell   `json:"kind" msgpack:"kind"`
	X     int    `json:"x" msgpack:"x"`
	Z     int    `json:"z" msgpack:"z"`
	State string `json:"state" msgpack:"state"`
}

// Snapshot 新观察者加入时下发的完整状态
type Snapshot struct {
	Seq      uint64       `json:"seq" msgpack:"seq"`
	Width    int          `json:"width" msgpack:"width"`
	Height   int          `json:"height" msgpack:"height"`
	TileSize float64      `json:"tile_size" msgpack:"tile_size"`
	Cells    []Cell       `json:"cells" msgpack:"cells"`
	Entities []EntityView `json:"entities" msgpack:"entities"`
	Agents   []AgentState `json:"agents" msgpack:"agents"`
	Enemies  []AgentState `json:"enemies,omitempty" msgpack:"enemies,omitempty"`
	Phase    Status       `json:"phase" msgpack:"phase"`
	Score    ScoreState   `json:"score" msgpack:"score"`
}

// Option 会话构造选项
type Option func(*Session)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func WithPresenter(p Presenter) Option {
	return func(s *Session) {
		if p != nil {
			s.presenter = p
		}
	}
}

// WithScoring 替换默认 Scoreboard；外部实现需自行调用 Session.Fail
func WithScoring(sc Scoring) Option {
	return func(s *Session) {
		if sc != nil {
			s.scoring = sc
		}
	}
}

// WithLayout 使用自定义布局代替 Config.Layout
func WithLayout(l Layout) Option {
	return func(s *Session) { s.layout = &l }
}

func WithTelemetry(t Telemetry) Option {
	return func(s *Session) { s.telemetry = t }
}

// Session 一局游戏的显式上下文：所有组件都从这里构造并共享，不存在全局单例。
// 所有方法都只能在同一个执行线程中调用。
type Session struct {
	cfg       Config
	log       *zap.SugaredLogger
	presenter Presenter
	telemetry Telemetry
	rng       *rand.Rand
	layout    *Layout

	transform Transform
	sched     *Scheduler
	journal   *Journal
	board     *Board
	life      *Lifecycle
	phase     *PhaseController
	auth      *Authority

	scoring    Scoring
	scoreboard *Scoreboard

	agents  map[string]*Agent
	order   []string
	spawns  map[string]Coord
	enemies []*Enemy
}

// NewSession 构造棋盘、应用布局并开始第一阶段
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	s := &Session{
		cfg:       cfg,
		log:       zap.NewNop().Sugar(),
		presenter: NopPresenter{},
		agents:    make(map[string]*Agent),
		spawns:    make(map[string]Coord),
	}
	for _, opt := range opts {
		opt(s)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))

	s.transform = NewTransform(cfg.Width, cfg.Height, cfg.TileSize)
	s.sched = &Scheduler{}
	s.journal = &Journal{}
	s.board = NewBoard(cfg.Width, cfg.Height, s.log.Named("grid"))
	s.life = NewLifecycle(s.board, s.sched, s.journal, cfg.timing(), s.presenter, s.log.Named("entity"))
	s.phase = NewPhaseController(s.board, s.life, s.sched, s.journal, cfg.phaseRules(), s.rng, s.log.Named("phase"))
	s.phase.SetBlocked(s.occupiedByActor)
	s.auth = NewAuthority(s.board, s.life, s.phase, s.telemetry, s.log.Named("authority"))
	if s.scoring == nil {
		s.scoreboard = NewScoreboard(cfg.Lives, func() { s.Fail("out of lives") })
		s.scoring = s.scoreboard
	}

	if s.layout == nil {
		l, err := LookupLayout(cfg.Layout, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		s.layout = &l
	}
	s.layout.apply(s.board, s.life)

	s.phase.OnChange(func(st Status) {
		if st.Active {
			return
		}
		for _, a := range s.agents {
			a.Deactivate()
		}
		for _, e := range s.enemies {
			e.Stop()
		}
	})
	s.phase.Start()

	if cfg.EnemyEnabled && s.phase.Active() {
		s.addEnemy(Coord(cfg.EnemySpawn))
	}
	if cfg.TimeLimit > 0 {
		s.sched.After(cfg.TimeLimit, func() { s.Fail("time limit reached") })
	}
	// 初始布局通过 Snapshot 下发，不作为增量事件
	s.journal.Drain()
	return s, nil
}

func (s *Session) Config() Config { return s.cfg }
func (s *Session) Board() *Board { return s.board }
func (s *Session) Lifecycle() *Lifecycle { return s.life }
func (s *Session) Phase() *PhaseController { return s.phase }
func (s *Session) Authority() *Authority { return s.auth }
func (s *Session) Scheduler() *Scheduler { return s.sched }
func (s *Session) Transform() Transform { return s.transform }
func (s *Session) Agent(id string) *Agent { return s.agents[id] }
func (s *Session) Enemies() []*Enemy { return s.enemies }
func (s *Session) Scoreboard() *Scoreboard { return s.scoreboard }
func (s *Session) Now() time.Duration { return s.sched.Now() }
func (s *Session) Submit(req Request) error { return s.auth.Submit(req) }
func (s *Session) Fail(reason string) bool { return s.phase.Fail(reason) }
func (s *Session) Drain() []Event { return s.journal.Drain() }
func (s *Session) Players() int { return len(s.agents) }
func (s *Session) Role(id string) (Role, bool) { return s.auth.Role(id) }

// Join 玩家获得一个 Agent；观察者只能接收复制
func (s *Session) Join(participant string, role Role) (*Agent, error) {
	if _, ok := s.auth.Role(participant); ok {
		return nil, fmt.Errorf("participant %q already joined", participant)
	}
	if role != RolePlayer {
		s.auth.Admit(participant, RoleObserver, nil)
		return nil, nil
	}
	spawn, ok := s.pickSpawn()
	if !ok {
		return nil, fmt.Errorf("no free spawn cell for %q", participant)
	}
	a := NewAgent(participant, spawn, s.board, s.transform, s.sched, s.auth, s.cfg.agentRules(), s.log.Named("agent"))
	a.onEnter = s.onAgentEnter
	if !s.phase.Active() {
		a.Deactivate()
	}
	s.agents[participant] = a
	s.order = append(s.order, participant)
	s.spawns[participant] = spawn
	s.auth.Admit(participant, RolePlayer, a)
	s.log.Infow("participant joined", "participant", participant, "role", role, "spawn", spawn)
	return a, nil
}

// Leave 移除参与者；其尚未完成的连线动作在下一步自动停止
func (s *Session) Leave(participant string) {
	if a, ok := s.agents[participant]; ok {
		a.Deactivate()
		delete(s.agents, participant)
		delete(s.spawns, participant)
		for i, id := range s.order {
			if id == participant {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.auth.Revoke(participant)
}

// Advance 推进虚拟时钟：调度任务、玩家与敌人插值
func (s *Session) Advance(dt time.Duration) {
	s.sched.Advance(dt)
	for _, id := range s.order {
		s.agents[id].Advance(dt)
	}
	for _, e := range s.enemies {
		e.Advance(dt)
	}
}

// AgentStates 按加入顺序
func (s *Session) AgentStates() []AgentState {
	out := make([]AgentState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id].State())
	}
	return out
}

func (s *Session) EnemyStates() []AgentState {
	out := make([]AgentState, 0, len(s.enemies))
	for _, e := range s.enemies {
		out = append(out, e.State())
	}
	return out
}

func (s *Session) Score() ScoreState {
	if s.scoreboard == nil {
		return ScoreState{}
	}
	return s.scoreboard.State()
}

func (s *Session) Snapshot() Snapshot {
	ents := s.board.Entities()
	views := make([]EntityView, 0, len(ents))
	for _, e := range ents {
		views = append(views, EntityView{ID: e.ID(), Kind: e.Kind(), X: e.Coord().X, Z: e.Coord().Z, State: e.State().String()})
	}
	return Snapshot{
		Seq:      s.journal.LastSeq(),
		Width:    s.board.Width(),
		Height:   s.board.Height(),
		TileSize: s.transform.TileSize(),
		Cells:    s.board.Cells(),
		Entities: views,
		Agents:   s.AgentStates(),
		Enemies:  s.EnemyStates(),
		Phase:    s.phase.Status(),
		Score:    s.Score(),
	}
}

func (s *Session) addEnemy(at Coord) {
	if !s.board.IsWalkable(at.X, at.Z) {
		s.log.Warnw("enemy spawn not walkable", "at", at)
		return
	}
	e := NewEnemy(fmt.Sprintf("enemy-%d", len(s.enemies)+1), at, s.board, s.transform, s.sched,
		EnemyRules{MoveSpeed: s.cfg.EnemySpeed, ThinkDelay: s.cfg.EnemyThinkDelay}, s.rng)
	e.chase = s.nearestAgent
	e.onEnter = s.onEnemyEnter
	s.enemies = append(s.enemies, e)
	e.Start()
}

func (s *Session) pickSpawn() (Coord, bool) {
	w, h := s.board.Width(), s.board.Height()
	candidates := []Coord{Coord(s.cfg.PlayerSpawn), {w - 2, h - 2}, {1, h - 2}, {w - 2, 1}}
	for _, c := range candidates {
		if s.board.EffectiveCell(c.X, c.Z) == CellEmpty && s.board.IsValidPosition(c.X, c.Z) && !s.occupiedByActor(c) {
			return c, true
		}
	}
	for z := 1; z < h-1; z++ {
		for x := 1; x < w-1; x++ {
			c := Coord{x, z}
			if s.board.EffectiveCell(x, z) == CellEmpty && !s.occupiedByActor(c) {
				return c, true
			}
		}
	}
	return Coord{}, false
}

func (s *Session) occupiedByActor(c Coord) bool {
	for _, a := range s.agents {
		if a.Coord() == c {
			return true
		}
	}
	for _, e := range s.enemies {
		if e.Coord() == c {
			return true
		}
	}
	return false
}

func (s *Session) nearestAgent(from Coord) (Coord, bool) {
	best, found := Coord{}, false
	bestDist := 0
	for _, id := range s.order {
		a := s.agents[id]
		if !a.Active() {
			continue
		}
		d := abs(a.Coord().X-from.X) + abs(a.Coord().Z-from.Z)
		if !found || d < bestDist {
			best, bestDist, found = a.Coord(), d, true
		}
	}
	return best, found
}

func (s *Session) onAgentEnter(a *Agent) {
	c := a.Coord()
	if e := s.board.Occupant(c.X, c.Z); e != nil && e.Kind() == CellCollectible && e.State() == StateAlive {
		s.scoring.OnCollectibleConsumed(s.cfg.FruitPoints)
		s.life.Destroy(e, CauseCollected)
	}
	for _, e := range s.enemies {
		if e.Coord() == c {
			s.hazard(a)
			return
		}
	}
}

func (s *Session) onEnemyEnter(e *Enemy) {
	for _, id := range s.order {
		a := s.agents[id]
		if a.Active() && a.Coord() == e.Coord() {
			s.hazard(a)
		}
	}
}

// hazard 通知计分协作者；关卡仍在进行时玩家回到出生点
func (s *Session) hazard(a *Agent) {
	s.log.Infow("hazard contact", "participant", a.ID(), "at", a.Coord())
	s.scoring.OnHazardContact()
	if !s.phase.Active() {
		return
	}
	spawn := s.spawns[a.ID()]
	if !s.board.IsWalkable(spawn.X, spawn.Z) || s.occupiedByActor(spawn) {
		if c, ok := s.pickSpawn(); ok {
			spawn = c
		}
	}
	a.Teleport(spawn)
}
