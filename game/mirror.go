package game

// Mirror 观察者本地副本：按序应用复制事件，不做任何校验。
// 与权威状态最终一致，延迟取决于网络。
type Mirror struct {
	board     *Board
	transform Transform
	entities  map[string]*Entity
	scale     map[string]float64
	agents    []AgentState
	enemies   []AgentState
	phase     Status
	score     ScoreState
	seq       uint64
}

// NewMirror 从快照重建
func NewMirror(snap Snapshot) *Mirror {
	m := &Mirror{}
	m.Reset(snap)
	return m
}

// Reset 丢弃本地状态并从快照重建
func (m *Mirror) Reset(snap Snapshot) {
	m.board = NewBoard(snap.Width, snap.Height, nil)
	m.transform = NewTransform(snap.Width, snap.Height, snap.TileSize)
	m.entities = make(map[string]*Entity)
	m.scale = make(map[string]float64)
	for i, c := range snap.Cells {
		if c == CellWall && snap.Width > 0 {
			m.board.placeWall(i%snap.Width, i/snap.Width)
		}
	}
	for _, v := range snap.Entities {
		e := &Entity{id: v.ID, kind: v.Kind, at: Coord{v.X, v.Z}}
		if v.State == StateDestroying.String() {
			e.state = StateDestroying
		}
		m.entities[e.id] = e
		_ = m.board.SetCell(v.X, v.Z, v.Kind, e)
	}
	m.agents = snap.Agents
	m.enemies = snap.Enemies
	m.phase = snap.Phase
	m.score = snap.Score
	m.seq = snap.Seq
}

// Apply 应用单个事件；序号不大于已应用序号的事件被忽略
func (m *Mirror) Apply(ev Event) {
	if ev.Seq != 0 && ev.Seq <= m.seq {
		return
	}
	if ev.Seq != 0 {
		m.seq = ev.Seq
	}
	switch ev.Kind {
	case EventSpawn:
		e := &Entity{id: ev.EntityID, kind: ev.EntityKind, at: Coord{ev.X, ev.Z}}
		m.entities[e.id] = e
		_ = m.board.SetCell(ev.X, ev.Z, ev.EntityKind, e)
	case EventDestroying:
		if e := m.entities[ev.EntityID]; e != nil {
			e.state = StateDestroying
		}
	case EventAnimStep:
		m.scale[ev.EntityID] = ev.Scale
	case EventDespawn:
		e := m.entities[ev.EntityID]
		if e == nil {
			return
		}
		e.state = StateGone
		if m.board.Occupant(e.at.X, e.at.Z) == e {
			m.board.Clear(e.at.X, e.at.Z)
		}
		delete(m.entities, ev.EntityID)
		delete(m.scale, ev.EntityID)
	case EventPhase:
		if ev.Phase != nil {
			m.phase = *ev.Phase
		}
	}
}

// ApplyAll 依次应用
func (m *Mirror) ApplyAll(evs []Event) {
	for _, ev := range evs {
		m.Apply(ev)
	}
}

// SetActors 更新每 Tick 广播的玩家/敌人状态
func (m *Mirror) SetActors(agents, enemies []AgentState) {
	m.agents = agents
	m.enemies = enemies
}

func (m *Mirror) SetScore(s ScoreState) { m.score = s }

// Board 只读使用；观察者不得直接修改
func (m *Mirror) Board() *Board { return m.board }

func (m *Mirror) Transform() Transform { return m.transform }

func (m *Mirror) Agents() []AgentState { return m.agents }

func (m *Mirror) Enemies() []AgentState { return m.enemies }

func (m *Mirror) Phase() Status { return m.phase }

func (m *Mirror) Score() ScoreState { return m.score }

func (m *Mirror) Seq() uint64 { return m.seq }

// Scale 销毁动画中的实体缩放，未在动画中时为 1
func (m *Mirror) Scale(id string) float64 {
	if s, ok := m.scale[id]; ok {
		return s
	}
	return 1
}
