package server

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"icegrid/game"
)

// ErrRoomClosed 房间已停止
var ErrRoomClosed = errors.New("room closed")

// Tuning 可热更新的房间参数
type Tuning struct {
	MaxInputsPerTick   int     `json:"maxInputsPerTick"`
	SimulateDelayMinMs int     `json:"simulateDelayMinMs"`
	SimulateDelayMaxMs int     `json:"simulateDelayMaxMs"`
	SimulateDropProb   float64 `json:"simulateDropProb"`
}

type joinRequest struct {
	id   string
	role game.Role
	conn *ClientConn
}

type leaveRequest struct {
	id   string
	conn *ClientConn
}

// Room 房间世界：权威会话只在 Tick 线程中访问，其余 goroutine 通过通道与之交互
type Room struct {
	ID string

	cfg          Config
	session      *game.Session
	log          *zap.SugaredLogger
	metrics      *RoomMetrics
	tickInterval time.Duration

	participants map[string]*Participant
	observers    mapset.Set[string]

	inputChan chan Input
	joinChan  chan joinRequest
	leaveChan chan leaveRequest
	taskChan  chan func()

	mu     sync.RWMutex
	tuning Tuning

	tickSeq atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	quit      chan struct{}
	stopped   chan struct{}
}

// NewRoom 创建房间并开始第一局
func NewRoom(id string, cfg Config, log *zap.SugaredLogger) (*Room, error) {
	if log == nil {
		log = Log
	}
	r := &Room{
		ID:           id,
		cfg:          cfg,
		log:          log.With("room", id),
		metrics:      &RoomMetrics{},
		tickInterval: cfg.TickInterval(),
		participants: make(map[string]*Participant),
		observers:    mapset.New[string](),
		inputChan:    make(chan Input, cfg.InputBuffer), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:     make(chan joinRequest, 64),
		leaveChan:    make(chan leaveRequest, 64),
		taskChan:     make(chan func(), 16),
		tuning: Tuning{
			MaxInputsPerTick:   cfg.MaxInputsPerTick,
			SimulateDelayMinMs: int(cfg.SimulateDelayMin / time.Millisecond),
			SimulateDelayMaxMs: int(cfg.SimulateDelayMax / time.Millisecond),
			SimulateDropProb:   cfg.SimulateDropProb,
		},
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s, err := r.newSession()
	if err != nil {
		return nil, err
	}
	r.session = s
	return r, nil
}

func (r *Room) newSession() (*game.Session, error) {
	s, err := game.NewSession(r.cfg.Game,
		game.WithLogger(r.log.Named("session")),
		game.WithTelemetry(r.metrics),
	)
	if err != nil {
		return nil, err
	}
	s.Phase().OnChange(func(st game.Status) {
		if !st.Active {
			r.log.Infow("level finished", "state", st.State, "reason", st.Reason, "phase", st.Number)
		}
	})
	return s, nil
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Tick 已执行的 Tick 数
func (r *Room) Tick() uint64 { return r.tickSeq.Load() }

func (r *Room) Tuning() Tuning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tuning
}

// UpdateTuning 管理接口热更新
func (r *Room) UpdateTuning(fn func(*Tuning)) Tuning {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.tuning)
	return r.tuning
}

// OnInput 入站输入（不立即生效），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	t := r.Tuning()
	if t.SimulateDropProb > 0 && rand.Float64() < t.SimulateDropProb {
		r.metrics.IncDropsSimulated()
		return
	}
	if d := simulatedDelay(t); d > 0 {
		time.AfterFunc(d, func() { r.enqueue(in) })
		return
	}
	r.enqueue(in)
}

func (r *Room) enqueue(in Input) {
	// 不阻塞：输入拥塞时丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

func simulatedDelay(t Tuning) time.Duration {
	lo, hi := t.SimulateDelayMinMs, t.SimulateDelayMaxMs
	if hi <= 0 {
		return 0
	}
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}
	return time.Duration(lo+rand.Intn(hi-lo+1)) * time.Millisecond
}

// RequestJoin 请求在 Tick 线程中加入房间
// 房间已停止时直接关闭连接；入队后才停止的请求由 Stop 负责关闭
func (r *Room) RequestJoin(id string, role game.Role, conn *ClientConn) {
	select {
	case <-r.quit:
		closeConn(conn)
		return
	default:
	}
	select {
	case r.joinChan <- joinRequest{id: id, role: role, conn: conn}:
		select {
		case <-r.quit:
			closeConn(conn)
		default:
		}
	case <-r.quit:
		closeConn(conn)
	}
}

func closeConn(conn *ClientConn) {
	if conn != nil {
		conn.Close()
	}
}

// RequestLeave 请求在 Tick 线程中移除参与者；conn 不匹配当前连接时忽略
func (r *Room) RequestLeave(id string, conn *ClientConn) {
	select {
	case r.leaveChan <- leaveRequest{id: id, conn: conn}:
	case <-r.quit:
	}
}

// Do 在 Tick 线程中执行 fn 并等待其完成
func (r *Room) Do(ctx context.Context, fn func(*game.Session)) error {
	done := make(chan struct{})
	task := func() {
		fn(r.session)
		close(done)
	}
	select {
	case r.taskChan <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return ErrRoomClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return ErrRoomClosed
	}
}

// Restart 以相同配置开始新的一局，保留所有连接与角色
func (r *Room) Restart(ctx context.Context) error {
	var err error
	doErr := r.Do(ctx, func(*game.Session) { err = r.restart() })
	if doErr != nil {
		return doErr
	}
	return err
}

func (r *Room) restart() error {
	s, err := r.newSession()
	if err != nil {
		return err
	}
	r.session = s
	for _, id := range r.participantIDs() {
		p := r.participants[id]
		if _, err := s.Join(p.ID, p.Role); err != nil {
			r.log.Warnw("participant dropped on restart", "participant", id, "err", err)
			r.remove(p)
			continue
		}
	}
	r.log.Infow("level restarted", "participants", len(r.participants))
	snap := s.Snapshot()
	r.broadcast(ServerMessage{Type: MsgSnapshot, Tick: r.Tick(), Snapshot: &snap})
	return nil
}

// BeginTick 重置帧内状态
func (r *Room) BeginTick() {
	r.tickSeq.Add(1)
	for _, p := range r.participants {
		p.inputsThisTick = 0
	}
}

// ProcessInputs 依次处理加入、输入、离开与内部任务（非阻塞 drain）
func (r *Room) ProcessInputs() {
	r.drainJoins()
	r.drainInputs(r.Tuning().MaxInputsPerTick)
	r.drainLeaves()
}

func (r *Room) drainJoins() {
	for {
		select {
		case jr := <-r.joinChan:
			r.join(jr)
		default:
			return
		}
	}
}

func (r *Room) drainInputs(limit int) {
	for {
		select {
		case in := <-r.inputChan:
			r.apply(in, limit)
		default:
			return
		}
	}
}

func (r *Room) drainLeaves() {
	for {
		select {
		case lr := <-r.leaveChan:
			if p, ok := r.participants[lr.id]; ok && (lr.conn == nil || p.Conn == lr.conn) {
				r.remove(p)
			}
		case task := <-r.taskChan:
			task()
		default:
			return
		}
	}
}

func (r *Room) join(jr joinRequest) {
	if _, err := r.session.Join(jr.id, jr.role); err != nil {
		r.log.Warnw("join refused", "participant", jr.id, "role", jr.role, "err", err)
		if jr.conn != nil {
			if b, err2 := jr.conn.codec.Marshal(ServerMessage{Type: MsgError, Error: err.Error()}); err2 == nil {
				jr.conn.Enqueue(b)
			}
			jr.conn.Close()
		}
		return
	}
	p := &Participant{ID: jr.id, Role: jr.role, Conn: jr.conn}
	r.participants[p.ID] = p
	if p.Role == game.RoleObserver {
		r.observers.Put(p.ID)
	}
	r.log.Infow("participant joined", "participant", p.ID, "role", p.Role, "players", r.session.Players(), "observers", r.observers.Size())

	snap := r.session.Snapshot()
	r.send(p, ServerMessage{Type: MsgWelcome, Tick: r.Tick(), Participant: p.ID, Role: p.Role})
	r.send(p, ServerMessage{Type: MsgSnapshot, Tick: r.Tick(), Snapshot: &snap})
}

func (r *Room) remove(p *Participant) {
	r.session.Leave(p.ID)
	delete(r.participants, p.ID)
	r.observers.Remove(p.ID)
	if p.Conn != nil {
		p.Conn.Close()
	}
	r.log.Infow("participant left", "participant", p.ID, "players", r.session.Players())
}

func (r *Room) apply(in Input, limit int) {
	p := r.participants[in.Participant]
	if p != nil {
		if p.inputsThisTick >= limit {
			r.metrics.IncRateLimited()
			return
		}
		if in.Seq > 0 {
			if in.Seq <= p.lastSeq {
				r.metrics.IncOldSeqIgnored()
				return
			}
			p.lastSeq = in.Seq
		}
		p.inputsThisTick++
	}
	r.metrics.IncAccepted()
	in.Request.Participant = in.Participant
	err := r.session.Submit(in.Request)
	if err == nil || p == nil {
		return
	}
	// 越界与前置条件失败是静默的；其余拒绝通知请求方
	if errors.Is(err, game.ErrInvalidPosition) || errors.Is(err, game.ErrPreconditionFailed) {
		return
	}
	r.send(p, ServerMessage{Type: MsgReject, Tick: r.Tick(), Seq: in.Seq, Op: string(in.Request.Op), Error: err.Error()})
}

// UpdateWorld 以固定步长推进会话虚拟时钟
func (r *Room) UpdateWorld() {
	r.session.Advance(r.tickInterval)
}

// BroadcastDelta 广播本 Tick 的事件与玩家状态
func (r *Room) BroadcastDelta() {
	st := r.session.Phase().Status()
	score := r.session.Score()
	r.broadcast(ServerMessage{
		Type:    MsgTick,
		Tick:    r.Tick(),
		Events:  r.session.Drain(),
		Agents:  r.session.AgentStates(),
		Enemies: r.session.EnemyStates(),
		Phase:   &st,
		Score:   &score,
	})
}

// broadcast 每种编码只序列化一次
func (r *Room) broadcast(msg ServerMessage) {
	encoded := make(map[string][]byte, len(codecs))
	for _, p := range r.participants {
		if p.Conn == nil {
			continue
		}
		name := p.Conn.codec.Name()
		b, ok := encoded[name]
		if !ok {
			var err error
			if b, err = p.Conn.codec.Marshal(msg); err != nil {
				r.log.Errorw("encode failed", "codec", name, "type", msg.Type, "err", err)
				continue
			}
			encoded[name] = b
		}
		p.Conn.Enqueue(b)
	}
}

func (r *Room) send(p *Participant, msg ServerMessage) {
	if p.Conn == nil {
		return
	}
	b, err := p.Conn.codec.Marshal(msg)
	if err != nil {
		r.log.Errorw("encode failed", "codec", p.Conn.codec.Name(), "type", msg.Type, "err", err)
		return
	}
	p.Conn.Enqueue(b)
}

func (r *Room) participantIDs() []string {
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomState 管理接口输出
type RoomState struct {
	ID           string             `json:"id"`
	Tick         uint64             `json:"tick"`
	Players      int                `json:"players"`
	Observers    int                `json:"observers"`
	Participants []ParticipantState `json:"participants"`
	Snapshot     game.Snapshot      `json:"snapshot"`
}

// State 在 Tick 线程中采集房间状态
func (r *Room) State(ctx context.Context) (RoomState, error) {
	var st RoomState
	err := r.Do(ctx, func(s *game.Session) {
		st = RoomState{
			ID:        r.ID,
			Tick:      r.Tick(),
			Players:   s.Players(),
			Observers: r.observers.Size(),
			Snapshot:  s.Snapshot(),
		}
		for _, id := range r.participantIDs() {
			st.Participants = append(st.Participants, r.participants[id].State())
		}
	})
	return st, err
}
