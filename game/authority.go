package game

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Operation 请求类型
type Operation string

const (
	OpCreateObstacle  Operation = "create"
	OpDestroyObstacle Operation = "destroy"
	OpMove            Operation = "move"
	OpAct             Operation = "act"
)

// Request 参与者提交的变更请求；是否生效只由权威进程决定
type Request struct {
	Participant string    `json:"participant,omitempty" msgpack:"participant,omitempty"`
	Op          Operation `json:"op" msgpack:"op"`
	X           int       `json:"x" msgpack:"x"`
	Z           int       `json:"z" msgpack:"z"`
	Dir         Direction `json:"dir,omitempty" msgpack:"dir,omitempty"`
	Seq         int64     `json:"seq,omitempty" msgpack:"seq,omitempty"`
}

// Channel 所有棋盘变更的唯一入口
type Channel interface {
	Submit(req Request) error
}

// Role 参与者角色
type Role string

const (
	RolePlayer   Role = "player"
	RoleObserver Role = "observer"
)

// Telemetry 记录每个请求的处理结果
type Telemetry interface {
	RecordOutcome(op Operation, err error)
}

type nopTelemetry struct{}

func (nopTelemetry) RecordOutcome(Operation, error) {}

// Authority 权威进程上的 Channel：校验后通过 Board/Lifecycle 执行。
// 只在会话线程中调用，不加锁；正确性依赖每次执行前的前置条件检查。
type Authority struct {
	board     *Board
	life      *Lifecycle
	phase     *PhaseController
	telemetry Telemetry
	log       *zap.SugaredLogger

	roles  map[string]Role
	agents map[string]*Agent
}

func NewAuthority(board *Board, life *Lifecycle, phase *PhaseController, telemetry Telemetry, log *zap.SugaredLogger) *Authority {
	if telemetry == nil {
		telemetry = nopTelemetry{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Authority{
		board:     board,
		life:      life,
		phase:     phase,
		telemetry: telemetry,
		log:       log,
		roles:     make(map[string]Role),
		agents:    make(map[string]*Agent),
	}
}

// Admit 登记参与者角色；玩家需同时绑定其 Agent
func (a *Authority) Admit(participant string, role Role, agent *Agent) {
	a.roles[participant] = role
	if agent != nil {
		a.agents[participant] = agent
	}
}

// Revoke 移除参与者
func (a *Authority) Revoke(participant string) {
	delete(a.roles, participant)
	delete(a.agents, participant)
}

func (a *Authority) Role(participant string) (Role, bool) {
	r, ok := a.roles[participant]
	return r, ok
}

// Submit 按到达顺序同步执行；失败只返回错误，从不影响后续请求
func (a *Authority) Submit(req Request) error {
	err := a.apply(req)
	a.telemetry.RecordOutcome(req.Op, err)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidPosition):
		a.log.Warnw("request dropped", "participant", req.Participant, "op", req.Op, "x", req.X, "z", req.Z, "err", err)
	case errors.Is(err, ErrUnauthorized):
		a.log.Infow("request rejected", "participant", req.Participant, "op", req.Op, "err", err)
	default:
		a.log.Debugw("request ignored", "participant", req.Participant, "op", req.Op, "x", req.X, "z", req.Z, "err", err)
	}
	return err
}

func (a *Authority) apply(req Request) error {
	if !a.phase.Active() {
		return fmt.Errorf("%s: %w", req.Op, ErrLevelOver)
	}
	if role, ok := a.roles[req.Participant]; !ok || role != RolePlayer {
		return fmt.Errorf("%s by %q (role %q): %w", req.Op, req.Participant, role, ErrUnauthorized)
	}
	switch req.Op {
	case OpCreateObstacle:
		if !a.board.IsValidPosition(req.X, req.Z) {
			return fmt.Errorf("create at (%d,%d): %w", req.X, req.Z, ErrInvalidPosition)
		}
		_, err := a.life.Create(CellObstacle, Coord{req.X, req.Z}, a.phase.Number())
		return err
	case OpDestroyObstacle:
		if !a.board.IsValidPosition(req.X, req.Z) {
			return fmt.Errorf("destroy at (%d,%d): %w", req.X, req.Z, ErrInvalidPosition)
		}
		if c := a.board.EffectiveCell(req.X, req.Z); c != CellObstacle {
			return fmt.Errorf("destroy at (%d,%d) on %s: %w", req.X, req.Z, c, ErrPreconditionFailed)
		}
		a.life.Destroy(a.board.Occupant(req.X, req.Z), CauseDestroyed)
		return nil
	case OpMove, OpAct:
		agent := a.agents[req.Participant]
		if agent == nil {
			return fmt.Errorf("%s without agent: %w", req.Op, ErrUnauthorized)
		}
		if req.Op == OpMove {
			if req.Dir == DirNone {
				return fmt.Errorf("move without direction: %w", ErrUnknownOperation)
			}
			if !agent.RequestMove(req.Dir) {
				return fmt.Errorf("move %s from %v: %w", req.Dir, agent.Coord(), ErrPreconditionFailed)
			}
			return nil
		}
		if !agent.RequestAction() {
			return fmt.Errorf("act from %v facing %s: %w", agent.Coord(), agent.Facing(), ErrPreconditionFailed)
		}
		return nil
	default:
		return fmt.Errorf("%q: %w", req.Op, ErrUnknownOperation)
	}
}

// Forwarder 非权威进程上的 Channel：只负责把请求发给权威进程，本地不做任何变更
type Forwarder struct {
	send func(Request) error
}

func NewForwarder(send func(Request) error) *Forwarder {
	return &Forwarder{send: send}
}

func (f *Forwarder) Submit(req Request) error {
	if f.send == nil {
		return fmt.Errorf("forward %s: %w", req.Op, ErrUnauthorized)
	}
	return f.send(req)
}
