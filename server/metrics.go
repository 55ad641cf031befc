package server

import (
	"errors"
	"sync/atomic"

	"icegrid/game"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）；同时作为会话的 Telemetry
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 进入会话的输入数
	RateLimited       int64 // 因同帧限流被拒绝的输入数
	OldSeqIgnored     int64 // 因旧序列被忽略的输入数
	DropsSimulated    int64 // 因模拟丢包被丢弃的输入数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	BadFrames         int64 // 无法解码的上行帧
	TotalTickNs       int64 // Tick 累计耗时（纳秒）

	// 会话处理结果
	Applied         int64
	InvalidPosition int64
	Precondition    int64
	Unauthorized    int64
	LevelOver       int64
	UnknownOp       int64
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncRateLimited()       { atomic.AddInt64(&m.RateLimited, 1) }
func (m *RoomMetrics) IncOldSeqIgnored()     { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *RoomMetrics) IncDropsSimulated()    { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncBadFrames()         { atomic.AddInt64(&m.BadFrames, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// RecordOutcome 实现 game.Telemetry
func (m *RoomMetrics) RecordOutcome(_ game.Operation, err error) {
	switch {
	case err == nil:
		atomic.AddInt64(&m.Applied, 1)
	case errors.Is(err, game.ErrInvalidPosition):
		atomic.AddInt64(&m.InvalidPosition, 1)
	case errors.Is(err, game.ErrPreconditionFailed):
		atomic.AddInt64(&m.Precondition, 1)
	case errors.Is(err, game.ErrUnauthorized):
		atomic.AddInt64(&m.Unauthorized, 1)
	case errors.Is(err, game.ErrLevelOver):
		atomic.AddInt64(&m.LevelOver, 1)
	default:
		atomic.AddInt64(&m.UnknownOp, 1)
	}
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"drops_simulated":     atomic.LoadInt64(&m.DropsSimulated),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"bad_frames":          atomic.LoadInt64(&m.BadFrames),
		"avg_tick_ms":         avgMs,
		"applied":             atomic.LoadInt64(&m.Applied),
		"invalid_position":    atomic.LoadInt64(&m.InvalidPosition),
		"precondition_failed": atomic.LoadInt64(&m.Precondition),
		"unauthorized":        atomic.LoadInt64(&m.Unauthorized),
		"level_over":          atomic.LoadInt64(&m.LevelOver),
		"unknown_operation":   atomic.LoadInt64(&m.UnknownOp),
	}
}
