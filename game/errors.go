package game

import "errors"

var (
	// ErrInvalidPosition 坐标越界：丢弃并记录日志
	ErrInvalidPosition = errors.New("invalid position")
	// ErrPreconditionFailed 格子不处于操作要求的状态（通常是竞争失败）
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUnauthorized 非权威或非所有者的变更尝试
	ErrUnauthorized = errors.New("unauthorized mutation")
	// ErrLevelOver 关卡已结束，不再接受变更
	ErrLevelOver = errors.New("level is not active")
	// ErrUnknownOperation 无法识别的请求
	ErrUnknownOperation = errors.New("unknown operation")
)
