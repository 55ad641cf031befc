package game

import (
	"fmt"

	"go.uber.org/zap"
)

// Board 棋盘：格子类型数组 + 坐标到实体的注册表
// 不变量：坐标为 Obstacle/Collectible 当且仅当注册表中恰有一个实体
type Board struct {
	width  int
	height int
	cells  []Cell
	reg    map[Coord]*Entity
	log    *zap.SugaredLogger
}

// NewBoard 创建全空棋盘，外圈为墙
func NewBoard(width, height int, log *zap.SugaredLogger) *Board {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &Board{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
		reg:    make(map[Coord]*Entity),
		log:    log,
	}
	for x := 0; x < width; x++ {
		b.cells[b.idx(x, 0)] = CellWall
		b.cells[b.idx(x, height-1)] = CellWall
	}
	for z := 0; z < height; z++ {
		b.cells[b.idx(0, z)] = CellWall
		b.cells[b.idx(width-1, z)] = CellWall
	}
	return b
}

func (b *Board) Width() int { return b.width }
func (b *Board) Height() int { return b.height }

func (b *Board) idx(x, z int) int { return z*b.width + x }

// IsValidPosition 边界检查
func (b *Board) IsValidPosition(x, z int) bool {
	return x >= 0 && x < b.width && z >= 0 && z < b.height
}

// CellAt 越界读取视为墙
func (b *Board) CellAt(x, z int) Cell {
	if !b.IsValidPosition(x, z) {
		return CellWall
	}
	return b.cells[b.idx(x, z)]
}

// Occupant 返回注册在该坐标的实体（可能处于销毁动画中）
func (b *Board) Occupant(x, z int) *Entity {
	return b.reg[Coord{x, z}]
}

// EffectiveCell 前置条件检查使用的格子类型：正在销毁的实体视为已空
func (b *Board) EffectiveCell(x, z int) Cell {
	c := b.CellAt(x, z)
	if c.Occupied() {
		if e := b.reg[Coord{x, z}]; e != nil && e.State() != StateAlive {
			return CellEmpty
		}
	}
	return c
}

// IsWalkable 合法位置且不是墙/冰块
func (b *Board) IsWalkable(x, z int) bool {
	if !b.IsValidPosition(x, z) {
		return false
	}
	c := b.EffectiveCell(x, z)
	return c != CellWall && c != CellObstacle
}

// SetCell 修改单个格子及其注册项；越界时记录日志后忽略
func (b *Board) SetCell(x, z int, c Cell, e *Entity) error {
	if !b.IsValidPosition(x, z) {
		b.log.Warnw("set cell out of bounds", "x", x, "z", z, "cell", c)
		return fmt.Errorf("set cell %v: %w", Coord{x, z}, ErrInvalidPosition)
	}
	i := b.idx(x, z)
	if b.cells[i] == CellWall || c == CellWall {
		return fmt.Errorf("set cell %v: walls are fixed: %w", Coord{x, z}, ErrPreconditionFailed)
	}
	if c.Occupied() != (e != nil) {
		return fmt.Errorf("set cell %v to %s with entity=%t: %w", Coord{x, z}, c, e != nil, ErrPreconditionFailed)
	}
	b.cells[i] = c
	if e != nil {
		b.reg[Coord{x, z}] = e
	} else {
		delete(b.reg, Coord{x, z})
	}
	return nil
}

// Clear 置空并移除注册项（幂等）
func (b *Board) Clear(x, z int) {
	if !b.IsValidPosition(x, z) {
		b.log.Warnw("clear out of bounds", "x", x, "z", z)
		return
	}
	i := b.idx(x, z)
	if b.cells[i] == CellWall {
		return
	}
	b.cells[i] = CellEmpty
	delete(b.reg, Coord{x, z})
}

// placeWall 仅在关卡初始化阶段调用
func (b *Board) placeWall(x, z int) {
	if !b.IsValidPosition(x, z) {
		return
	}
	delete(b.reg, Coord{x, z})
	b.cells[b.idx(x, z)] = CellWall
}

// Cells 行优先（z 外层）的格子快照
func (b *Board) Cells() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Entities 当前注册的全部实体
func (b *Board) Entities() []*Entity {
	out := make([]*Entity, 0, len(b.reg))
	for z := 0; z < b.height; z++ {
		for x := 0; x < b.width; x++ {
			if e, ok := b.reg[Coord{x, z}]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// Count 统计某种类型的格子数量
func (b *Board) Count(c Cell) int {
	n := 0
	for _, v := range b.cells {
		if v == c {
			n++
		}
	}
	return n
}

// CheckInvariants 校验注册表与格子类型一致、外圈为墙
func (b *Board) CheckInvariants() error {
	for z := 0; z < b.height; z++ {
		for x := 0; x < b.width; x++ {
			c := b.cells[b.idx(x, z)]
			e, registered := b.reg[Coord{x, z}]
			if registered != c.Occupied() {
				return fmt.Errorf("cell %v is %s but registered=%t", Coord{x, z}, c, registered)
			}
			if registered && e.Coord() != (Coord{x, z}) {
				return fmt.Errorf("entity %s registered at %v but located at %v", e.ID(), Coord{x, z}, e.Coord())
			}
			perimeter := x == 0 || z == 0 || x == b.width-1 || z == b.height-1
			if perimeter && c != CellWall {
				return fmt.Errorf("perimeter cell %v is %s", Coord{x, z}, c)
			}
		}
	}
	return nil
}
