package game

import "fmt"

// Cell 棋盘格子的占用类型
type Cell int

const (
	CellEmpty Cell = iota
	CellObstacle
	CellWall
	CellCollectible
)

func (c Cell) String() string {
	switch c {
	case CellEmpty:
		return "empty"
	case CellObstacle:
		return "obstacle"
	case CellWall:
		return "wall"
	case CellCollectible:
		return "collectible"
	default:
		return fmt.Sprintf("cell(%d)", int(c))
	}
}

// Occupied 该类型的格子必须在注册表中持有唯一实体
func (c Cell) Occupied() bool {
	return c == CellObstacle || c == CellCollectible
}

// Coord 整数网格坐标
type Coord struct {
	X int `json:"x" msgpack:"x"`
	Z int `json:"z" msgpack:"z"`
}

func (c Coord) Add(d Coord) Coord { return Coord{X: c.X + d.X, Z: c.Z + d.Z} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Z) }

// Direction 四个朝向（服务端权威解释客户端“意图”）
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Delta 朝向对应的单位向量；Up 为 +z（北）
func (d Direction) Delta() Coord {
	switch d {
	case DirUp:
		return Coord{Z: 1}
	case DirDown:
		return Coord{Z: -1}
	case DirLeft:
		return Coord{X: -1}
	case DirRight:
		return Coord{X: 1}
	default:
		return Coord{}
	}
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// ParseDirection 解析 "up"/"down"/"left"/"right"，其余返回 DirNone
func ParseDirection(s string) Direction {
	switch s {
	case "up", "north":
		return DirUp
	case "down", "south":
		return DirDown
	case "left", "west":
		return DirLeft
	case "right", "east":
		return DirRight
	default:
		return DirNone
	}
}

// Directions 固定顺序的四个方向
var Directions = [4]Direction{DirUp, DirDown, DirLeft, DirRight}
