package game

import "math"

// Vec3 连续世界坐标
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// MoveTowards 以不超过 maxDelta 的步长从 v 逼近 target
func (v Vec3) MoveTowards(target Vec3, maxDelta float64) Vec3 {
	d := target.Sub(v)
	dist := d.Len()
	if dist <= maxDelta || dist == 0 {
		return target
	}
	k := maxDelta / dist
	return Vec3{v.X + d.X*k, v.Y + d.Y*k, v.Z + d.Z*k}
}

// Transform 网格坐标与世界坐标之间的双射，会话期间不变
type Transform struct {
	origin   Vec3
	tileSize float64
}

// NewTransform origin = (-width/2, 0, -height/2)
func NewTransform(width, height int, tileSize float64) Transform {
	if tileSize <= 0 {
		tileSize = 1
	}
	return Transform{
		origin:   Vec3{X: -float64(width) / 2, Z: -float64(height) / 2},
		tileSize: tileSize,
	}
}

func (t Transform) Origin() Vec3 { return t.origin }

func (t Transform) TileSize() float64 { return t.tileSize }

// WorldFromGrid world = origin + (x·s, 0, z·s)
func (t Transform) WorldFromGrid(c Coord) Vec3 {
	return Vec3{
		X: t.origin.X + float64(c.X)*t.tileSize,
		Y: t.origin.Y,
		Z: t.origin.Z + float64(c.Z)*t.tileSize,
	}
}

// GridFromWorld 就近取整（四舍六入五成双，各端结果一致）
func (t Transform) GridFromWorld(w Vec3) Coord {
	return Coord{
		X: int(math.RoundToEven((w.X - t.origin.X) / t.tileSize)),
		Z: int(math.RoundToEven((w.Z - t.origin.Z) / t.tileSize)),
	}
}
