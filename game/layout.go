package game

import (
	"fmt"
	"sort"
)

// Layout 关卡初始布局：内部墙体、初始冰块、第一阶段水果
type Layout struct {
	Name         string
	Walls        []Coord
	Obstacles    []Coord
	Collectibles []Coord
}

var layouts = map[string]func(w, h int) Layout{
	"level1": func(w, h int) Layout {
		return Layout{
			Name:         "level1",
			Obstacles:    []Coord{{5, 5}, {6, 5}},
			Collectibles: []Coord{{3, 3}, {w - 4, h - 4}, {3, h - 4}},
		}
	},
	// level2：以中心为基准的 T 形墙，横杆宽 7 格位于中心上方 2 格，竖杆向下 5 格
	"level2": func(w, h int) Layout {
		cx, cz := w/2, h/2
		top := cz + 2
		var walls []Coord
		for x := cx - 3; x <= cx+3; x++ {
			walls = append(walls, Coord{x, top})
		}
		for z := top - 1; z >= top-4; z-- {
			walls = append(walls, Coord{cx, z})
		}
		return Layout{
			Name:         "level2",
			Walls:        walls,
			Collectibles: []Coord{{2, 2}, {w - 3, 2}, {2, h - 3}},
		}
	},
	"empty": func(w, h int) Layout { return Layout{Name: "empty"} },
}

// LayoutNames 已注册的布局名
func LayoutNames() []string {
	names := make([]string, 0, len(layouts))
	for n := range layouts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupLayout 按棋盘尺寸生成命名布局
func LookupLayout(name string, w, h int) (Layout, error) {
	fn, ok := layouts[name]
	if !ok {
		return Layout{}, fmt.Errorf("unknown layout %q (have %v)", name, LayoutNames())
	}
	return fn(w, h), nil
}

// apply 先放墙，再通过 Lifecycle 创建实体，越界或冲突的条目被跳过
func (l Layout) apply(b *Board, life *Lifecycle) {
	for _, c := range l.Walls {
		b.placeWall(c.X, c.Z)
	}
	for _, c := range l.Obstacles {
		_, _ = life.Create(CellObstacle, c, 1)
	}
	for _, c := range l.Collectibles {
		_, _ = life.Create(CellCollectible, c, 1)
	}
}
