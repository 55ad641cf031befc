package game

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBoardPerimeterIsWall(t *testing.T) {
	b := NewBoard(15, 15, nil)
	for z := 0; z < 15; z++ {
		for x := 0; x < 15; x++ {
			perimeter := x == 0 || z == 0 || x == 14 || z == 14
			if perimeter {
				if b.CellAt(x, z) != CellWall {
					t.Fatalf("expected wall at (%d,%d), got %s", x, z, b.CellAt(x, z))
				}
				if b.IsWalkable(x, z) {
					t.Fatalf("expected perimeter (%d,%d) not walkable", x, z)
				}
				continue
			}
			if b.CellAt(x, z) != CellEmpty || !b.IsWalkable(x, z) {
				t.Fatalf("expected empty walkable interior at (%d,%d)", x, z)
			}
		}
	}
	mustInvariants(t, b)
}

func TestBoundsCheck(t *testing.T) {
	b := NewBoard(15, 10, nil)
	cases := []struct {
		x, z  int
		valid bool
	}{
		{0, 0, true},
		{14, 9, true},
		{15, 0, false},
		{0, 10, false},
		{-1, 3, false},
		{3, -1, false},
	}
	for _, tc := range cases {
		if got := b.IsValidPosition(tc.x, tc.z); got != tc.valid {
			t.Fatalf("IsValidPosition(%d,%d) = %t, want %t", tc.x, tc.z, got, tc.valid)
		}
		if !tc.valid {
			if b.CellAt(tc.x, tc.z) != CellWall {
				t.Fatalf("expected out of bounds (%d,%d) to read as wall", tc.x, tc.z)
			}
			if b.IsWalkable(tc.x, tc.z) {
				t.Fatalf("expected out of bounds (%d,%d) not walkable", tc.x, tc.z)
			}
		}
	}
}

func TestSetCellKeepsRegistryConsistent(t *testing.T) {
	b := NewBoard(8, 8, nil)
	e := &Entity{id: "ice-1", kind: CellObstacle, at: Coord{3, 3}}

	if err := b.SetCell(3, 3, CellObstacle, nil); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected occupied cell without entity to be rejected, got %v", err)
	}
	if err := b.SetCell(3, 3, CellEmpty, e); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected empty cell with entity to be rejected, got %v", err)
	}
	if err := b.SetCell(0, 3, CellObstacle, e); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected wall overwrite to be rejected, got %v", err)
	}
	if err := b.SetCell(3, 3, CellObstacle, e); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if b.Occupant(3, 3) != e {
		t.Fatalf("expected registry to hold entity")
	}
	if b.IsWalkable(3, 3) {
		t.Fatalf("expected obstacle cell not walkable")
	}
	mustInvariants(t, b)

	b.Clear(3, 3)
	b.Clear(3, 3)
	if b.CellAt(3, 3) != CellEmpty || b.Occupant(3, 3) != nil {
		t.Fatalf("expected clear to empty the cell and registry")
	}
	b.Clear(0, 0)
	if b.CellAt(0, 0) != CellWall {
		t.Fatalf("expected clear to leave walls intact")
	}
	mustInvariants(t, b)
}

func TestSetCellOutOfBoundsIsLoggedNoop(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := NewBoard(5, 5, zap.New(core).Sugar())
	before := b.Cells()

	err := b.SetCell(7, 2, CellObstacle, &Entity{id: "x", kind: CellObstacle})
	if !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	after := b.Cells()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("expected board unchanged at index %d", i)
		}
	}
}

func TestCollectibleIsWalkable(t *testing.T) {
	b := NewBoard(6, 6, nil)
	fruit := &Entity{id: "f", kind: CellCollectible, at: Coord{2, 2}}
	if err := b.SetCell(2, 2, CellCollectible, fruit); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if !b.IsWalkable(2, 2) {
		t.Fatalf("expected collectible cell walkable")
	}
	if b.Count(CellCollectible) != 1 {
		t.Fatalf("expected one collectible, got %d", b.Count(CellCollectible))
	}
}

func TestEffectiveCellTreatsDestroyingAsEmpty(t *testing.T) {
	b := NewBoard(6, 6, nil)
	e := &Entity{id: "ice", kind: CellObstacle, at: Coord{2, 2}}
	if err := b.SetCell(2, 2, CellObstacle, e); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	e.state = StateDestroying
	if b.CellAt(2, 2) != CellObstacle {
		t.Fatalf("expected raw cell to stay obstacle until removal")
	}
	if b.EffectiveCell(2, 2) != CellEmpty {
		t.Fatalf("expected effective cell empty while destroying")
	}
	if !b.IsWalkable(2, 2) {
		t.Fatalf("expected destroying obstacle to be walkable")
	}
	mustInvariants(t, b)
}
