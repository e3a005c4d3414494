// Package world provides the block-level spatial model that law enforcement
// queries when placing guards and measuring distances.
package world

import (
	"fmt"
	"math"
)

// Pos is an integer block coordinate.
type Pos struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	Z int `yaml:"z" json:"z"`
}

// Offset returns p translated by (dx, dy, dz).
func (p Pos) Offset(dx, dy, dz int) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Below returns the position directly under p.
func (p Pos) Below() Pos { return p.Offset(0, -1, 0) }

// Above returns the position directly over p.
func (p Pos) Above() Pos { return p.Offset(0, 1, 0) }

// DistSq returns the squared euclidean distance between p and o.
//
// Postcondition: Returns a value >= 0.
func (p Pos) DistSq(o Pos) int64 {
	dx := int64(p.X - o.X)
	dy := int64(p.Y - o.Y)
	dz := int64(p.Z - o.Z)
	return dx*dx + dy*dy + dz*dz
}

// Dist returns the euclidean distance between p and o.
func (p Pos) Dist(o Pos) float64 {
	return math.Sqrt(float64(p.DistSq(o)))
}

// String renders p as "(x, y, z)".
func (p Pos) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Block is the material occupying a single cell.
type Block uint8

const (
	// BlockAir is passable empty space.
	BlockAir Block = iota
	// BlockSolid supports standing entities.
	BlockSolid
	// BlockLiquid blocks motion but cannot be stood on.
	BlockLiquid
)

// String returns the YAML name of the block.
func (b Block) String() string {
	switch b {
	case BlockSolid:
		return "solid"
	case BlockLiquid:
		return "liquid"
	default:
		return "air"
	}
}

// ParseBlock converts a YAML block name into a Block.
//
// Postcondition: Returns an error for unknown names.
func ParseBlock(s string) (Block, error) {
	switch s {
	case "air":
		return BlockAir, nil
	case "solid":
		return BlockSolid, nil
	case "liquid":
		return BlockLiquid, nil
	}
	return BlockAir, fmt.Errorf("unknown block %q", s)
}

// Box fills every cell between Min and Max (inclusive) with Block.
type Box struct {
	Min   Pos
	Max   Pos
	Block Block
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Pos) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Level is one loaded dimension: a flat floor plus box and cell overrides.
//
// Invariant: MinY <= FloorY <= MaxY.
type Level struct {
	ID     string
	Name   string
	FloorY int
	MinY   int
	MaxY   int
	// Boxes are evaluated last-to-first; the last box containing a cell wins.
	Boxes []Box

	cells map[Pos]Block
}

// NewFlatLevel creates a level whose cells at or below floorY are solid.
//
// Precondition: id must be non-empty; minY <= floorY <= maxY.
func NewFlatLevel(id string, floorY, minY, maxY int) *Level {
	return &Level{
		ID:     id,
		Name:   id,
		FloorY: floorY,
		MinY:   minY,
		MaxY:   maxY,
		cells:  make(map[Pos]Block),
	}
}

// Validate checks level invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (l *Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("level ID must not be empty")
	}
	if l.MinY > l.MaxY {
		return fmt.Errorf("level %q: min_y %d exceeds max_y %d", l.ID, l.MinY, l.MaxY)
	}
	if l.FloorY < l.MinY || l.FloorY > l.MaxY {
		return fmt.Errorf("level %q: floor_y %d outside [%d, %d]", l.ID, l.FloorY, l.MinY, l.MaxY)
	}
	for i, b := range l.Boxes {
		if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
			return fmt.Errorf("level %q: box %d has min greater than max", l.ID, i)
		}
	}
	return nil
}

// SetBlock overrides a single cell.
func (l *Level) SetBlock(p Pos, b Block) {
	if l.cells == nil {
		l.cells = make(map[Pos]Block)
	}
	l.cells[p] = b
}

// BlockAt returns the material at p.
func (l *Level) BlockAt(p Pos) Block {
	if b, ok := l.cells[p]; ok {
		return b
	}
	for i := len(l.Boxes) - 1; i >= 0; i-- {
		if l.Boxes[i].Contains(p) {
			return l.Boxes[i].Block
		}
	}
	if p.Y <= l.FloorY {
		return BlockSolid
	}
	return BlockAir
}

// IsSolid reports whether p can support an entity standing on it.
func (l *Level) IsSolid(p Pos) bool { return l.BlockAt(p) == BlockSolid }

// IsAir reports whether p is empty.
func (l *Level) IsAir(p Pos) bool { return l.BlockAt(p) == BlockAir }

// Surface returns the first cell above the highest motion-blocking block in
// column (x, z).
//
// Postcondition: Returns a position with Y in [MinY, MaxY+1].
func (l *Level) Surface(x, z int) Pos {
	for y := l.MaxY; y >= l.MinY; y-- {
		if l.BlockAt(Pos{X: x, Y: y, Z: z}) != BlockAir {
			return Pos{X: x, Y: y + 1, Z: z}
		}
	}
	return Pos{X: x, Y: l.MinY, Z: z}
}

// CanStandAt reports whether p has solid ground below and air at foot and
// head height.
func (l *Level) CanStandAt(p Pos) bool {
	return l.IsSolid(p.Below()) && l.IsAir(p) && l.IsAir(p.Above())
}
