package index

import (
	"math"

	"github.com/paulmach/orb"
)

// MaxLevel is the finest subdivision level of the quad index.
const MaxLevel = 18

// CellKey identifies one cell of the quad index: a level<<58 | y<<29 | x
// packed 64-bit value. At level L the world (lng -180..180, lat -90..90) is
// divided into a 2^L x 2^L grid.
type CellKey uint64

const cellCoordinateBits = 29

func NewCellKey(level int, x int, y int) CellKey {
	return CellKey(uint64(level)<<(2*cellCoordinateBits) | uint64(y)<<cellCoordinateBits | uint64(x))
}

func (c CellKey) Level() int {
	return int(c >> (2 * cellCoordinateBits))
}

func (c CellKey) X() int {
	return int(c & (1<<cellCoordinateBits - 1))
}

func (c CellKey) Y() int {
	return int(c >> cellCoordinateBits & (1<<cellCoordinateBits - 1))
}

// CellAt returns the cell containing the given coordinate at the given
// level. Coordinates outside the world bounds are clamped into it.
func CellAt(lng float64, lat float64, level int) CellKey {
	gridSize := 1 << level
	x := clampCell(int(math.Floor((lng+180.0)/360.0*float64(gridSize))), gridSize)
	y := clampCell(int(math.Floor((lat+90.0)/180.0*float64(gridSize))), gridSize)
	return NewCellKey(level, x, y)
}

func clampCell(index int, gridSize int) int {
	if index < 0 {
		return 0
	}
	if index >= gridSize {
		return gridSize - 1
	}
	return index
}

// Bound returns the geographic extent of the cell in degrees.
func (c CellKey) Bound() orb.Bound {
	gridSize := float64(int(1) << c.Level())
	width := 360.0 / gridSize
	height := 180.0 / gridSize

	minLng := -180.0 + float64(c.X())*width
	minLat := -90.0 + float64(c.Y())*height

	return orb.Bound{
		Min: orb.Point{minLng, minLat},
		Max: orb.Point{minLng + width, minLat + height},
	}
}

// Children returns the four cells the cell splits into at the next level.
func (c CellKey) Children() [4]CellKey {
	level := c.Level() + 1
	x := c.X() * 2
	y := c.Y() * 2

	return [4]CellKey{
		NewCellKey(level, x, y),
		NewCellKey(level, x+1, y),
		NewCellKey(level, x, y+1),
		NewCellKey(level, x+1, y+1),
	}
}
