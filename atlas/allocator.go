package atlas

import "fmt"

// Region is a rectangle of atlas texels.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsValid returns true if the region has valid dimensions.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// Inset shrinks the region by n texels on every side, keeping at least one
// texel on each axis.
func (r Region) Inset(n int) Region {
	nx := min(n, (r.Width-1)/2)
	ny := min(n, (r.Height-1)/2)
	return Region{X: r.X + nx, Y: r.Y + ny, Width: r.Width - 2*nx, Height: r.Height - 2*ny}
}

// Overlaps reports whether two regions share a texel.
func (r Region) Overlaps(o Region) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf represents a horizontal strip of the atlas.
type shelf struct {
	y      int // Top Y coordinate of this shelf
	height int // Height of this shelf (tallest item so far)
	nextX  int // Next available X position on this shelf
}

// shelfAllocator packs rectangles into horizontal shelves. Each rectangle
// goes on the first shelf with room, or on a new shelf below the last one.
//
// Fed with power-of-two sizes sorted from largest to smallest, as a relayout
// does, shelves pack without gaps.
type shelfAllocator struct {
	width   int
	height  int
	shelves []shelf

	allocCount int
	usedArea   int
}

func newShelfAllocator(width, height int) *shelfAllocator {
	return &shelfAllocator{
		width:   width,
		height:  height,
		shelves: make([]shelf, 0, 16),
	}
}

// allocate finds space for a width x height rectangle. It returns an
// invalid region when the rectangle does not fit.
func (a *shelfAllocator) allocate(width, height int) Region {
	if width <= 0 || height <= 0 || width > a.width || height > a.height {
		return Region{}
	}

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.nextX+width > a.width {
			continue
		}
		// A taller item only fits an empty-enough shelf if it is the last one
		// and can grow into the free space below.
		if height > s.height {
			if i != len(a.shelves)-1 || s.y+height > a.height {
				continue
			}
			s.height = height
		}
		r := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
		s.nextX += width
		a.allocCount++
		a.usedArea += width * height
		return r
	}

	newY := 0
	if n := len(a.shelves); n > 0 {
		newY = a.shelves[n-1].y + a.shelves[n-1].height
	}
	if newY+height > a.height {
		return Region{}
	}
	a.shelves = append(a.shelves, shelf{y: newY, height: height, nextX: width})
	a.allocCount++
	a.usedArea += width * height
	return Region{X: 0, Y: newY, Width: width, Height: height}
}

// reset clears all allocations, making the entire area available again.
func (a *shelfAllocator) reset() {
	a.shelves = a.shelves[:0]
	a.allocCount = 0
	a.usedArea = 0
}

// utilization returns the fraction of area used (0.0 to 1.0).
func (a *shelfAllocator) utilization() float64 {
	totalArea := a.width * a.height
	if totalArea == 0 {
		return 0
	}
	return float64(a.usedArea) / float64(totalArea)
}
