package snap

import (
	"math"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

// CacheStats counts cache rebuilds
type CacheStats struct {
	GridBuilds      int
	ToleranceBuilds int
}

// cache holds values that only change with the canvas size, grid size or
// zoom. Entries are invalidated by comparing those inputs.
type cache struct {
	gridKey struct {
		size canvas.Size
		grid float64
	}
	gridValid bool
	xs, ys    []float64

	tolKey   [2]float64
	tolValid bool
	tol      float64

	stats CacheStats
}

func (c *cache) gridLines(size canvas.Size, grid float64) ([]float64, []float64) {
	if c.gridValid && c.gridKey.size == size && c.gridKey.grid == grid {
		return c.xs, c.ys
	}
	c.gridKey.size = size
	c.gridKey.grid = grid
	c.xs = lines(size.Width, grid)
	c.ys = lines(size.Height, grid)
	c.gridValid = true
	c.stats.GridBuilds++
	return c.xs, c.ys
}

func lines(extent, step float64) []float64 {
	if extent <= 0 || step <= 0 {
		return nil
	}
	n := int(math.Floor(extent/step)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, float64(i)*step)
	}
	return out
}

// tolerance keeps the visual tolerance constant: base / zoom
func (c *cache) tolerance(base, zoom float64) float64 {
	key := [2]float64{base, zoom}
	if c.tolValid && c.tolKey == key {
		return c.tol
	}
	c.tolKey = key
	c.tol = math.Max(base/zoom, minTolerance)
	c.tolValid = true
	c.stats.ToleranceBuilds++
	return c.tol
}
