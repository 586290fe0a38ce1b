package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// ParseZoom extracts the horizontal scale from a CSS transform value.
// Supported forms are none, scale(s), scale(sx, sy), matrix(a, b, c, d, e, f)
// and matrix3d with sixteen values.
func ParseZoom(transform string) (float64, error) {
	t := strings.TrimSpace(transform)
	if t == "" || t == "none" {
		return 1, nil
	}
	open := strings.IndexByte(t, '(')
	if open < 0 || !strings.HasSuffix(t, ")") {
		return 0, fmt.Errorf("malformed transform %q", transform)
	}
	fn := strings.TrimSpace(t[:open])
	values, err := parseArgs(t[open+1 : len(t)-1])
	if err != nil {
		return 0, fmt.Errorf("transform %q: %w", transform, err)
	}

	var zoom float64
	switch fn {
	case "scale":
		if len(values) != 1 && len(values) != 2 {
			return 0, fmt.Errorf("scale takes 1 or 2 values, got %d", len(values))
		}
		zoom = values[0]
	case "matrix":
		if len(values) != 6 {
			return 0, fmt.Errorf("matrix takes 6 values, got %d", len(values))
		}
		zoom = math.Hypot(values[0], values[1])
	case "matrix3d":
		if len(values) != 16 {
			return 0, fmt.Errorf("matrix3d takes 16 values, got %d", len(values))
		}
		// column-major: first column holds the x basis vector
		zoom = math.Hypot(values[0], values[1])
	default:
		return 0, fmt.Errorf("unsupported transform function %q", fn)
	}
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return 0, fmt.Errorf("transform %q has no usable scale", transform)
	}
	return zoom, nil
}

func parseArgs(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// ZoomReader reads the zoom of a live transform, caching the last result keyed
// by the raw transform string. It is safe for concurrent use.
type ZoomReader struct {
	mu     sync.Mutex
	key    string
	zoom   float64
	cached bool
	misses int
}

// Read returns the zoom for transform, or 1 when it cannot be parsed
func (z *ZoomReader) Read(transform string) float64 {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.cached && z.key == transform {
		return z.zoom
	}
	z.misses++
	zoom, err := ParseZoom(transform)
	if err != nil {
		if debugLog != nil {
			debugLog("[Zoom] falling back to 1:", err)
		}
		zoom = 1
	}
	z.key = transform
	z.zoom = zoom
	z.cached = true
	return zoom
}

// Misses returns how many reads had to parse the transform
func (z *ZoomReader) Misses() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.misses
}

// debugLog is set by host code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}
