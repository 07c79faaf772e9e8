package encoding

import "math"

// decimator drops source frames to reach a lower output frame rate. Source
// frame i maps to output slot floor(i / (src/dst)); a frame is kept only when
// its slot differs from the previous frame's.
type decimator struct {
	interval float64
	enabled  bool
}

func newDecimator(sourceFPS, targetFPS float64) decimator {
	if targetFPS <= 0 || sourceFPS <= 0 || targetFPS >= sourceFPS {
		return decimator{}
	}
	return decimator{interval: sourceFPS / targetFPS, enabled: true}
}

func (d decimator) keep(index int64) bool {
	if !d.enabled {
		return true
	}
	slot := math.Floor(float64(index) / d.interval)
	prev := -1.0
	if index > 0 {
		prev = math.Floor(float64(index-1) / d.interval)
	}
	return slot != prev
}
