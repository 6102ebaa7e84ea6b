package stableswap

import "time"

const (
	// MaxA bounds the amplification coefficient.
	MaxA = 1_000_000
	// MaxAChange bounds the ratio between the current and the target A of a ramp.
	MaxAChange = 10
	// MinRampTime is the minimum ramp duration and the minimum spacing between
	// ramp starts.
	MinRampTime = 24 * time.Hour
)

// Ramp describes a linear move of A from InitialA at InitialTime to FutureA at
// FutureTime. Times are unix seconds.
type Ramp struct {
	InitialA    uint64
	FutureA     uint64
	InitialTime int64
	FutureTime  int64
}

// At returns the amplification in effect at unix time now. Before FutureTime
// it interpolates linearly with integer truncation, in either direction.
func (r Ramp) At(now int64) uint64 {
	if now >= r.FutureTime || r.FutureTime <= r.InitialTime {
		return r.FutureA
	}
	var elapsed uint64
	if now > r.InitialTime {
		elapsed = uint64(now - r.InitialTime)
	}
	span := uint64(r.FutureTime - r.InitialTime)
	if r.FutureA > r.InitialA {
		return r.InitialA + (r.FutureA-r.InitialA)*elapsed/span
	}
	return r.InitialA - (r.InitialA-r.FutureA)*elapsed/span
}

// Ramping reports whether A is still moving at now.
func (r Ramp) Ramping(now int64) bool {
	return now < r.FutureTime && r.InitialA != r.FutureA
}
