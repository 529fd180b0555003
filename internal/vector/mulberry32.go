package vector

// Mulberry32 is a deterministic 32-bit PRNG. Given the same seed it
// produces the same stream on every platform, which is what lets the
// LSH projection matrix be reconstructed bit-identically from
// (dimensions, projectionDim) alone rather than persisted.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 seeds a generator.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Float64 returns the next pseudo-random value in [0, 1).
func (m *Mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	a := m.state
	t := (a ^ (a >> 15)) * (a | 1)
	t ^= t + (t^(t>>7))*(t|61)
	t ^= t >> 14
	return float64(t) / 4294967296.0
}

// Signed returns the next value in [-1, 1), the form the projection
// matrix entries are drawn in.
func (m *Mulberry32) Signed() float64 {
	return m.Float64()*2 - 1
}
