package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations.
// The value is stored as its IEEE-754 bits, so every operation reduces to a
// uint64 load, store or compare-and-swap.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 encapsulates a float64 for atomic operations.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.bits.Store(math.Float64bits(val))
	return af
}

// Atomically read the float64.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicStore unconditionally sets the float64; the latest store wins.
func (af *AtomicFloat64) AtomicStore(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// Atomically add to the float64.
// If the value changes between the read and the swap the addition is not
// applied and succeeded is false, leaving it to the caller to retry, drop
// the update, or recalculate.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// AtomicSet sets the float64 if it still holds old, returns true on success.
func (af *AtomicFloat64) AtomicSet(old, newVal float64) (succeeded bool) {
	return af.bits.CompareAndSwap(math.Float64bits(old), math.Float64bits(newVal))
}
