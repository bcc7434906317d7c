package buffer

import (
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/pool"
)

// Accumulator is an ordered byte buffer that is filled by Push and emptied
// in one step by Drain. It copies pushed data, so callers may reuse their
// slices after Push returns. It is not safe for concurrent use.
type Accumulator struct {
	threshold int
	pool      *pool.BufferPool
	data      []byte
}

// NewAccumulator creates an accumulator that reports Ready once threshold
// bytes are buffered.
func NewAccumulator(threshold int) *Accumulator {
	return &Accumulator{
		threshold: threshold,
		pool:      pool.ForPartSize(threshold),
	}
}

// Push appends p to the buffer.
func (a *Accumulator) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	if a.data == nil {
		a.data = a.pool.Get()
	}
	a.data = append(a.data, p...)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.data)
}

// Ready reports whether the buffered length reached the threshold.
func (a *Accumulator) Ready() bool {
	return len(a.data) >= a.threshold
}

// Threshold returns the drain threshold.
func (a *Accumulator) Threshold() int {
	return a.threshold
}

// Drain returns everything buffered so far and leaves the accumulator empty.
// Ownership of the returned slice moves to the caller, who should hand it
// back with Release once it is no longer referenced.
func (a *Accumulator) Drain() []byte {
	data := a.data
	a.data = nil
	return data
}

// Release returns a drained slice to the shared pool.
func (a *Accumulator) Release(data []byte) {
	a.pool.Put(data)
}

// Reset discards any buffered bytes.
func (a *Accumulator) Reset() {
	if a.data != nil {
		a.pool.Put(a.data)
		a.data = nil
	}
}
