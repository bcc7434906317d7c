package pool

import (
	"sync"
)

const (
	// SlackSize is extra capacity reserved beyond the part size so the write
	// that crosses the threshold usually fits without reallocation.
	SlackSize = 64 * 1024
)

// BufferPool manages reusable part buffers of a single size class.
type BufferPool struct {
	size int
	pool *sync.Pool
}

// NewBufferPool creates a pool whose buffers hold partSize bytes plus slack.
func NewBufferPool(partSize int) *BufferPool {
	capacity := partSize + SlackSize
	return &BufferPool{
		size: capacity,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 0, capacity)
				return &buf
			},
		},
	}
}

// Size returns the capacity of pooled buffers.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns an empty buffer with at least the pool's capacity.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	// Reset length to 0 but keep capacity
	*bufPtr = (*bufPtr)[:0]
	return *bufPtr
}

// Put returns a buffer to the pool.
// Buffers that grew past twice the pooled capacity are dropped to avoid memory bloat.
// The buffer should not be used after calling Put.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) < bp.size || cap(buf) > 2*bp.size {
		return
	}
	buf = buf[:0]
	bp.pool.Put(&buf)
}

var (
	poolsMu sync.Mutex
	pools   = make(map[int]*BufferPool)
)

// ForPartSize returns the shared pool for the given part size, creating it on first use.
func ForPartSize(partSize int) *BufferPool {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	if bp, ok := pools[partSize]; ok {
		return bp
	}
	bp := NewBufferPool(partSize)
	pools[partSize] = bp
	return bp
}
