package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferPool(t *testing.T) {
	bp := NewBufferPool(1024)
	require.NotNil(t, bp)
	assert.NotNil(t, bp.pool)
	assert.Equal(t, 1024+SlackSize, bp.Size())
}

func TestBufferPool_Get(t *testing.T) {
	bp := NewBufferPool(1024)

	buf := bp.Get()
	require.NotNil(t, buf)
	assert.GreaterOrEqual(t, cap(buf), 1024+SlackSize)
	assert.Equal(t, 0, len(buf))

	// Use the buffer
	buf = append(buf, []byte("test data")...)
	assert.Equal(t, 9, len(buf))

	// Return to pool
	bp.Put(buf)
}

func TestBufferPool_ReuseResetsLength(t *testing.T) {
	bp := NewBufferPool(16)

	buf := bp.Get()
	buf = append(buf, []byte("some data here")...)
	bp.Put(buf)

	again := bp.Get()
	assert.Equal(t, 0, len(again))
}

func TestBufferPool_PutIgnoresForeignBuffers(t *testing.T) {
	bp := NewBufferPool(16)

	tests := []struct {
		name string
		buf  []byte
	}{
		{name: "too small", buf: make([]byte, 0, 8)},
		{name: "too large", buf: make([]byte, 0, 4*bp.Size())},
		{name: "nil", buf: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { bp.Put(tt.buf) })
		})
	}
}

func TestForPartSize_SharesPools(t *testing.T) {
	a := ForPartSize(4096)
	b := ForPartSize(4096)
	c := ForPartSize(8192)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func BenchmarkBufferPool_GetPut(b *testing.B) {
	bp := NewBufferPool(5 * 1024 * 1024)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		buf := bp.Get()
		buf = append(buf, 1)
		bp.Put(buf)
	}
}
