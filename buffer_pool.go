package webserial

import (
	"sync"

	"go.uber.org/atomic"
)

// ReadBufferSize is the size of the buffer each read loop reads into.
const ReadBufferSize = 4096

// BufferPool manages reusable read buffers across connections.
type BufferPool struct {
	pool sync.Pool
	size int
	// Metrics for monitoring pool efficiency
	gets    atomic.Int64
	puts    atomic.Int64
	creates atomic.Int64
}

// NewBufferPool creates a buffer pool with fixed-size buffers
func NewBufferPool(bufferSize int) *BufferPool {
	bp := &BufferPool{
		size: bufferSize,
	}
	bp.pool = sync.Pool{
		New: func() any {
			bp.creates.Inc()
			buf := make([]byte, bufferSize)
			return &buf
		},
	}
	return bp
}

// Get retrieves a buffer from the pool
func (bp *BufferPool) Get() []byte {
	bp.gets.Inc()
	return *(bp.pool.Get().(*[]byte))
}

// Put returns a buffer to the pool (clears it first, it held port data)
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return // Don't pool incorrectly sized buffers
	}
	bp.puts.Inc()

	buf = buf[:bp.size]
	clear(buf)
	bp.pool.Put(&buf)
}

// Stats returns pool usage statistics
func (bp *BufferPool) Stats() PoolStats {
	return PoolStats{
		Size:    bp.size,
		Gets:    bp.gets.Load(),
		Puts:    bp.puts.Load(),
		Creates: bp.creates.Load(),
	}
}

// PoolStats contains buffer pool usage statistics
type PoolStats struct {
	Size    int   `json:"size"`    // Buffer size managed by this pool
	Gets    int64 `json:"gets"`    // Number of Get() calls
	Puts    int64 `json:"puts"`    // Number of Put() calls
	Creates int64 `json:"creates"` // Number of new buffers created
}

// Outstanding is the number of buffers taken and not yet returned.
func (ps PoolStats) Outstanding() int64 {
	return ps.Gets - ps.Puts
}
