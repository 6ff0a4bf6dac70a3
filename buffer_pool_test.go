package webserial

import (
	"fmt"
	"testing"
)

func TestBufferPool_GetPut(t *testing.T) {
	bp := NewBufferPool(64)

	buf := bp.Get()
	if len(buf) != 64 {
		t.Fatalf("expected 64 byte buffer, got %d", len(buf))
	}
	copy(buf, "secret port data")
	bp.Put(buf)

	stats := bp.Stats()
	if stats.Gets != 1 || stats.Puts != 1 || stats.Creates < 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Outstanding() != 0 {
		t.Fatalf("expected nothing outstanding, got %d", stats.Outstanding())
	}

	// Put clears the buffer before pooling it.
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}

func TestBufferPool_RejectsForeignBuffers(t *testing.T) {
	bp := NewBufferPool(64)

	bp.Put(make([]byte, 32))
	bp.Put(make([]byte, 10, 128))

	if stats := bp.Stats(); stats.Puts != 0 {
		t.Fatalf("incorrectly sized buffers were pooled: %+v", stats)
	}
}

func TestBufferPool_Outstanding(t *testing.T) {
	bp := NewBufferPool(16)

	a := bp.Get()
	b := bp.Get()
	if got := bp.Stats().Outstanding(); got != 2 {
		t.Fatalf("expected 2 outstanding, got %d", got)
	}
	bp.Put(a)
	bp.Put(b)
	if got := bp.Stats().Outstanding(); got != 0 {
		t.Fatalf("expected 0 outstanding, got %d", got)
	}
}

// BenchmarkGetPooledBuffer measures buffer pool allocation performance
func BenchmarkGetPooledBuffer(b *testing.B) {
	sizes := []int{256, 1024, ReadBufferSize}

	for _, size := range sizes {
		bp := NewBufferPool(size)
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf := bp.Get()
				bp.Put(buf)
			}
		})
	}
}

// BenchmarkDirectAllocation measures direct allocation performance for comparison
func BenchmarkDirectAllocation(b *testing.B) {
	sizes := []int{256, 1024, ReadBufferSize}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf := make([]byte, size)
				_ = buf
			}
		})
	}
}

// BenchmarkProcessChunk simulates a device streaming short text lines.
func BenchmarkProcessChunk(b *testing.B) {
	s := NewSession()
	chunk := []byte("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n")

	b.ReportAllocs()
	b.SetBytes(int64(len(chunk)))
	for i := 0; i < b.N; i++ {
		s.processChunk(chunk)
		if i%1000 == 999 {
			s.Clear()
		}
	}
}
