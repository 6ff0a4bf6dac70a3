package webserial

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// ----- Core Metrics Tests -----

func TestMetrics_EmptySnapshot(t *testing.T) {
	var m Metrics
	snap := m.snapshot(time.Now(), false)

	if snap.ConnectionSuccess != 100 || snap.WriteSuccessRate != 100 {
		t.Fatalf("rates without attempts should be 100, got %+v", snap)
	}
	if snap.AverageWriteLatency != 0 || snap.UptimeSeconds != 0 || snap.BytesPerSecond != 0 {
		t.Fatalf("expected zero timings, got %+v", snap)
	}
}

func TestMetrics_ConnectDisconnectUptime(t *testing.T) {
	var m Metrics
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	m.ConnectionAttempts.Inc()
	m.recordConnect(start)

	snap := m.snapshot(start.Add(3*time.Second), true)
	if snap.UptimeSeconds != 3 {
		t.Fatalf("expected 3s uptime, got %v", snap.UptimeSeconds)
	}
	if snap.TotalUptime != 3*time.Second {
		t.Fatalf("expected running uptime in total, got %v", snap.TotalUptime)
	}

	m.recordDisconnect(start.Add(5 * time.Second))
	snap = m.snapshot(start.Add(time.Minute), false)
	if snap.UptimeSeconds != 0 {
		t.Fatalf("uptime should stop at disconnect, got %v", snap.UptimeSeconds)
	}
	if snap.TotalUptime != 5*time.Second {
		t.Fatalf("expected 5s total uptime, got %v", snap.TotalUptime)
	}
	if snap.Disconnections != 1 || snap.ConnectionSuccess != 100 {
		t.Fatalf("unexpected connection stats %+v", snap)
	}

	// A second disconnect without a connect adds no uptime.
	m.recordDisconnect(start.Add(10 * time.Second))
	if got := m.snapshot(start.Add(time.Minute), false).TotalUptime; got != 5*time.Second {
		t.Fatalf("expected total uptime unchanged, got %v", got)
	}
}

func TestMetrics_Writes(t *testing.T) {
	var m Metrics

	m.recordWrite(10, nil, 2*time.Millisecond)
	m.recordWrite(3, errors.New("boom"), 6*time.Millisecond)

	snap := m.snapshot(time.Now(), false)
	if snap.WriteOperations != 2 || snap.BytesWritten != 13 {
		t.Fatalf("unexpected write counters %+v", snap)
	}
	if snap.WriteSuccessRate != 50 {
		t.Fatalf("expected 50%% write success, got %v", snap.WriteSuccessRate)
	}
	if snap.AverageWriteLatency != 4*time.Millisecond {
		t.Fatalf("expected 4ms average, got %v", snap.AverageWriteLatency)
	}
	if snap.MaxWriteLatency != 6*time.Millisecond {
		t.Fatalf("expected 6ms max, got %v", snap.MaxWriteLatency)
	}
}

func TestMetrics_ConcurrentWrites(t *testing.T) {
	var m Metrics
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.recordWrite(1, nil, time.Duration(i)*time.Microsecond)
		}(i)
	}
	wg.Wait()

	snap := m.snapshot(time.Now(), false)
	if snap.WriteOperations != 50 || snap.BytesWritten != 50 {
		t.Fatalf("lost updates: %+v", snap)
	}
	if snap.MaxWriteLatency != 50*time.Microsecond {
		t.Fatalf("expected 50us max, got %v", snap.MaxWriteLatency)
	}
}

func TestMetrics_SessionIntegration(t *testing.T) {
	mp := newMockPort()
	s, _ := newTestSession(t, mp)
	connectTestSession(t, s)

	feed(t, s, mp, []byte("hello"))
	feed(t, s, mp, []byte{0xFE, 0xFF})
	if err := s.Send(t.Context(), "x"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	snap := s.Metrics()
	if !snap.IsConnected {
		t.Fatalf("expected connected in metrics")
	}
	if snap.ChunksReceived != 2 || snap.BytesRead != 7 || snap.HexChunks != 1 {
		t.Fatalf("unexpected read metrics %+v", snap)
	}
	if snap.BytesWritten != 2 {
		t.Fatalf("expected 2 bytes written, got %d", snap.BytesWritten)
	}
	if snap.ReadBuffers.Outstanding() != 1 {
		t.Fatalf("expected the read loop to hold one buffer, got %+v", snap.ReadBuffers)
	}

	// Clear resets the session counter but not lifetime metrics.
	s.Clear()
	if s.BytesReceived() != 0 || s.Metrics().BytesRead != 7 {
		t.Fatalf("clear should only reset the session counter")
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	snap = s.Metrics()
	if snap.IsConnected || snap.Disconnections != 1 || snap.ReadBuffers.Outstanding() != 0 {
		t.Fatalf("unexpected metrics after disconnect %+v", snap)
	}
}
