package webserial

import (
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks lifetime statistics for a Session. Unlike the session's
// byte counter these are never reset by Clear.
type Metrics struct {
	// Connection Statistics
	ConnectionAttempts  atomic.Int64 // Total connection attempts
	SuccessfulConnects  atomic.Int64 // Successful connections
	ConnectionFailures  atomic.Int64 // Failed connections
	Disconnections      atomic.Int64 // Total disconnects, explicit or not
	TeardownErrors      atomic.Int64 // Close failures during disconnect
	LastConnectTime     atomic.Int64 // Unix timestamp of last connect
	LastDisconnectTime  atomic.Int64 // Unix timestamp of last disconnect
	TotalUptime         atomic.Int64 // Total connected time in nanoseconds
	ConnectionStartTime atomic.Int64 // When current connection started

	// Read Operations
	ChunksReceived atomic.Int64 // Non-empty reads
	BytesRead      atomic.Int64 // Total bytes read, paused or not
	BytesDiscarded atomic.Int64 // Bytes drained while paused
	HexChunks      atomic.Int64 // Chunks shown as hex
	ReadErrors     atomic.Int64 // Reads that ended a connection

	// Write Operations
	WriteOperations  atomic.Int64 // Total write attempts
	SuccessfulWrites atomic.Int64 // Successful writes
	WriteErrors      atomic.Int64 // Failed writes
	BytesWritten     atomic.Int64 // Total bytes written
	TotalWriteTime   atomic.Int64 // Total time spent writing (ns)
	MaxWriteTime     atomic.Int64 // Slowest write operation (ns)

	// Exports
	Exports atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics for presentation.
type MetricsSnapshot struct {
	Timestamp           time.Time     `json:"timestamp"`
	IsConnected         bool          `json:"isConnected"`
	ConnectionAttempts  int64         `json:"connectionAttempts"`
	ConnectionSuccess   float64       `json:"connectionSuccess"`
	Disconnections      int64         `json:"disconnections"`
	TeardownErrors      int64         `json:"teardownErrors"`
	UptimeSeconds       float64       `json:"uptimeSeconds"`
	TotalUptime         time.Duration `json:"totalUptime"`
	ChunksReceived      int64         `json:"chunksReceived"`
	BytesRead           int64         `json:"bytesRead"`
	BytesDiscarded      int64         `json:"bytesDiscarded"`
	HexChunks           int64         `json:"hexChunks"`
	ReadErrors          int64         `json:"readErrors"`
	WriteOperations     int64         `json:"writeOperations"`
	WriteSuccessRate    float64       `json:"writeSuccessRate"`
	BytesWritten        int64         `json:"bytesWritten"`
	AverageWriteLatency time.Duration `json:"averageWriteLatency"`
	MaxWriteLatency     time.Duration `json:"maxWriteLatency"`
	BytesPerSecond      float64       `json:"bytesPerSecond"`
	Exports             int64         `json:"exports"`
	ReadBuffers         PoolStats     `json:"readBuffers"`
}

func (m *Metrics) recordConnect(now time.Time) {
	m.SuccessfulConnects.Inc()
	m.LastConnectTime.Store(now.Unix())
	m.ConnectionStartTime.Store(now.UnixNano())
}

func (m *Metrics) recordDisconnect(now time.Time) {
	if start := m.ConnectionStartTime.Swap(0); start > 0 {
		m.TotalUptime.Add(now.UnixNano() - start)
	}
	m.Disconnections.Inc()
	m.LastDisconnectTime.Store(now.Unix())
}

func (m *Metrics) recordWrite(bytesWritten int, err error, duration time.Duration) {
	m.WriteOperations.Inc()
	m.TotalWriteTime.Add(duration.Nanoseconds())

	// Update max write time
	for {
		current := m.MaxWriteTime.Load()
		if duration.Nanoseconds() <= current {
			break
		}
		if m.MaxWriteTime.CompareAndSwap(current, duration.Nanoseconds()) {
			break
		}
	}

	m.BytesWritten.Add(int64(bytesWritten))
	if err != nil {
		m.WriteErrors.Inc()
	} else {
		m.SuccessfulWrites.Inc()
	}
}

func (m *Metrics) calculateConnectionSuccessRate() float64 {
	attempts := m.ConnectionAttempts.Load()
	if attempts == 0 {
		return 100.0
	}
	return float64(m.SuccessfulConnects.Load()) / float64(attempts) * 100
}

func (m *Metrics) calculateWriteSuccessRate() float64 {
	writes := m.WriteOperations.Load()
	if writes == 0 {
		return 100.0
	}
	return float64(m.SuccessfulWrites.Load()) / float64(writes) * 100
}

func (m *Metrics) calculateAverageWriteLatency() time.Duration {
	writes := m.WriteOperations.Load()
	if writes == 0 {
		return 0
	}
	return time.Duration(m.TotalWriteTime.Load() / writes)
}

func (m *Metrics) calculateUptime(now time.Time) time.Duration {
	start := m.ConnectionStartTime.Load()
	if start == 0 {
		return 0
	}
	if d := now.UnixNano() - start; d > 0 {
		return time.Duration(d)
	}
	return 0
}

func (m *Metrics) snapshot(now time.Time, connected bool) MetricsSnapshot {
	uptime := m.calculateUptime(now)
	s := MetricsSnapshot{
		Timestamp:           now,
		IsConnected:         connected,
		ConnectionAttempts:  m.ConnectionAttempts.Load(),
		ConnectionSuccess:   m.calculateConnectionSuccessRate(),
		Disconnections:      m.Disconnections.Load(),
		TeardownErrors:      m.TeardownErrors.Load(),
		UptimeSeconds:       uptime.Seconds(),
		TotalUptime:         time.Duration(m.TotalUptime.Load()) + uptime,
		ChunksReceived:      m.ChunksReceived.Load(),
		BytesRead:           m.BytesRead.Load(),
		BytesDiscarded:      m.BytesDiscarded.Load(),
		HexChunks:           m.HexChunks.Load(),
		ReadErrors:          m.ReadErrors.Load(),
		WriteOperations:     m.WriteOperations.Load(),
		WriteSuccessRate:    m.calculateWriteSuccessRate(),
		BytesWritten:        m.BytesWritten.Load(),
		AverageWriteLatency: m.calculateAverageWriteLatency(),
		MaxWriteLatency:     time.Duration(m.MaxWriteTime.Load()),
		Exports:             m.Exports.Load(),
	}
	if connected && uptime > 0 {
		s.BytesPerSecond = float64(s.BytesRead+s.BytesWritten) / uptime.Seconds()
	}
	return s
}
