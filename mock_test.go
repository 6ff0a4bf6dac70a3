package webserial

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

var errMockClosed = errors.New("mock: port closed")

type mockPort struct {
	readCh   chan []byte
	errCh    chan error
	eofCh    chan struct{}
	closedCh chan struct{}

	writeMu sync.Mutex
	writes  [][]byte
	// maxWrite, if > 0, caps how many bytes one Write accepts.
	maxWrite int
	writeErr error

	closeOnce sync.Once
	closeErr  error
	// closeGate, if set, holds Close until it is closed.
	closeGate chan struct{}
	closes    int
	mu        sync.Mutex
}

func newMockPort() *mockPort {
	return &mockPort{
		readCh:   make(chan []byte),
		errCh:    make(chan error, 1),
		eofCh:    make(chan struct{}),
		closedCh: make(chan struct{}),
	}
}

func (m *mockPort) Read(p []byte) (int, error) {
	select {
	case b := <-m.readCh:
		return copy(p, b), nil
	case err := <-m.errCh:
		return 0, err
	case <-m.eofCh:
		return 0, io.EOF
	case <-m.closedCh:
		return 0, errMockClosed
	}
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	n := len(p)
	if m.maxWrite > 0 && n > m.maxWrite {
		n = m.maxWrite
	}
	cp := make([]byte, n)
	copy(cp, p[:n])
	m.writes = append(m.writes, cp)
	return n, nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	m.closes++
	gate := m.closeGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	m.closeOnce.Do(func() { close(m.closedCh) })
	return m.closeErr
}

func (m *mockPort) written() string {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return string(out)
}

func (m *mockPort) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) states() []ConnectionState {
	var out []ConnectionState
	for _, ev := range r.all() {
		if st, ok := ev.(StatusChanged); ok {
			out = append(out, st.State)
		}
	}
	return out
}

func (r *recorder) notifications(level Level) []Notification {
	var out []Notification
	for _, ev := range r.all() {
		if n, ok := ev.(Notification); ok && n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) lastData() (DataUpdated, bool) {
	evs := r.all()
	for i := len(evs) - 1; i >= 0; i-- {
		if d, ok := evs[i].(DataUpdated); ok {
			return d, true
		}
	}
	return DataUpdated{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// newTestSession returns a session whose opener hands out mp.
func newTestSession(t *testing.T, mp *mockPort, opts ...Option) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	opener := func(name string, cfg PortConfig) (Transport, error) { return mp, nil }
	all := append([]Option{WithOpener(opener), WithObserver(rec)}, opts...)
	s := NewSession(all...)
	t.Cleanup(func() { _ = s.Close() })
	return s, rec
}

func connectTestSession(t *testing.T, s *Session) {
	t.Helper()
	cfg := PortConfig{BaudRate: Baud115200}
	if err := s.Connect(PortInfo{Name: "/dev/ttyUSB0"}, cfg); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

// feed delivers one chunk to the read loop and waits until it is processed.
// ChunksReceived is bumped after the buffers and the data event.
func feed(t *testing.T, s *Session, mp *mockPort, chunk []byte) {
	t.Helper()
	before := s.metrics.ChunksReceived.Load()
	select {
	case mp.readCh <- chunk:
	case <-time.After(time.Second):
		t.Fatalf("read loop did not take chunk %q", chunk)
	}
	waitFor(t, func() bool { return s.metrics.ChunksReceived.Load() > before }, "chunk processed")
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitState(t *testing.T, s *Session, want ConnectionState) {
	t.Helper()
	waitFor(t, func() bool { return s.State() == want }, "state "+want.String())
}
