package main

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Station-Manager/webserial"
)

// linePort reads until its stream is ended and records writes.
type linePort struct {
	end  chan struct{}
	once sync.Once

	mu      sync.Mutex
	written []byte
}

func newLinePort() *linePort { return &linePort{end: make(chan struct{})} }

func (p *linePort) Read([]byte) (int, error) {
	<-p.end
	return 0, io.EOF
}

func (p *linePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *linePort) Close() error {
	p.once.Do(func() { close(p.end) })
	return nil
}

func (p *linePort) sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

func newConnectedSession(t *testing.T, port *linePort, opts ...webserial.Option) *webserial.Session {
	t.Helper()
	opener := func(string, webserial.PortConfig) (webserial.Transport, error) { return port, nil }
	s := webserial.NewSession(append([]webserial.Option{webserial.WithOpener(opener)}, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Connect(webserial.PortInfo{Name: "/dev/ttyUSB0"}, webserial.PortConfig{BaudRate: webserial.Baud9600}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return s
}

func TestStopOnDisconnect_EndOfStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := newLinePort()
	newConnectedSession(t, port, webserial.WithObserver(stopOnDisconnect(cancel)))
	if ctx.Err() != nil {
		t.Fatalf("cancelled while still connected")
	}

	// the device goes away without any stdin input
	_ = port.Close()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("console loop not stopped after the stream ended")
	}
}

func TestRunCommand(t *testing.T) {
	port := newLinePort()
	s := newConnectedSession(t, port)
	ctx := context.Background()
	dl := webserial.DirDownloader{Dir: t.TempDir()}

	if !runCommand(ctx, s, dl, "AT") {
		t.Fatalf("send should keep the loop running")
	}
	if port.sent() != "AT\n" {
		t.Fatalf("unexpected bytes sent %q", port.sent())
	}

	runCommand(ctx, s, dl, ":pause")
	if !s.Paused() {
		t.Fatalf(":pause did not pause")
	}

	if runCommand(ctx, s, dl, ":quit") {
		t.Fatalf(":quit should stop the loop")
	}
}
