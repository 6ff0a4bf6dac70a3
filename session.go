package webserial

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// connection is everything owned by one successful Connect.
type connection struct {
	id        string
	port      PortInfo
	cfg       PortConfig
	transport Transport

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the read loop has released its buffer
}

// Session is a single serial terminal session: one port at a time, a read
// loop while connected, a bounded display buffer and an unbounded export
// buffer. All methods are safe for concurrent use.
type Session struct {
	logger  zerolog.Logger
	opener  Opener
	printer *message.Printer
	now     func() time.Time

	// lifeMu serializes Connect and Disconnect.
	lifeMu sync.Mutex
	// writeMu keeps concurrent sends from interleaving on the wire.
	writeMu sync.Mutex

	mu            sync.Mutex
	state         ConnectionState
	conn          *connection
	display       *displayBuffer
	export        bytes.Buffer
	bytesReceived int64

	paused atomic.Bool

	obsMu     sync.RWMutex
	observers []Observer

	readBuffers *BufferPool
	metrics     Metrics
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithOpener replaces the go.bug.st opener, e.g. with a fake transport.
func WithOpener(o Opener) Option {
	return func(s *Session) { s.opener = o }
}

// WithLanguage selects the language of notification texts.
func WithLanguage(tag language.Tag) Option {
	return func(s *Session) { s.printer = message.NewPrinter(tag) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDisplayLimit overrides DisplayBufferLimit.
func WithDisplayLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.display = newDisplayBuffer(n)
		}
	}
}

// NewSession returns a disconnected session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:      zerolog.Nop(),
		opener:      OpenSerial,
		printer:     message.NewPrinter(language.AmericanEnglish),
		now:         time.Now,
		display:     newDisplayBuffer(DisplayBufferLimit),
		readBuffers: NewBufferPool(ReadBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddObserver registers o for all subsequent events. Observers must not call
// Connect or Disconnect synchronously from OnEvent.
func (s *Session) AddObserver(o Observer) {
	if o == nil {
		return
	}
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// Connect opens port with cfg and starts reading from it. Zero DataBits,
// StopBits and Parity take the 8N1 defaults.
func (s *Session) Connect(port PortInfo, cfg PortConfig) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.metrics.ConnectionAttempts.Inc()

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateDisconnected {
		return s.connectFailed(port, ErrAlreadyConnected, false)
	}

	if port.Name == "" {
		return s.connectFailed(port, fmt.Errorf("%w: empty", ErrInvalidPortName), false)
	}
	cfg = cfg.withDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return s.connectFailed(port, err, false)
	}

	s.mu.Lock()
	s.state = StateConnecting
	status := s.statusLocked(s.printer.Sprintf(msgConnecting, port.Name), port.Name, "")
	s.mu.Unlock()
	s.emit(status)

	transport, err := s.opener(port.Name, cfg)
	if err != nil {
		return s.connectFailed(port, err, true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		id:        uuid.NewString(),
		port:      port,
		cfg:       cfg,
		transport: transport,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	msg := s.printer.Sprintf(msgConnected, port.Name, cfg.BaudRate.Int())
	s.mu.Lock()
	s.conn = c
	s.state = StateConnected
	status = s.statusLocked(msg, port.Name, c.id)
	s.mu.Unlock()
	s.metrics.recordConnect(s.now())

	s.logger.Info().
		Str("port", port.Name).
		Str("connection_id", c.id).
		Int("baud", cfg.BaudRate.Int()).
		Int("data_bits", cfg.DataBits.Int()).
		Int("stop_bits", int(cfg.StopBits)).
		Str("parity", string(cfg.Parity)).
		Msg("port opened")

	s.emit(status)
	s.emit(s.notification(LevelSuccess, msg))

	go s.readLoop(c)
	return nil
}

// connectFailed records a failed Connect. When fromConnecting is set the
// session is moved back to Disconnected; nothing else from the attempt is
// kept.
func (s *Session) connectFailed(port PortInfo, cause error, fromConnecting bool) error {
	s.metrics.ConnectionFailures.Inc()
	err := &ConnectionError{Port: port.Name, Err: cause}
	s.logger.Warn().Err(cause).Str("port", port.Name).Msg("connect failed")

	msg := s.printer.Sprintf(msgConnectFailed, cause)
	if fromConnecting {
		s.mu.Lock()
		s.state = StateDisconnected
		status := s.statusLocked(msg, "", "")
		s.mu.Unlock()
		s.emit(status)
	}
	s.emit(s.notification(LevelError, msg))
	return err
}

// Disconnect stops the read loop and closes the port. It is a no-op when the
// session is not connected. A failure to close the port is returned and
// reported but the session still ends up Disconnected.
func (s *Session) Disconnect() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	c := s.conn
	if s.state != StateConnected || c == nil {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnecting
	status := s.statusLocked(s.printer.Sprintf(msgDisconnecting, c.port.Name), c.port.Name, c.id)
	s.mu.Unlock()
	s.emit(status)

	err := s.teardown(c, true)

	msg := s.printer.Sprintf(msgDisconnected, c.port.Name)
	s.mu.Lock()
	s.conn = nil
	s.state = StateDisconnected
	status = s.statusLocked(msg, "", "")
	s.mu.Unlock()
	s.emit(status)

	if err != nil {
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgDisconnectError, err)))
		return err
	}
	s.emit(s.notification(LevelInfo, msg))
	return nil
}

// teardown cancels the read loop and closes the transport. When wait is set
// and the close succeeded it blocks until the loop has exited; a failed close
// may not unblock the pending read, so the loop is then left to finish on
// its own.
func (s *Session) teardown(c *connection, wait bool) error {
	c.cancel()
	err := c.transport.Close()
	s.metrics.recordDisconnect(s.now())

	if err != nil {
		s.metrics.TeardownErrors.Inc()
		s.logger.Error().
			Err(err).
			Str("port", c.port.Name).
			Str("connection_id", c.id).
			Msg("closing port failed, handle may leak")
		return fmt.Errorf("closing port %s: %w", c.port.Name, err)
	}
	if wait {
		<-c.done
	}
	s.logger.Info().Str("port", c.port.Name).Str("connection_id", c.id).Msg("port closed")
	return nil
}

// Close releases the port if one is open. The session remains usable.
func (s *Session) Close() error {
	return s.Disconnect()
}

// Send writes text followed by a newline. Concurrent sends are serialized.
// Nothing is retried and nothing is kept on failure.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	c := s.conn
	connected := s.state == StateConnected && c != nil
	s.mu.Unlock()

	if !connected {
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgNotConnected)))
		return ErrNotConnected
	}
	if text == "" {
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgEmptyInput)))
		return ErrEmptyInput
	}

	data := []byte(text + "\n")

	s.writeMu.Lock()
	start := time.Now()
	written, err := writeAll(ctx, c.transport, data)
	s.metrics.recordWrite(written, err, time.Since(start))
	s.writeMu.Unlock()

	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("connection_id", c.id).
			Int("written", written).
			Int("size", len(data)).
			Msg("send failed")
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgSendFailed, err)))
		return &WriteError{Written: written, Err: err}
	}

	s.logger.Debug().Str("connection_id", c.id).Int("size", len(data)).Msg("sent")
	s.emit(s.notification(LevelSuccess, s.printer.Sprintf(msgSent, text)))
	return nil
}

func writeAll(ctx context.Context, w Transport, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, err := w.Write(data[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			// Prevent infinite loop if Write returns 0
			return written, ErrShortWrite
		}
	}
	return written, nil
}

// TogglePause flips the pause flag and returns the new value. The read loop
// keeps draining and counting bytes while paused.
func (s *Session) TogglePause() bool {
	s.mu.Lock()
	paused := !s.paused.Toggle()
	key, level := msgResumed, LevelSuccess
	if paused {
		key, level = msgPaused, LevelInfo
	}
	msg := s.printer.Sprintf(key)
	var portName, id string
	if s.conn != nil {
		portName, id = s.conn.port.Name, s.conn.id
	}
	status := s.statusLocked(msg, portName, id)
	s.mu.Unlock()

	s.emit(status)
	s.emit(s.notification(level, msg))
	return paused
}

// Clear empties both buffers and zeroes the byte counter. The connection is
// not touched.
func (s *Session) Clear() {
	s.mu.Lock()
	s.display.Reset()
	s.export.Reset()
	s.bytesReceived = 0
	s.mu.Unlock()

	s.emit(DataUpdated{})
	s.emit(s.notification(LevelInfo, s.printer.Sprintf(msgCleared)))
}

// Export returns the export buffer and a timestamped file name without
// changing the session.
func (s *Session) Export() (Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.export.Len() == 0 {
		return Export{}, ErrNoData
	}
	return Export{
		Data:     bytes.Clone(s.export.Bytes()),
		Filename: ExportFilename(s.now()),
	}, nil
}

// ExportToFile hands the export to dl.
func (s *Session) ExportToFile(ctx context.Context, dl Downloader) error {
	exp, err := s.Export()
	if err != nil {
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgNoData)))
		return err
	}
	if err = dl.Download(ctx, exp.Data, exp.Filename); err != nil {
		s.logger.Warn().Err(err).Str("file", exp.Filename).Msg("export failed")
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgSaveFailed, err)))
		return fmt.Errorf("saving %s: %w", exp.Filename, err)
	}
	s.metrics.Exports.Inc()
	s.logger.Info().Str("file", exp.Filename).Int("size", len(exp.Data)).Msg("exported")
	s.emit(s.notification(LevelSuccess, s.printer.Sprintf(msgSaved, exp.Filename)))
	return nil
}

// SessionSnapshot is the session state a newly attached presentation needs.
type SessionSnapshot struct {
	State         ConnectionState `json:"state"`
	Paused        bool            `json:"paused"`
	Port          *PortInfo       `json:"port,omitempty"`
	Config        *PortConfig     `json:"config,omitempty"`
	ConnectionID  string          `json:"connectionId,omitempty"`
	DisplayText   string          `json:"displayText"`
	BytesReceived int64           `json:"bytesReceived"`
	ExportSize    int             `json:"exportSize"`
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		State:         s.state,
		Paused:        s.paused.Load(),
		DisplayText:   s.display.String(),
		BytesReceived: s.bytesReceived,
		ExportSize:    s.export.Len(),
	}
	if c := s.conn; c != nil {
		port, cfg := c.port, c.cfg
		snap.Port = &port
		snap.Config = &cfg
		snap.ConnectionID = c.id
	}
	return snap
}

func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Paused() bool {
	return s.paused.Load()
}

// BytesReceived is the raw byte count since the last Clear.
func (s *Session) BytesReceived() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesReceived
}

func (s *Session) DisplayText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display.String()
}

// Metrics returns lifetime statistics.
func (s *Session) Metrics() MetricsSnapshot {
	snap := s.metrics.snapshot(s.now(), s.State() == StateConnected)
	snap.ReadBuffers = s.readBuffers.Stats()
	return snap
}

func (s *Session) statusLocked(msg, portName, connID string) StatusChanged {
	return StatusChanged{
		State:        s.state,
		Message:      msg,
		Paused:       s.paused.Load(),
		Port:         portName,
		ConnectionID: connID,
		Time:         s.now(),
	}
}

func (s *Session) notification(level Level, msg string) Notification {
	return Notification{Message: msg, Level: level, Time: s.now()}
}

func (s *Session) emit(ev Event) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	ctx := context.Background()
	for _, o := range observers {
		o.OnEvent(ctx, ev)
	}
}
