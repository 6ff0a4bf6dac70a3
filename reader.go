package webserial

import (
	"errors"
	"io"
)

// readLoop drains c's transport until end of stream, a read error, or
// Disconnect. It is the only reader of the transport.
func (s *Session) readLoop(c *connection) {
	buf := s.readBuffers.Get()
	defer func() {
		s.readBuffers.Put(buf)
		close(c.done)
	}()

	log := s.logger.With().Str("connection_id", c.id).Logger()
	log.Debug().Msg("read loop started")

	for {
		n, err := c.transport.Read(buf)
		if c.ctx.Err() != nil {
			// Disconnect owns the teardown; whatever the last read returned
			// belongs to a closed session.
			log.Debug().Msg("read loop cancelled")
			return
		}
		if n > 0 {
			s.processChunk(buf[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			log.Info().Msg("end of stream")
			s.endConnection(c, nil)
			return
		}
		s.metrics.ReadErrors.Inc()
		log.Error().Err(err).Msg("read failed")
		s.endConnection(c, &ReadError{Err: err})
		return
	}
}

// processChunk counts chunk and, unless paused, appends its text to both
// buffers. Metrics are bumped last so that a reader of ChunksReceived also
// sees the buffers and the emitted event.
func (s *Session) processChunk(chunk []byte) {
	text, isHex := decodeChunk(chunk)

	s.mu.Lock()
	s.bytesReceived += int64(len(chunk))
	paused := s.paused.Load()
	var appended string
	if !paused {
		s.export.WriteString(text)
		s.display.Append(text)
		appended = text
	}
	ev := DataUpdated{
		DisplayText:   s.display.String(),
		Appended:      appended,
		BytesReceived: s.bytesReceived,
	}
	s.mu.Unlock()

	s.emit(ev)

	s.metrics.BytesRead.Add(int64(len(chunk)))
	if paused {
		s.metrics.BytesDiscarded.Add(int64(len(chunk)))
	}
	if isHex {
		s.metrics.HexChunks.Inc()
	}
	s.metrics.ChunksReceived.Inc()
}

// endConnection moves a connection that stopped on its own straight to
// Disconnected. It does nothing if Disconnect already took over.
//
// The connection is detached under the lock and closed outside it; the
// state stays Connected until the port is released, so a Connect cannot
// race the close and a Disconnect in between finds nothing to do.
func (s *Session) endConnection(c *connection, cause error) {
	s.mu.Lock()
	if s.conn != c || s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()

	closeErr := s.teardown(c, false)

	var msg string
	if cause != nil {
		msg = s.printer.Sprintf(msgReadFailed, cause)
	} else {
		msg = s.printer.Sprintf(msgStreamEnded, c.port.Name)
	}

	s.mu.Lock()
	s.state = StateDisconnected
	status := s.statusLocked(msg, "", "")
	s.mu.Unlock()

	s.emit(status)
	if cause != nil {
		s.emit(s.notification(LevelError, msg))
	} else {
		s.emit(s.notification(LevelInfo, msg))
	}
	if closeErr != nil {
		s.emit(s.notification(LevelError, s.printer.Sprintf(msgDisconnectError, closeErr)))
	}
}
