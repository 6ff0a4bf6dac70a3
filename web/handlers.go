package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/Station-Manager/webserial"
)

const maxRequestBody = 64 * 1024

type errorResponse struct {
	Error string `json:"error"`
}

type connectRequest struct {
	Port string `json:"port"`
	webserial.PortConfig
}

type sendRequest struct {
	Text string `json:"text"`
}

type pauseResponse struct {
	Paused bool `json:"paused"`
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.listPorts()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ports == nil {
		ports = []webserial.PortInfo{}
	}
	s.writeJSON(w, http.StatusOK, ports)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Metrics())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.reportError(err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	port, err := s.requestPort(req.Port)
	if err != nil {
		// the session never sees this attempt
		s.reportError(err)
		s.writeError(w, err)
		return
	}
	if err = s.session.Connect(port, req.PortConfig); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	// The session is Disconnected even when closing the port failed; the
	// failure has already been pushed as a notification.
	if err := s.session.Disconnect(); err != nil {
		s.logger.Warn().Err(err).Msg("disconnect")
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.reportError(err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.session.Send(r.Context(), req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, pauseResponse{Paused: s.session.TogglePause()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// attachment is the download collaborator for a browser: the export is sent
// as the response body with a file name.
type attachment struct {
	w http.ResponseWriter
}

func (a attachment) Download(_ context.Context, data []byte, filename string) error {
	h := a.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	a.w.WriteHeader(http.StatusOK)
	_, err := a.w.Write(data)
	return err
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ExportToFile(r.Context(), attachment{w: w}); err != nil {
		if errors.Is(err, webserial.ErrNoData) {
			s.writeError(w, err)
			return
		}
		// Headers are already out; only log.
		s.logger.Warn().Err(err).Msg("export")
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	frames, unsubscribe := s.hub.subscribe(subscriberBuffer)
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snap, err := json.Marshal(s.session.Snapshot())
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding snapshot")
		return
	}
	if err = writeFrame(w, frame{event: "snapshot", data: snap}); err != nil {
		return
	}
	flusher.Flush()

	s.logger.Debug().Str("remote", r.RemoteAddr).Msg("event stream opened")
	defer s.logger.Debug().Str("remote", r.RemoteAddr).Msg("event stream closed")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFrame(w, f); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeFrame writes f in text/event-stream format. JSON never contains a raw
// newline, so the payload is a single data line.
func writeFrame(w io.Writer, f frame) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.event, f.data)
	return err
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// reportError pushes a failure that happened before the session was
// involved to every event stream, the way session notifications are.
func (s *Server) reportError(err error) {
	s.logger.Debug().Err(err).Msg("request rejected")
	s.OnEvent(context.Background(), webserial.Notification{
		Message: err.Error(),
		Level:   webserial.LevelError,
		Time:    time.Now(),
	})
}

func statusFor(err error) int {
	var connErr *webserial.ConnectionError
	var writeErr *webserial.WriteError
	switch {
	case errors.Is(err, webserial.ErrAlreadyConnected), errors.Is(err, webserial.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, webserial.ErrEmptyInput),
		errors.Is(err, webserial.ErrInvalidConfig),
		errors.Is(err, webserial.ErrInvalidPortName):
		return http.StatusBadRequest
	case errors.Is(err, webserial.ErrPortNotFound), errors.Is(err, webserial.ErrNoData):
		return http.StatusNotFound
	case errors.As(err, &connErr), errors.As(err, &writeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
