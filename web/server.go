// Package web serves the serial terminal page and exposes a Session over a
// JSON API and a Server-Sent Events stream.
package web

import (
	"context"
	_ "embed"
	"html/template"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Station-Manager/webserial"
)

//go:embed static/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const (
	subscriberBuffer  = 64
	keepAliveInterval = 15 * time.Second
)

// Server is the presentation and download collaborator of a Session.
type Server struct {
	session  *webserial.Session
	logger   zerolog.Logger
	defaults webserial.PortConfig
	hub      *hub
	mux      *http.ServeMux

	listPorts   func() ([]webserial.PortInfo, error)
	requestPort func(name string) (webserial.PortInfo, error)
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithDefaults sets the line settings pre-selected in the page.
func WithDefaults(cfg webserial.PortConfig) Option {
	return func(s *Server) { s.defaults = cfg }
}

// WithPortFuncs replaces port discovery, e.g. in tests.
func WithPortFuncs(list func() ([]webserial.PortInfo, error), request func(string) (webserial.PortInfo, error)) Option {
	return func(s *Server) {
		s.listPorts = list
		s.requestPort = request
	}
}

// New creates a Server for session and subscribes it to the session's
// events.
func New(session *webserial.Session, opts ...Option) *Server {
	s := &Server{
		session:     session,
		logger:      zerolog.Nop(),
		defaults:    webserial.DefaultPortConfig(),
		hub:         newHub(),
		mux:         http.NewServeMux(),
		listPorts:   webserial.ListKnownPorts,
		requestPort: webserial.RequestPort,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	session.AddObserver(s)
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/ports", s.handlePorts)
	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	s.mux.HandleFunc("POST /api/connect", s.handleConnect)
	s.mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("POST /api/send", s.handleSend)
	s.mux.HandleFunc("POST /api/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/clear", s.handleClear)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
}

// Handler returns the HTTP handler serving the page and the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close ends all event streams so that an http.Server can shut down.
func (s *Server) Close() {
	s.hub.close()
}

// OnEvent forwards session events to every event stream.
func (s *Server) OnEvent(_ context.Context, ev webserial.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(ev.Kind())).Msg("encoding event")
		return
	}
	s.hub.publish(frame{event: string(ev.Kind()), data: data})
}

type pageData struct {
	BaudRates []webserial.BaudRate
	DataBits  []webserial.DataBits
	StopBits  []webserial.StopBits
	Parities  []webserial.Parity
	Defaults  webserial.PortConfig
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		BaudRates: webserial.StandardBaudRates,
		DataBits:  []webserial.DataBits{webserial.DataBits7, webserial.DataBits8},
		StopBits:  []webserial.StopBits{webserial.StopBits1, webserial.StopBits2},
		Parities:  []webserial.Parity{webserial.ParityNone, webserial.ParityEven, webserial.ParityOdd},
		Defaults:  s.defaults,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("rendering page")
	}
}
