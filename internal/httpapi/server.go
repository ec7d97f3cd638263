// Package httpapi exposes a Remote over HTTP: a JSON status endpoint, one
// POST endpoint per speaker command, a websocket stream of status changes
// and a small embedded web page.
package httpapi

import (
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chaz8081/z407ctl/internal/ble/protocol"
	"github.com/chaz8081/z407ctl/internal/remote"
)

//go:embed static
var staticFiles embed.FS

// Controller is the part of remote.Remote the HTTP layer needs.
type Controller interface {
	Status() remote.Status
	Send(a protocol.Action) error
	Watch(fn func(remote.Status))
}

// route binds a command to its path and success message.
type route struct {
	path    string
	action  protocol.Action
	message string
}

var routes = []route{
	{"/volume-up", protocol.ActionVolumeUp, "volume up"},
	{"/volume-down", protocol.ActionVolumeDown, "volume down"},
	{"/play-pause", protocol.ActionPlayPause, "toggled play/pause"},
	{"/input-bluetooth", protocol.ActionInputBluetooth, "switched to bluetooth"},
	{"/input-aux", protocol.ActionInputAux, "switched to aux"},
	{"/input-usb", protocol.ActionInputUSB, "switched to usb"},
	{"/bluetooth-pair", protocol.ActionBluetoothPair, "pairing mode"},
	{"/factory-reset", protocol.ActionFactoryReset, "factory reset"},
}

// StatusResponse is the body of GET /status and of every websocket message.
type StatusResponse struct {
	Status          string                 `json:"status"` // "connected" or "disconnected"
	Address         string                 `json:"address,omitempty"`
	ConnectionMode  remote.Mode            `json:"connection_mode"`
	BluetoothStatus remote.BluetoothStatus `json:"bluetooth_status"`
	Linked          bool                   `json:"linked"`
}

func newStatusResponse(st remote.Status) StatusResponse {
	resp := StatusResponse{
		Status:          "disconnected",
		Address:         st.Address,
		ConnectionMode:  st.Mode,
		BluetoothStatus: st.Bluetooth,
		Linked:          st.Linked,
	}
	if st.TransportConnected {
		resp.Status = "connected"
	}
	return resp
}

type messageResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Server routes HTTP requests to a Controller.
type Server struct {
	ctl    Controller
	hub    *Hub
	router chi.Router
}

// New builds the router and starts forwarding status changes to websocket
// clients.
func New(ctl Controller) *Server {
	s := &Server{
		ctl: ctl,
		hub: NewHub(),
	}
	ctl.Watch(func(st remote.Status) {
		s.hub.Broadcast(newStatusResponse(st))
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/status", s.handleStatus)
	for _, rt := range routes {
		r.Post(rt.path, s.commandHandler(rt))
	}
	r.Get("/ws", s.handleWebSocket)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("httpapi: embedded static dir missing: " + err.Error())
	}
	r.Handle("/*", http.FileServer(http.FS(static)))

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close disconnects all websocket clients.
func (s *Server) Close() {
	s.hub.CloseAll()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStatusResponse(s.ctl.Status()))
}

func (s *Server) commandHandler(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.ctl.Send(rt.action); err != nil {
			slog.Error("[HTTP] command failed", "action", rt.action, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Status: rt.message})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("[HTTP] write response", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("[HTTP] request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}
