// Package web provides an HTTP status server for the switch-sensor daemon.
package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/switch-sensor/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Switch status headers, set on every status response so a HEAD request is
// enough for a health check.
const (
	headerState      = "X-Switch-State"
	headerReady      = "X-Switch-Ready"
	headerReadErrors = "X-Read-Errors"
)

// statusSnapshot rejects anything but GET and HEAD, then takes a snapshot and
// writes the status headers. It reports false if the request was answered.
func (s *Server) statusSnapshot(w http.ResponseWriter, r *http.Request) (status.Snapshot, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return status.Snapshot{}, false
	}

	snap := s.tracker.Snapshot()
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	h := w.Header()
	h.Set(headerState, state)
	h.Set(headerReady, strconv.FormatBool(snap.Ready))
	h.Set(headerReadErrors, strconv.Itoa(snap.ReadErrors))
	h.Set("Cache-Control", "no-store")
	return snap, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap, ok := s.statusSnapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.statusSnapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(status.FormatJSON(snap)); err != nil {
		log.Printf("web: write status: %v", err)
	}
}
