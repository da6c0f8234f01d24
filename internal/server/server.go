package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pagedeck/pagedeck/internal/audit"
	"github.com/pagedeck/pagedeck/internal/site"
	"github.com/pagedeck/pagedeck/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "PageDeck"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// deckPrefix is the reserved route namespace for the dashboard and API.
	// Underscore-prefixed so it can never collide with a publishable site
	// path (the audit flags those).
	deckPrefix = "/_deck/"
)

// Config collects the server's construction parameters.
type Config struct {
	// SiteDir is the site tree to serve at "/".
	SiteDir string

	// Port is the TCP port to listen on.
	Port int

	// Assets is the embedded dashboard filesystem (may be nil).
	Assets fs.FS

	// Title is the dashboard title (defaults to "PageDeck" if empty).
	Title string

	// Markdown enables rendering .md files to HTML in the preview.
	Markdown bool

	// LiveReload enables the reload SSE event and script injection.
	LiveReload bool

	// Store holds check results for the status API and SSE.
	Store store.Store

	// Logger receives server events.
	Logger *slog.Logger
}

// Server handles HTTP requests for the site preview, the PageDeck
// dashboard, and the status API.
//
// Routes:
//   - GET /: the site tree, served the way the hosting provider would
//   - GET /_deck/: the embedded dashboard UI
//   - GET /_deck/api/status: current check results as JSON
//   - GET /_deck/api/site: inventory summary as JSON
//   - GET /_deck/api/audit: latest audit report as JSON
//   - GET /_deck/api/sse: Server-Sent Events stream (results + reload)
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server

	mu     sync.RWMutex
	inv    *site.Inventory
	report *audit.Report

	reloadMu   sync.Mutex
	reloadSubs map[chan struct{}]struct{}
}

// New creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called.
func New(cfg Config) *Server {
	return &Server{
		cfg:        cfg,
		logger:     cfg.Logger,
		reloadSubs: make(map[chan struct{}]struct{}),
	}
}

// SetInventory replaces the inventory served by the site API.
// Safe for concurrent use; the watcher calls this after every rescan.
func (s *Server) SetInventory(inv *site.Inventory) {
	s.mu.Lock()
	s.inv = inv
	s.mu.Unlock()
}

// SetReport replaces the audit report served by the audit API.
func (s *Server) SetReport(r *audit.Report) {
	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
}

// NotifyReload broadcasts a reload event to all connected SSE clients.
// Non-blocking; clients that have fallen behind merge events.
func (s *Server) NotifyReload() {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	for ch := range s.reloadSubs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// subscribeReload registers an SSE client for reload events.
func (s *Server) subscribeReload() chan struct{} {
	ch := make(chan struct{}, 1)
	s.reloadMu.Lock()
	s.reloadSubs[ch] = struct{}{}
	s.reloadMu.Unlock()
	return ch
}

// unsubscribeReload removes an SSE client.
func (s *Server) unsubscribeReload(ch chan struct{}) {
	s.reloadMu.Lock()
	delete(s.reloadSubs, ch)
	s.reloadMu.Unlock()
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// dashboard and API under the reserved namespace
	mux.HandleFunc(deckPrefix+"api/status", s.handleStatus)
	mux.HandleFunc(deckPrefix+"api/site", s.handleSite)
	mux.HandleFunc(deckPrefix+"api/audit", s.handleAudit)
	mux.HandleFunc(deckPrefix+"api/sse", s.handleSSE)
	mux.HandleFunc(deckPrefix, s.handleDashboard)

	// the site itself at root
	mux.HandleFunc("/", s.handleFile)

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the dashboard UI at /_deck/.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != deckPrefix {
		http.NotFound(w, r)
		return
	}

	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns all current check results as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results := s.cfg.Store.GetAll()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(results); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// siteSummary is the site API's JSON shape: the inventory without the
// per-page reference detail, which the dashboard does not need.
type siteSummary struct {
	Root       string      `json:"root"`
	Hash       string      `json:"hash"`
	Files      int         `json:"files"`
	TotalBytes int64       `json:"total_bytes"`
	ScannedAt  time.Time   `json:"scanned_at"`
	Pages      []pageEntry `json:"pages"`
}

type pageEntry struct {
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
	Size  int64  `json:"size"`
}

// handleSite returns the inventory summary as JSON.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	inv := s.inv
	s.mu.RUnlock()
	if inv == nil {
		http.Error(w, "Site not scanned", http.StatusServiceUnavailable)
		return
	}

	summary := siteSummary{
		Root:       inv.Root,
		Hash:       inv.Hash,
		Files:      len(inv.Assets),
		TotalBytes: inv.TotalBytes,
		ScannedAt:  inv.ScannedAt,
		Pages:      make([]pageEntry, 0, len(inv.Pages)),
	}
	for _, pg := range inv.Pages {
		summary.Pages = append(summary.Pages, pageEntry{Path: pg.Path, Title: pg.Title, Size: pg.Size})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		s.logger.Error("failed to encode site response", "error", err)
	}
}

// handleAudit returns the latest audit report as JSON.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()
	if report == nil {
		http.Error(w, "Audit not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("failed to encode audit response", "error", err)
	}
}

// handleSSE streams check results and reload events via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	// This is the Go 1.20+ idiomatic way to handle write timeouts.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	// writeEvent writes a named SSE event with a deadline to prevent blocking
	// forever. If the client is slow or disconnected, the write will timeout
	// rather than blocking indefinitely, allowing the handler to detect
	// shutdown signals.
	writeEvent := func(event string, data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe to check results and reload notifications
	ch := s.cfg.Store.Subscribe()
	defer s.cfg.Store.Unsubscribe(ch)
	reload := s.subscribeReload()
	defer s.unsubscribeReload(reload)

	// send initial results (also protected by write deadline)
	for _, result := range s.cfg.Store.GetAll() {
		data, err := json.Marshal(result)
		if err != nil {
			continue
		}
		if err := writeEvent("result", data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case result, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(result)
			if err != nil {
				continue
			}
			if err := writeEvent("result", data); err != nil {
				return
			}

		case <-reload:
			if err := writeEvent("reload", []byte("{}")); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
