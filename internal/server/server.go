package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/sections"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
)

// Surface is a loaded document that can be measured and exported, then closed.
type Surface interface {
	export.Surface
	Close()
}

// SurfaceFactory loads rendered HTML into a measurable surface.
type SurfaceFactory func(ctx context.Context, html string) (Surface, error)

// Server represents the HTTP preview server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       *sections.Store
	renderer    rendering.Renderer
	renderOpts  rendering.Options
	openSurface SurfaceFactory
	assembler   *export.Assembler
	debouncer   *pagination.Debouncer
	rateLimiter *ratelimit.Limiter
	persist     func(map[string]string) error
	verbose     bool

	mu          sync.Mutex
	estimate    pagination.Estimate
	revision    int
	exports     map[uuid.UUID]*export.Result
	subscribers map[chan event]struct{}
}

// Config holds server configuration
type Config struct {
	Port          int
	Form          map[string]string
	Renderer      rendering.Renderer
	RenderOptions rendering.Options
	Export        export.Options
	Debounce      time.Duration
	OpenSurface   SurfaceFactory
	// RateLimit nil disables rate limiting.
	RateLimit *ratelimit.Config
	// Persist, when set, receives the form data after every change.
	Persist func(map[string]string) error
	Verbose bool
}

// event is one message fanned out to /events subscribers.
type event struct {
	Name string
	Data any
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.OpenSurface == nil {
		return nil, fmt.Errorf("server requires a surface factory")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = rendering.HTMLRenderer{}
	}

	s := &Server{
		store:       sections.New(cfg.Form),
		renderer:    cfg.Renderer,
		renderOpts:  cfg.RenderOptions,
		openSurface: cfg.OpenSurface,
		assembler:   export.NewAssembler(cfg.Export),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		persist:     cfg.Persist,
		verbose:     cfg.Verbose,
		estimate:    pagination.FromHeight(0),
		exports:     make(map[uuid.UUID]*export.Result),
		subscribers: make(map[chan event]struct{}),
	}
	s.store.SetVerbose(cfg.Verbose)

	s.debouncer = pagination.NewDebouncer(cfg.Debounce, func() {
		s.remeasure(context.Background())
	})
	s.store.OnChange(s.onChange)

	s.assembler.OnTransition(func(from, to export.State) {
		s.broadcast("export_state", map[string]string{"from": from.String(), "to": to.String()})
	})
	s.assembler.OnProgress(func(done, total int) {
		s.broadcast("export_progress", map[string]int{"page": done, "total": total})
	})

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /form", s.handleGetForm)
	mux.HandleFunc("PUT /form", s.handlePutForm)

	mux.HandleFunc("GET /sections/{kind}", s.handleListRecords)
	mux.HandleFunc("POST /sections/{kind}", s.handleAddRecord)
	mux.HandleFunc("PUT /sections/{kind}/{index}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /sections/{kind}/{index}", s.handleRemoveRecord)
	mux.HandleFunc("POST /sections/{kind}/reorder", s.handleReorderRecords)
	mux.HandleFunc("GET /sections/{kind}/problems", s.handleValidateSection)

	mux.HandleFunc("GET /preview", s.handlePreview)
	mux.HandleFunc("GET /pagination", s.handlePagination)
	mux.HandleFunc("GET /events", s.handleEvents)

	mux.HandleFunc("POST /export", s.handleExport)
	mux.HandleFunc("GET /exports/{id}", s.handleGetExport)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // /events streams indefinitely
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the section store backing the server.
func (s *Server) Store() *sections.Store {
	return s.store
}

// Start measures the initial document and begins listening for requests
func (s *Server) Start() error {
	s.remeasure(context.Background())

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[SERVER] Preview server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[SERVER] Server error: %v", err)
		}
	}()

	<-stop
	log.Println("[SERVER] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[SERVER] Server stopped")
	return nil
}

// Shutdown stops background work and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.debouncer.Stop()
	s.rateLimiter.Stop()

	s.mu.Lock()
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// onChange persists the form and schedules re-measuring.
func (s *Server) onChange(key string) {
	if s.persist != nil {
		if err := s.persist(s.store.FormData()); err != nil {
			log.Printf("[SERVER] Failed to save form: %v", err)
		}
	}

	s.mu.Lock()
	s.revision++
	revision := s.revision
	s.mu.Unlock()

	s.broadcast("change", map[string]any{"field": key, "revision": revision})
	s.debouncer.Trigger()
}

// render produces the document for the current form data.
func (s *Server) render() (string, error) {
	return s.renderer.Render(s.store.FormData(), s.renderOpts)
}

// remeasure renders the document, measures it in a fresh surface and publishes the
// estimate. Failures degrade to a single page.
func (s *Server) remeasure(ctx context.Context) pagination.Estimate {
	estimate := pagination.Estimate{PageCount: 1, Breaks: []float64{}, Degraded: true}

	html, err := s.render()
	if err != nil {
		log.Printf("[SERVER] Failed to render document: %v", err)
	} else if surface, err := s.openSurface(ctx, html); err != nil {
		log.Printf("[SERVER] Failed to load document for measuring: %v", err)
	} else {
		estimate = pagination.Measure(ctx, surface)
		surface.Close()
	}

	s.mu.Lock()
	s.estimate = estimate
	s.mu.Unlock()

	if s.verbose {
		log.Printf("[SERVER] Pagination: %.0fpx -> %d page(s)", estimate.HeightPx, estimate.PageCount)
	}
	s.broadcast("pagination", estimate)
	return estimate
}

func (s *Server) currentEstimate() pagination.Estimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimate
}

func (s *Server) subscribe() chan event {
	ch := make(chan event, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan event) {
	s.mu.Lock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// broadcast delivers an event to every subscriber; slow subscribers miss events.
func (s *Server) broadcast(name string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- event{Name: name, Data: data}:
		default:
		}
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests over the per-route limit
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		}
		if !allowed {
			retry := int(info.RetryAfter.Seconds() + 0.999)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			log.Printf("[SERVER] Rate limit exceeded: %s %s", r.Method, r.URL.Path)
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate_limit_exceeded",
				"retry_after": retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verbose {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// extractClientID uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[SERVER] Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFromErr writes err with the status HTTPStatus maps it to
func (s *Server) errorFromErr(w http.ResponseWriter, err error) {
	s.errorResponse(w, HTTPStatus(err), err.Error())
}
