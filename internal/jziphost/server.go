package jziphost

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jzipmount/internal/jzip"
)

// Server is the HTTP mount point for jzip-mount: it serves
// GET /<archive-file-name>/<entry/path/within/archive> straight out of the
// mounted archives.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	verbose bool

	mount    *MountIndex
	opener   *ArchiveOpener
	contents *EntryContentCache
}

// NewServer constructs a new Server instance.
func NewServer(cfg Config, logger *slog.Logger, metrics *Metrics, mount *MountIndex, opener *ArchiveOpener, contents *EntryContentCache) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		mount:    mount,
		opener:   opener,
		contents: contents,
	}
}

// SetVerbose enables verbose logging (logs 2xx responses).
func (s *Server) SetVerbose(v bool) { s.verbose = v }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	route, ok := ParseRoute(r.URL.Path)

	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	if !ok {
		http.NotFound(rw, r)
		s.logRequest(r, route, rw.statusCode, time.Since(start))
		return
	}

	if !s.isMethodAllowed(r.Method) {
		rw.Header().Set("Allow", "GET, HEAD")
		rw.statusCode = http.StatusMethodNotAllowed
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		s.logRequest(r, route, rw.statusCode, time.Since(start))
		return
	}

	switch route.Kind {
	case RouteMetrics:
		s.handleMetrics(rw, r)
	case RouteEntry:
		s.handleEntry(rw, r, route)
	default:
		http.NotFound(rw, r)
	}

	s.metrics.ObserveRequest(route.Archive, time.Since(start))
	s.logRequest(r, route, rw.statusCode, time.Since(start))
}

func (s *Server) isMethodAllowed(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if r.Method == http.MethodHead {
		promhttp.Handler().ServeHTTP(&headResponseWriter{ResponseWriter: w}, r)
		return
	}
	promhttp.Handler().ServeHTTP(w, r)
}

type headResponseWriter struct {
	http.ResponseWriter
}

func (w *headResponseWriter) Write(b []byte) (int, error) { return len(b), nil }

// handleEntry serves GET /<archive>/<entryPath>.
func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request, route Route) {
	rw, _ := w.(*responseWriter)

	archivePath, ok := s.mount.Lookup(route.Archive)
	if !ok {
		http.NotFound(w, r)
		if rw != nil {
			rw.statusCode = http.StatusNotFound
		}
		return
	}

	if data, ok := s.contents.Get(archivePath, route.EntryPath); ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(data)
		return
	}

	a, err := s.opener.Open(r.Context(), archivePath)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to open archive", "archive", route.Archive, "error", err)
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		if rw != nil {
			rw.statusCode = http.StatusInternalServerError
		}
		return
	}
	defer s.opener.Close(a)

	e, found := a.GetEntry(route.EntryPath, len(route.EntryPath))
	if !found {
		http.NotFound(w, r)
		if rw != nil {
			rw.statusCode = http.StatusNotFound
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncEntriesMaterialized()
	}

	compressed := e.CSize != 0
	data, err := a.ReadEntry(e)
	if err != nil {
		if errors.Is(err, jzip.ErrNotFound) {
			http.NotFound(w, r)
			if rw != nil {
				rw.statusCode = http.StatusNotFound
			}
			return
		}
		if s.logger != nil {
			s.logger.Error("failed to read entry", "archive", route.Archive, "entry", route.EntryPath, "error", err)
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		if rw != nil {
			rw.statusCode = http.StatusInternalServerError
		}
		return
	}
	if s.metrics != nil && compressed {
		s.metrics.AddInflateBytes(len(data))
	}

	s.contents.Put(archivePath, route.EntryPath, data)

	w.Header().Set("Content-Type", "application/octet-stream")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to write entry response", "archive", route.Archive, "entry", route.EntryPath, "error", err)
		}
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// logRequest always logs non-2xx responses, and logs 2xx only when
// verbose mode is enabled.
func (s *Server) logRequest(r *http.Request, route Route, statusCode int, duration time.Duration) {
	if s.logger == nil {
		return
	}

	shouldLog := statusCode < 200 || statusCode >= 300
	if statusCode >= 200 && statusCode < 300 {
		shouldLog = s.verbose
	}
	if !shouldLog {
		return
	}

	attrs := []interface{}{
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	if route.Archive != "" {
		attrs = append(attrs, "archive", route.Archive)
	}

	switch {
	case statusCode >= 500:
		s.logger.Error("HTTP request", attrs...)
	case statusCode >= 400:
		s.logger.Warn("HTTP request", attrs...)
	default:
		s.logger.Info("HTTP request", attrs...)
	}
}
