// Package shell is the presentation layer around the scan controller: an HTTP
// API with a small embedded page, and terminal output.
package shell

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/session"
)

// Scanner is the part of the scan controller the shell drives
type Scanner interface {
	Snapshot() session.Session
	Pick(ctx context.Context, img capture.Image) (bool, error)
	Reset(ctx context.Context) (session.Session, error)
}

// Gallery lists and loads pickable images
type Gallery interface {
	List() ([]string, error)
	Pick(name string) (capture.Image, error)
}

// Server handles HTTP requests for the scan session
type Server struct {
	scanner   Scanner
	gallery   Gallery
	notices   *NoticeBoard
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux. gallery may be nil.
func NewServer(scanner Scanner, gallery Gallery, notices *NoticeBoard, basicAuth BasicAuth) *Server {
	return NewServerWithMux(scanner, gallery, notices, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(scanner Scanner, gallery Gallery, notices *NoticeBoard, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		scanner:   scanner,
		gallery:   gallery,
		notices:   notices,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="EPIC Scanner"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/session", s.requireAuth(s.handleGetSession))
	s.mux.HandleFunc("POST /api/session/reset", s.requireAuth(s.handleReset))
	s.mux.HandleFunc("POST /api/session/upload", s.requireAuth(s.handleUpload))

	s.mux.HandleFunc("GET /api/gallery", s.requireAuth(s.handleListGallery))
	s.mux.HandleFunc("POST /api/gallery/{name}/pick", s.requireAuth(s.handlePickGallery))

	s.mux.HandleFunc("GET /api/notices", s.requireAuth(s.handleListNotices))

	// Static HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server and shuts it down when ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.corsMiddleware(s.mux),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	slog.Info("Starting server", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
