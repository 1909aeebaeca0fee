package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/neilberkman/appforge/internal/core/models"
)

// SandboxPolicy gives the page an opaque origin: scripts run but cannot reach
// the host's storage, cookies or top-level navigation.
const SandboxPolicy = "sandbox allow-scripts allow-forms"

// Server serves the current preview document on the loopback interface
type Server struct {
	port   int
	logger *slog.Logger

	doc      atomic.Pointer[Document]
	listener net.Listener
	srv      *http.Server
}

// NewServer creates a server for port. Port 0 picks a free port on Start.
func NewServer(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{port: port, logger: logger}
	s.doc.Store(&Document{HTML: emptyDocument})
	return s
}

// Update re-renders files and swaps the served document
func (s *Server) Update(files models.FileMap) (Document, error) {
	doc, err := Render(files)
	if err != nil {
		return Document{}, err
	}
	s.doc.Store(&doc)
	for _, w := range doc.Warnings {
		s.logger.Warn("preview transform warning", "file", w.File, "kind", string(w.Kind), "detail", w.Detail)
	}
	return doc, nil
}

// Current returns the document being served
func (s *Server) Current() Document {
	return *s.doc.Load()
}

// Handler exposes the routes for tests and embedding
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		doc := s.doc.Load()
		h := w.Header()
		h.Set("Content-Type", "text/html; charset=utf-8")
		h.Set("Content-Security-Policy", SandboxPolicy)
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		_, _ = w.Write([]byte(doc.HTML))
	})
	return mux
}

// Start binds 127.0.0.1 and serves in the background until ctx is done or Stop is called
func (s *Server) Start(ctx context.Context) error {
	if s.srv != nil {
		return errors.New("preview server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	s.logger.Info("preview server started", "url", s.URL())
	return nil
}

// URL is the address of the running server, or "" before Start
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
