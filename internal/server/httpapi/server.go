// Package httpapi exposes the blog over HTTP with cookie-carried sessions.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/quillpost/internal/logging"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/config"
	"github.com/dmitrijs2005/quillpost/internal/server/metrics"
	"github.com/dmitrijs2005/quillpost/internal/server/oauth"
	"github.com/dmitrijs2005/quillpost/internal/server/services"
	"github.com/julienschmidt/httprouter"
)

const (
	maxJSONBody   = 1 << 20
	maxCoverBytes = 10 << 20
)

type Server struct {
	address     string
	frontendURL string

	codec    *auth.Codec
	users    *services.UserService
	posts    *services.PostService
	comments *services.CommentService
	oauth    oauth.Exchanger
	metrics  *metrics.Metrics
	logger   logging.Logger

	router *httprouter.Router
}

// NewServer builds the routes. ox may be nil, which leaves the external
// login routes unregistered.
func NewServer(cfg *config.Config, l logging.Logger, codec *auth.Codec, us *services.UserService,
	ps *services.PostService, cs *services.CommentService, ox oauth.Exchanger, m *metrics.Metrics) *Server {

	s := &Server{
		address:     cfg.EndpointAddrHTTP,
		frontendURL: cfg.FrontendURL,
		codec:       codec,
		users:       us,
		posts:       ps,
		comments:    cs,
		oauth:       ox,
		metrics:     m,
		logger:      l.With("module", "http_server"),
		router:      httprouter.New(),
	}
	s.routes()
	return s
}

func (s *Server) handle(method, path string, h http.Handler) {
	s.router.Handler(method, path, s.instrument(path, h))
}

func (s *Server) routes() {
	r := s.router
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v interface{}) {
		s.logger.Error(req.Context(), "handler panic", "panic", v)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}

	s.handle(http.MethodGet, "/", http.HandlerFunc(s.handleRoot))

	s.handle(http.MethodPost, "/auth/signup", http.HandlerFunc(s.handleSignUp))
	s.handle(http.MethodPost, "/auth/login", http.HandlerFunc(s.handleLogin))
	s.handle(http.MethodGet, "/auth/profile", s.optionalSession(http.HandlerFunc(s.handleProfile)))
	s.handle(http.MethodPost, "/auth/logout", http.HandlerFunc(s.handleLogout))
	s.handle(http.MethodDelete, "/auth/delete-account", s.requireSession(http.HandlerFunc(s.handleDeleteAccount)))
	if s.oauth != nil {
		s.handle(http.MethodGet, "/auth/kakao/login", http.HandlerFunc(s.handleKakaoLogin))
		s.handle(http.MethodGet, "/auth/kakao/callback", http.HandlerFunc(s.handleKakaoCallback))
	}

	s.handle(http.MethodPost, "/posts", s.requireSession(http.HandlerFunc(s.handleCreatePost)))
	s.handle(http.MethodGet, "/posts", http.HandlerFunc(s.handleListPosts))
	s.handle(http.MethodGet, "/posts/:id", http.HandlerFunc(s.handleGetPost))
	s.handle(http.MethodPut, "/posts/:id", s.requireSession(http.HandlerFunc(s.handleUpdatePost)))
	s.handle(http.MethodDelete, "/posts/:id", s.requireSession(http.HandlerFunc(s.handleDeletePost)))
	s.handle(http.MethodPost, "/posts/:id/like", s.requireSession(http.HandlerFunc(s.handleToggleLike)))

	s.handle(http.MethodPost, "/comments", s.requireSession(http.HandlerFunc(s.handleCreateComment)))
	s.handle(http.MethodGet, "/comments/:id", http.HandlerFunc(s.handleListComments))
	s.handle(http.MethodPut, "/comments/:id", s.requireSession(http.HandlerFunc(s.handleUpdateComment)))
	s.handle(http.MethodDelete, "/comments/:id", s.requireSession(http.HandlerFunc(s.handleDeleteComment)))

	s.handle(http.MethodGet, "/users/:id", http.HandlerFunc(s.handleGetUser))
	s.handle(http.MethodGet, "/users/:id/posts", http.HandlerFunc(s.handleUserPosts))
	s.handle(http.MethodGet, "/users/:id/comments", http.HandlerFunc(s.handleUserComments))
	s.handle(http.MethodGet, "/users/:id/likes", http.HandlerFunc(s.handleUserLikes))
	s.handle(http.MethodPut, "/users/update", s.requireSession(http.HandlerFunc(s.handleUpdateUser)))

	r.Handler(http.MethodGet, "/metrics", s.metrics.Handler())
}

// Handler is the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	return s.cors(s.accessLog(s.router))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "quillpost server is running")
}
