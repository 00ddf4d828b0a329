package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
	authn  usecase.Authenticator
}

type Options func(*Server)

func WithAuthenticator(authn usecase.Authenticator) Options {
	return func(s *Server) {
		s.authn = authn
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authn))

		r.Get("/auth/me", authMeHandler)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)
			r.Get("/incomplete", s.listIncomplete)
			r.Get("/gate", s.gateState)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Post("/messages", s.appendMessage)
				r.Put("/messages", s.replaceMessages)
				r.Put("/pipeline/{step}", s.updatePipelineStep)
				r.Post("/steps/{step}/run", s.runStep)
				r.Post("/complete", s.completeSession)
				r.Post("/abandon", s.abandonSession)
				r.Post("/resume", s.resumeSession)
				r.Post("/follow-up", s.enforceFollowUp)
				r.Delete("/follow-up", s.disableFollowUp)
				r.Get("/reminder", s.generateReminder)
				r.Get("/versions", s.listVersions)
				r.Post("/versions", s.saveVersion)
			})
		})

		r.Post("/generate", s.generateStep)
		r.Post("/plugins/validate", s.validatePlugin)
		r.Post("/plugins/parse", s.parseResponse)

		r.Get("/admin/users/{userID}/sessions/incomplete", s.adminListIncomplete)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
