package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/quizport/internal/auth/middleware"
	"github.com/mind-engage/quizport/internal/quiz"
	"github.com/mind-engage/quizport/internal/rbac"
	"github.com/mind-engage/quizport/internal/storage"
)

type RouterDeps struct {
	Service     *quiz.Service
	Auth        *auth.AuthService
	Blobs       storage.BlobStore
	Logger      *zap.Logger
	CORSOrigins []string
	LocalLogin  bool
}

// NewRouter mounts the public and protected API.
func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Logger), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", "X-Package-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.LocalLogin {
		r.Post("/auth/login", auth.LoginHandler(d.Auth))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermQuizValidate)).
			Post("/rows/validate", ValidateRowsHandler(d.Service))

		pr.Route("/quizzes", func(qr chi.Router) {
			qr.With(rbac.Require(rbac.PermQuizCreate)).Post("/", CreateQuizHandler(d.Service))
			qr.With(rbac.Require(rbac.PermQuizView)).Get("/", ListQuizzesHandler(d.Service))
			qr.With(rbac.Require(rbac.PermQuizView)).Get("/{id}", GetQuizHandler(d.Service))
			qr.With(rbac.Require(rbac.PermQuizDelete)).Delete("/{id}", DeleteQuizHandler(d.Service))
			qr.With(rbac.Require(rbac.PermQuizValidate)).Get("/{id}/diagnostics", DiagnosticsHandler(d.Service))
			qr.With(rbac.Require(rbac.PermQuizExport)).Get("/{id}/export", ExportQTIHandler(d.Service))
			qr.With(rbac.Require(rbac.PermQuizView)).Get("/{id}/exports", ListExportsHandler(d.Service))
		})

		pr.With(rbac.Require(rbac.PermQTIPreview)).
			Post("/qti/preview", PreviewQTIHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuizCreate)).
			Post("/qti/import", ImportQTIHandler(d.Service))

		pr.With(rbac.Require(rbac.PermQuizExport)).Route("/packages", func(ar chi.Router) {
			MountPackages(ar, d.Blobs)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
