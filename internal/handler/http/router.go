package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/handler/http/middleware"
)

// RouterConfig tags access logs and bounds browser origins.
type RouterConfig struct {
	App            string
	Version        string
	Env            string
	AllowedOrigins []string
}

type Handlers struct {
	Attendance AttendanceHandler
	Session    SessionHandler
	Events     EventsHandler
	Preview    PreviewHandler
	Metrics    http.Handler
}

func NewRouter(cfg RouterConfig, tokens middleware.TokenSource, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	// without configured origins browsers get no CORS grant at all
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Content-Disposition"},
			MaxAge:           300,
		}))
	}

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Put("/", h.Session.Put)
			r.Delete("/", h.Session.Delete)
		})

		r.Get("/events", h.Events.Stream)
		r.Get("/camera/preview", h.Preview.Stream)

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/state", h.Attendance.State)
			r.Post("/dialog/cancel", h.Attendance.CancelDialog)

			// Requires a credential
			r.Group(func(r chi.Router) {
				r.Use(middleware.CredentialRequired(tokens))

				r.Post("/refresh", h.Attendance.Refresh)

				r.Route("/check-in", func(r chi.Router) {
					r.Post("/start", h.Attendance.StartCheckIn)
					r.Post("/confirm", h.Attendance.ConfirmCheckIn)
				})
				r.Route("/check-out", func(r chi.Router) {
					r.Post("/start", h.Attendance.StartCheckOut)
					r.Post("/confirm", h.Attendance.ConfirmCheckOut)
				})

				r.Route("/history", func(r chi.Router) {
					r.Get("/", h.Attendance.History)
					r.Get("/export", h.Attendance.ExportHistory)
				})
			})
		})

		r.With(middleware.CredentialRequired(tokens)).Get("/holidays", h.Attendance.Holidays)
	})
	return r
}
