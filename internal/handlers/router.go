package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/middleware"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/internal/session"
)

// Deps - все, что нужно для построения маршрутов.
type Deps struct {
	Auth        services.AuthService
	Focus       services.FocusService
	Journal     services.JournalService
	VoiceNotes  services.VoiceNoteService
	VoiceClones services.VoiceCloneService
	Habits      services.HabitService
	Rituals     services.RitualService
	Preferences services.PreferencesService
	Dashboard   services.DashboardService
	Billing     services.BillingService

	Sessions *session.Manager
	// AuthLimiter ограничивает попытки входа и регистрации. nil отключает ограничение.
	AuthLimiter *middleware.RateLimiter
	// ReadyChecks - зависимости для /readyz.
	ReadyChecks map[string]Pinger
	Logger      *zap.Logger
}

// NewRouter собирает chi-роутер API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger

	authHandler := NewAuthHandler(d.Auth, d.Sessions, logger)
	focusHandler := NewFocusHandler(d.Focus, logger)
	journalHandler := NewJournalHandler(d.Journal, logger)
	voiceHandler := NewVoiceHandler(d.VoiceNotes, d.VoiceClones, logger)
	habitHandler := NewHabitHandler(d.Habits, logger)
	ritualHandler := NewRitualHandler(d.Rituals, logger)
	prefsHandler := NewPreferencesHandler(d.Preferences, logger)
	dashboardHandler := NewDashboardHandler(d.Dashboard, logger)
	billingHandler := NewBillingHandler(d.Billing, logger)
	healthHandler := NewHealthHandler(d.ReadyChecks, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/ping", healthHandler.Ping)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты
		r.Group(func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(d.AuthLimiter.Middleware)
			}
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/billing/webhook", billingHandler.Webhook)

		// Защищенные маршруты
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticator(d.Sessions, logger))

			r.Get("/auth/user", authHandler.Me)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", focusHandler.List)
				r.Get("/today", focusHandler.Today)
				r.Post("/", focusHandler.Create)
				r.Patch("/{id}", focusHandler.Update)
				r.Delete("/{id}", focusHandler.Delete)
			})

			r.Route("/journal", func(r chi.Router) {
				r.Get("/", journalHandler.List)
				r.Get("/mood-trend", journalHandler.MoodTrend)
				r.Post("/", journalHandler.Create)
				r.Get("/{id}", journalHandler.Get)
				r.Patch("/{id}", journalHandler.Update)
				r.Delete("/{id}", journalHandler.Delete)
				r.Post("/{id}/insights", journalHandler.Insights)
			})

			r.Route("/voice-notes", func(r chi.Router) {
				r.Get("/", voiceHandler.ListNotes)
				r.Post("/", voiceHandler.CreateNote)
				r.Get("/{id}", voiceHandler.GetNote)
				r.Get("/{id}/audio", voiceHandler.NoteAudio)
				r.Post("/{id}/insights", voiceHandler.AnalyzeNote)
				r.Delete("/{id}", voiceHandler.DeleteNote)
			})

			r.Route("/voice-clones", func(r chi.Router) {
				r.Get("/", voiceHandler.ListClones)
				r.Post("/", voiceHandler.CreateClone)
				r.Delete("/{id}", voiceHandler.DeleteClone)
				r.Post("/{id}/speak", voiceHandler.Speak)
			})

			r.Route("/habits", func(r chi.Router) {
				r.Get("/", habitHandler.List)
				r.Post("/", habitHandler.Create)
				r.Patch("/{id}", habitHandler.Update)
				r.Delete("/{id}", habitHandler.Delete)
				r.Get("/{id}/entries", habitHandler.ListEntries)
				r.Post("/{id}/entries", habitHandler.AddEntry)
				r.Delete("/{id}/entries/{entryId}", habitHandler.DeleteEntry)
				r.Get("/{id}/progress", habitHandler.Progress)
				r.Get("/{id}/struggles", habitHandler.ListStruggles)
				r.Post("/{id}/struggles", habitHandler.AddStruggle)
			})

			r.Route("/reset-rituals", func(r chi.Router) {
				r.Get("/", ritualHandler.List)
				r.Post("/", ritualHandler.Create)
				r.Get("/completions", ritualHandler.Completions)
				r.Delete("/{id}", ritualHandler.Delete)
				r.Post("/{id}/complete", ritualHandler.Complete)
			})

			r.Get("/preferences", prefsHandler.Get)
			r.Put("/preferences", prefsHandler.Put)

			r.Get("/dashboard/stats", dashboardHandler.Stats)
			r.Get("/analytics/focus", dashboardHandler.FocusAnalytics)
			r.Get("/analytics/habits", dashboardHandler.HabitAnalytics)

			r.Post("/billing/payment-intent", billingHandler.CreatePaymentIntent)
			r.Post("/billing/subscription", billingHandler.CreateSubscription)
			r.Get("/billing/subscription", billingHandler.GetSubscription)
		})
	})

	return r
}
