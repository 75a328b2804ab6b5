package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"talkregistration/internal/delivery/http/controllers"
	"talkregistration/internal/delivery/http/middleware"
	"talkregistration/internal/domain"
	"talkregistration/internal/metrics"
	"talkregistration/internal/ratelimit"
)

// RouterDeps carries everything NewRouter wires together. AuthLimiter and
// Metrics are optional.
type RouterDeps struct {
	Logger      *slog.Logger
	CORSOrigins []string

	Talks         *controllers.TalkController
	Registrations *controllers.RegistrationController
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Health        *controllers.HealthController

	Verifier    domain.TokenVerifier
	AuthLimiter *ratelimit.Limiter
	Metrics     *metrics.Metrics
}

// NewRouter initializes the HTTP router with all application routes and the
// middleware shared by every request.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(d.Verifier, d.Logger)
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireAdmin(next))
	}
	limited := func(next http.HandlerFunc) http.HandlerFunc { return next }
	if d.AuthLimiter != nil {
		limited = ratelimit.Middleware(d.AuthLimiter, func() {
			if d.Metrics != nil {
				d.Metrics.IncRateLimitRejection("auth")
			}
		})
	}

	// Health & ops
	mux.HandleFunc("GET /health", d.Health.Health)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Auth
	mux.HandleFunc("POST /auth/signup", limited(d.Auth.SignUp))
	mux.HandleFunc("POST /auth/login", limited(d.Auth.Login))
	mux.HandleFunc("POST /auth/verify-token", limited(d.Auth.VerifyToken))

	// Current user
	mux.HandleFunc("GET /users/me", auth(d.Users.GetMe))
	mux.HandleFunc("PATCH /users/me", auth(d.Users.UpdateMe))
	mux.HandleFunc("POST /users/me/password", auth(d.Users.ChangePassword))
	mux.HandleFunc("GET /users/me/registrations", auth(d.Registrations.ListMine))

	// Talks
	mux.HandleFunc("GET /talks", d.Talks.ListTalks)
	mux.HandleFunc("GET /talks/{talkID}", d.Talks.GetTalk)
	mux.HandleFunc("POST /talks", admin(d.Talks.CreateTalk))
	mux.HandleFunc("PATCH /talks/{talkID}", admin(d.Talks.UpdateTalk))
	mux.HandleFunc("DELETE /talks/{talkID}", admin(d.Talks.DeleteTalk))
	mux.HandleFunc("POST /talks/import/sessionize/{sessionizeID}", admin(d.Talks.ImportSessionize))

	// Registrations
	mux.HandleFunc("POST /talks/{talkID}/registrations", auth(d.Registrations.Register))
	mux.HandleFunc("DELETE /talks/{talkID}/registrations", auth(d.Registrations.Cancel))
	mux.HandleFunc("GET /talks/{talkID}/registrations", admin(d.Registrations.ListForTalk))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", admin(d.Registrations.CancelByID))
	mux.HandleFunc("POST /registrations/{registrationID}/attendance", admin(d.Registrations.MarkAttended))

	mux.HandleFunc("/", controllers.NotFound)

	var handler http.Handler = mux
	if d.Metrics != nil {
		handler = middleware.MetricsMiddleware(d.Metrics, handler)
	}
	handler = middleware.LoggingMiddleware(d.Logger, handler)
	handler = middleware.CORS(d.CORSOrigins, handler)
	return middleware.SecurityHeaders(handler)
}
