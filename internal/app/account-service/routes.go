// Package accountservice предоставляет маршруты и жизненный цикл HTTP-приложения.
package accountservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/electrorescue/account-service/internal/http/handlers/admin/adminkey"
	"github.com/electrorescue/account-service/internal/http/handlers/admin/adminlogin"
	"github.com/electrorescue/account-service/internal/http/handlers/admin/adminmethod"
	"github.com/electrorescue/account-service/internal/http/handlers/admin/adminotp"
	"github.com/electrorescue/account-service/internal/http/handlers/admin/adminregister"
	"github.com/electrorescue/account-service/internal/http/handlers/auth/login"
	"github.com/electrorescue/account-service/internal/http/handlers/auth/me"
	"github.com/electrorescue/account-service/internal/http/handlers/auth/register"
	"github.com/electrorescue/account-service/internal/http/handlers/auth/resendcode"
	"github.com/electrorescue/account-service/internal/http/handlers/auth/verifyemail"
	"github.com/electrorescue/account-service/internal/http/handlers/health"
	"github.com/electrorescue/account-service/internal/http/handlers/reset/resetconfirm"
	"github.com/electrorescue/account-service/internal/http/handlers/reset/resetrequest"
	"github.com/electrorescue/account-service/internal/http/handlers/reset/resetverify"
	"github.com/electrorescue/account-service/internal/http/middlewarectx"
	authservice "github.com/electrorescue/account-service/internal/services/auth"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.AuthService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/register/verify", verifyemail.New(logger, authService).ServeHTTP)
		r.Post("/register/resend", resendcode.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		r.Post("/password/forgot", resetrequest.New(logger, authService).ServeHTTP)
		r.Post("/password/verify", resetverify.New(logger, authService).ServeHTTP)
		r.Post("/password/reset", resetconfirm.New(logger, authService).ServeHTTP)

		r.Post("/admin/login", adminlogin.New(logger, authService).ServeHTTP)
		r.Post("/admin/method", adminmethod.New(logger, authService).ServeHTTP)
		r.Post("/admin/key", adminkey.New(logger, authService).ServeHTTP)
		r.Post("/admin/otp", adminotp.New(logger, authService).ServeHTTP)
		r.Post("/admin/register", adminregister.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/me", me.New(logger, authService).ServeHTTP)
		})

		r.Get("/health", health.New(logger).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
