// Package me реализует HTTP-обработчик получения текущей учетной записи
// по токену сессии.
package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/electrorescue/account-service/internal/http/middlewarectx"
	"github.com/electrorescue/account-service/internal/http/response"
	"github.com/electrorescue/account-service/internal/lib/sl"
	"github.com/electrorescue/account-service/internal/models"
	"github.com/electrorescue/account-service/internal/services/auth"
)

// Handler обрабатывает HTTP-запросы получения текущей учетной записи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения учетной записи по почте.
type Service interface {
	GetAccount(ctx context.Context, email string) (*models.Account, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущая учетная запись
// @Description Возвращает профиль учетной записи из токена сессии.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Профиль"
// @Failure 401 {object} response.ErrorResponse "Нет или неверный токен"
// @Failure 404 {object} response.ErrorResponse "Учетная запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || email == "" {
		log.Error("missing email in request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid or expired token"))
		return
	}

	account, err := h.service.GetAccount(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to load account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"uid":      account.UID,
		"name":     account.Name,
		"email":    account.Email,
		"role":     account.Role,
		"verified": account.Verified,
	}))
}
