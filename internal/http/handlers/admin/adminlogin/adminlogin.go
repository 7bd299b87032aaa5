// Package adminlogin реализует HTTP-обработчик первого шага входа администратора.
//
// Совпавший пароль не выдает сессию: ответ содержит идентификатор сценария,
// по которому администратор выбирает второй фактор (ключ доступа или код).
package adminlogin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/electrorescue/account-service/internal/http/response"
	"github.com/electrorescue/account-service/internal/lib/sl"
	"github.com/electrorescue/account-service/internal/services/auth"
)

// Request — структура входных данных для входа администратора.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Handler обрабатывает HTTP-запросы входа администратора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс первого шага входа администратора.
type Service interface {
	AdminLogin(ctx context.Context, email, password string) (string, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход администратора (шаг 1)
// @Description Проверяет пароль администратора и открывает сценарий выбора второго фактора.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные администратора"
// @Success 200 {object} map[string]any "Пароль подтвержден, требуется второй фактор"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или email"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Учетная запись не администратор"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("email", req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	flowID, err := h.service.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountNotFound), errors.Is(err, auth.ErrPasswordMismatch):
			log.Info("invalid admin credentials", slog.String("email", req.Email))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Invalid email or password."))
		case errors.Is(err, auth.ErrNotAdmin):
			log.Info("non-admin account on admin portal", slog.String("email", req.Email))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("Access Denied: Not an admin account."))
		case errors.Is(err, auth.ErrMalformedEmail):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Please enter a valid email address."))
		case errors.Is(err, auth.ErrRateLimited):
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("Too many attempts. Please try again later."))
		default:
			log.Error("admin login failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("admin password verified", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow_id": flowID,
		"methods": []string{"key", "otp"},
	}))
}
