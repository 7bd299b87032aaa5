// Package register реализует HTTP-обработчик регистрации новой учетной записи.
//
// Обработчик декодирует и валидирует входные данные, делегирует регистрацию
// бизнес-логике Service и возвращает идентификатор сценария подтверждения почты.
package register

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

// Request — структура входных данных для регистрации.
type Request struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, name, email, password string) (string, error)
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
// @Summary Регистрация учетной записи
// @Description Создает неподтвержденную учетную запись и отправляет код подтверждения на почту.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные регистрации"
// @Success 200 {object} map[string]any "Регистрация начата"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или email"
// @Failure 403 {object} response.ErrorResponse "Адрес зарезервирован"
// @Failure 409 {object} response.ErrorResponse "Почта уже занята"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Не удалось отправить письмо"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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

	flowID, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailReserved):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("This email address is reserved."))
		case errors.Is(err, auth.ErrEmailTaken):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("An account with this email already exists."))
		case errors.Is(err, auth.ErrMalformedEmail):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Please enter a valid email address."))
		case errors.Is(err, auth.ErrCodeSendFailed):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("Failed to send verification email. Please try again."))
		default:
			log.Error("registration failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("registration started", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow_id": flowID,
	}))
}
