// Package resetrequest реализует HTTP-обработчик запроса сброса пароля.
package resetrequest

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

// Request — структура входных данных для запроса сброса пароля.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Handler обрабатывает HTTP-запросы начала сброса пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики сброса пароля.
type Service interface {
	RequestPasswordReset(ctx context.Context, email string) (string, error)
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
// @Summary Запрос сброса пароля
// @Description Отправляет одноразовый код сброса на почту учетной записи.
// @Tags Reset
// @Accept  json
// @Produce  json
// @Param request body Request true "Почта учетной записи"
// @Success 200 {object} map[string]any "Код отправлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Учетная запись не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Не удалось отправить письмо"
// @Router /password/forgot [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reset.request"

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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	flowID, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("No account found with this email."))
		case errors.Is(err, auth.ErrCodeSendFailed):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("Failed to send reset code. Please try again."))
		default:
			log.Error("reset request failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("password reset requested", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow_id": flowID,
	}))
}
