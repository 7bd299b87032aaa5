// Package resetverify реализует HTTP-обработчик проверки кода сброса пароля.
package resetverify

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

// Request — структура входных данных для проверки кода сброса.
type Request struct {
	FlowID string `json:"flow_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// Handler обрабатывает HTTP-запросы проверки кода сброса.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс проверки кода сброса.
type Service interface {
	VerifyResetCode(ctx context.Context, flowID, code string) error
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
// @Summary Проверка кода сброса
// @Description Сверяет одноразовый код; при совпадении сценарий переходит к вводу нового пароля.
// @Tags Reset
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор сценария и код"
// @Success 200 {object} response.Response "Код подтвержден"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Код не совпал"
// @Failure 404 {object} response.ErrorResponse "Сценарий не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый шаг"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /password/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reset.verify"

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

	if err := h.service.VerifyResetCode(r.Context(), req.FlowID, req.Code); err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Session expired. Please start over."))
		case errors.Is(err, auth.ErrInvalidStep):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("Invalid step for current reset state."))
		case errors.Is(err, auth.ErrInvalidOTPCode):
			log.Info("reset code mismatch", slog.String("flow_id", req.FlowID))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Invalid OTP Code. Please try again."))
		default:
			log.Error("reset code verification failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("reset code verified", slog.String("flow_id", req.FlowID))
	render.JSON(w, r, response.StatusOKWithData(nil))
}
