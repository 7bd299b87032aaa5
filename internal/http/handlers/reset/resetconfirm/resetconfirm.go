// Package resetconfirm реализует HTTP-обработчик установки нового пароля.
package resetconfirm

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

// Request — структура входных данных для установки нового пароля.
//
// ConfirmPassword должен совпадать с NewPassword.
type Request struct {
	FlowID          string `json:"flow_id" validate:"required,uuid"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Handler обрабатывает HTTP-запросы установки нового пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс завершения сброса пароля.
type Service interface {
	ConfirmPasswordReset(ctx context.Context, flowID, newPassword string) error
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
// @Summary Установка нового пароля
// @Description Сохраняет новый пароль после подтверждения кода сброса.
// @Tags Reset
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор сценария и новый пароль"
// @Success 200 {object} response.Response "Пароль обновлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Сценарий не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый шаг"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /password/reset [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reset.confirm"

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

	if err := h.service.ConfirmPasswordReset(r.Context(), req.FlowID, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Session expired. Please start over."))
		case errors.Is(err, auth.ErrInvalidStep):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("Invalid step for current reset state."))
		default:
			log.Error("password reset failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("password reset completed", slog.String("flow_id", req.FlowID))
	render.JSON(w, r, response.StatusOKWithData(nil))
}
