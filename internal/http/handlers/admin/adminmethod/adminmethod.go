// Package adminmethod реализует HTTP-обработчик выбора второго фактора
// входа администратора: ключ доступа или одноразовый код.
package adminmethod

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

// Request — структура входных данных для выбора второго фактора.
//
// Method принимает значения "key" или "otp".
type Request struct {
	FlowID string `json:"flow_id" validate:"required,uuid"`
	Method string `json:"method" validate:"required,oneof=key otp"`
}

// Handler обрабатывает HTTP-запросы выбора второго фактора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс выбора второго фактора.
//
// SelectKeyMethod переводит сценарий к вводу ключа без побочных эффектов;
// InitiateOTP отправляет одноразовый код на почту администратора.
type Service interface {
	SelectKeyMethod(ctx context.Context, flowID string) error
	InitiateOTP(ctx context.Context, flowID string) error
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
// @Summary Выбор второго фактора (шаг 2)
// @Description Выбирает способ подтверждения: ключ доступа (без побочных эффектов) или отправка одноразового кода.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор сценария и способ"
// @Success 200 {object} response.Response "Способ выбран"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Сценарий не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый шаг"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Не удалось отправить код"
// @Router /admin/method [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.method"

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

	var err error
	switch req.Method {
	case "key":
		err = h.service.SelectKeyMethod(r.Context(), req.FlowID)
	case "otp":
		err = h.service.InitiateOTP(r.Context(), req.FlowID)
	}
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Session expired. Please start over."))
		case errors.Is(err, auth.ErrInvalidStep):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("Invalid step for current login state."))
		case errors.Is(err, auth.ErrCodeSendFailed):
			// Отказ почты не сжигает сценарий: доступен путь через ключ.
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("Failed to send OTP. Please try Access Key."))
		default:
			log.Error("method selection failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("second factor selected",
		slog.String("flow_id", req.FlowID),
		slog.String("method", req.Method),
	)
	render.JSON(w, r, response.StatusOKWithData(nil))
}
