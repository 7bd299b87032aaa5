// Package resendcode реализует HTTP-обработчик повторной отправки кода подтверждения.
package resendcode

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

// Request — структура входных данных для повторной отправки кода.
type Request struct {
	FlowID string `json:"flow_id" validate:"required,uuid"`
}

// Handler обрабатывает HTTP-запросы повторной отправки кода.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики повторной отправки кода.
type Service interface {
	ResendRegistrationCode(ctx context.Context, flowID string) error
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
// @Summary Повторная отправка кода подтверждения
// @Description Отправляет новый код; прежний перестает действовать после успешной отправки.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор сценария"
// @Success 200 {object} response.Response "Код отправлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Сценарий не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Не удалось отправить письмо"
// @Router /register/resend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resendcode"

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

	if err := h.service.ResendRegistrationCode(r.Context(), req.FlowID); err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Session expired. Please start over."))
		case errors.Is(err, auth.ErrCodeSendFailed):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("Failed to send verification email. Please try again."))
		default:
			log.Error("resend failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("verification code resent", slog.String("flow_id", req.FlowID))
	render.JSON(w, r, response.StatusOKWithData(nil))
}
