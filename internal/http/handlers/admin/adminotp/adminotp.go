// Package adminotp реализует HTTP-обработчик проверки одноразового кода
// входа администратора.
package adminotp

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
	"github.com/electrorescue/account-service/internal/models"
	"github.com/electrorescue/account-service/internal/services/auth"
)

// Request — структура входных данных для проверки одноразового кода.
type Request struct {
	FlowID string `json:"flow_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// Handler обрабатывает HTTP-запросы проверки одноразового кода.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс проверки одноразового кода администратора.
type Service interface {
	VerifyAdminOTP(ctx context.Context, flowID, code string) (string, *models.Account, error)
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
// @Summary Проверка одноразового кода (шаг 3)
// @Description Сверяет код; при совпадении ставит уведомление о входе в очередь и выдает JWT-токен.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор сценария и код"
// @Success 200 {object} map[string]any "Сессия установлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Код не совпал"
// @Failure 404 {object} response.ErrorResponse "Сценарий не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый шаг"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/otp [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.otp"

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

	token, account, err := h.service.VerifyAdminOTP(r.Context(), req.FlowID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Session expired. Please start over."))
		case errors.Is(err, auth.ErrInvalidStep):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("Invalid step for current login state."))
		case errors.Is(err, auth.ErrInvalidOTPCode):
			log.Info("otp mismatch", slog.String("flow_id", req.FlowID))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Invalid OTP Code. Please try again."))
		default:
			log.Error("otp verification failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("admin session established via otp", slog.String("email", account.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"token": token,
		"uid":   account.UID,
		"name":  account.Name,
		"email": account.Email,
		"role":  account.Role,
	}))
}
