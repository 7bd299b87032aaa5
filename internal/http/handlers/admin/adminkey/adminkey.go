// Package adminkey реализует HTTP-обработчик проверки ключа быстрого входа
// администратора.
package adminkey

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

// Request — структура входных данных для проверки ключа доступа.
type Request struct {
	FlowID string `json:"flow_id" validate:"required,uuid"`
	Key    string `json:"key" validate:"required"`
}

// Handler обрабатывает HTTP-запросы проверки ключа доступа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс проверки ключа доступа администратора.
type Service interface {
	VerifyAdminKey(ctx context.Context, flowID, key string) (string, *models.Account, error)
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
// @Summary Проверка ключа доступа (шаг 3)
// @Description Сверяет ключ быстрого входа; при совпадении выдает JWT-токен сессии администратора.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор сценария и ключ"
// @Success 200 {object} map[string]any "Сессия установлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Ключ не совпал"
// @Failure 404 {object} response.ErrorResponse "Сценарий не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый шаг"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/key [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.key"

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

	token, account, err := h.service.VerifyAdminKey(r.Context(), req.FlowID, req.Key)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Session expired. Please start over."))
		case errors.Is(err, auth.ErrInvalidStep):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("Invalid step for current login state."))
		case errors.Is(err, auth.ErrInvalidAccessKey):
			log.Info("access key mismatch", slog.String("flow_id", req.FlowID))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Invalid Access Key."))
		default:
			log.Error("access key verification failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("admin session established via access key", slog.String("email", account.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"token": token,
		"uid":   account.UID,
		"name":  account.Name,
		"email": account.Email,
		"role":  account.Role,
	}))
}
