// Package adminregister реализует HTTP-обработчик регистрации администратора
// по мастер-ключу.
package adminregister

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

// Request — структура входных данных для регистрации администратора.
//
// LoginKey опционален: если он задан, администратор сможет входить по ключу
// доступа вместо одноразового кода.
type Request struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	MasterKey       string `json:"master_key" validate:"required"`
	LoginKey        string `json:"login_key" validate:"omitempty,min=6"`
}

// Handler обрабатывает HTTP-запросы регистрации администратора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс регистрации администратора.
type Service interface {
	RegisterAdmin(ctx context.Context, name, email, password, masterKey, loginKey string) error
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
// @Summary Регистрация администратора
// @Description Создает учетную запись администратора по мастер-ключу (не более трех администраторов).
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные администратора и мастер-ключ"
// @Success 200 {object} response.Response "Администратор создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или email"
// @Failure 403 {object} response.ErrorResponse "Неверный мастер-ключ или достигнут предел"
// @Failure 409 {object} response.ErrorResponse "Почта уже занята"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.register"

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

	err := h.service.RegisterAdmin(r.Context(), req.Name, req.Email, req.Password, req.MasterKey, req.LoginKey)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidMasterKey):
			log.Info("master key mismatch", slog.String("email", req.Email))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("Invalid Master Key."))
		case errors.Is(err, auth.ErrAdminLimitReached):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("Admin limit reached (Max 3). Cannot create more admins."))
		case errors.Is(err, auth.ErrEmailTaken):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("An account with this email already exists."))
		case errors.Is(err, auth.ErrMalformedEmail):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Please enter a valid email address."))
		default:
			log.Error("admin registration failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("admin account created", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(nil))
}
