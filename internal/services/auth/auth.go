// Package auth содержит бизнес-логику установления сессии: проверку учетных
// данных через внешнего провайдера с резервным сравнением по хранилищу,
// подтверждение регистрации и сброс пароля по одноразовым кодам и
// двухэтапный вход администратора.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/electrorescue/account-service/internal/authflow"
	"github.com/electrorescue/account-service/internal/identityprovider"
	"github.com/electrorescue/account-service/internal/lib/jwt"
	"github.com/electrorescue/account-service/internal/lib/password"
	"github.com/electrorescue/account-service/internal/lib/sl"
	"github.com/electrorescue/account-service/internal/models"
	"github.com/electrorescue/account-service/internal/storage/repository"
)

// DefaultMasterKey действует, пока мастер-ключ не задан в system_config.
const DefaultMasterKey = "ER_ADMIN_2025"

// Предел числа учетных записей администраторов: главный и два дополнительных.
const maxAdminAccounts = 3

const accountCacheTTL = time.Hour

// AccountRepository описывает контракт для работы с учетными записями в базе данных.
type AccountRepository interface {
	// CreateAccount сохраняет новую учетную запись и возвращает её UID.
	CreateAccount(ctx context.Context, account models.Account) (string, error)
	// GetAccountByEmail возвращает учетную запись по почте или repository.ErrAccountNotFound.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// SetVerified помечает учетную запись как подтвержденную.
	SetVerified(ctx context.Context, email string) error
	// UpdatePasswordHash обновляет хранимый хэш-эквивалент пароля.
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	// CountAdmins возвращает число администраторов.
	CountAdmins(ctx context.Context) (int, error)
	// GetMasterKey возвращает мастер-ключ регистрации администраторов ("" — не задан).
	GetMasterKey(ctx context.Context) (string, error)
}

// IdentityProvider описывает операции внешнего провайдера аутентификации.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, pass string) (*identityprovider.AuthResult, error)
	SignUpWithPassword(ctx context.Context, email, pass string) (*identityprovider.AuthResult, error)
}

// Mailer описывает отправку писем через транзакционный почтовый API.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, code string) error
}

// AlertPublisher публикует уведомления о входе администратора в очередь.
type AlertPublisher interface {
	Publish(message any) error
}

// Cache описывает методы для кэширования учетных записей.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// AuthService реализует сценарии входа, регистрации и сброса пароля.
type AuthService struct {
	repo     AccountRepository
	provider IdentityProvider
	mailer   Mailer
	alerts   AlertPublisher
	cache    Cache
	flows    *authflow.Store
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// New создает новый экземпляр AuthService.
func New(repo AccountRepository, provider IdentityProvider, mailer Mailer,
	alerts AlertPublisher, cache Cache, flows *authflow.Store,
	jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		provider: provider,
		mailer:   mailer,
		alerts:   alerts,
		cache:    cache,
		flows:    flows,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Login проверяет учетные данные обычного пользователя и выдает токен сессии.
//
// Администраторы (по роли или зарезервированному адресу) этим путем не входят:
// для них обязателен двухэтапный сценарий AdminLogin.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.Account, error) {
	if strings.EqualFold(email, models.ReservedAdminEmail) {
		return "", nil, ErrAdminLoginRequired
	}

	account, err := s.verifyCredentials(ctx, email, rawPassword)
	if err != nil {
		return "", nil, err
	}
	if account.IsAdmin() {
		return "", nil, ErrAdminLoginRequired
	}
	if !account.Verified {
		return "", nil, ErrNotVerified
	}

	token, err := s.jwtMaker.GenerateToken(account.Email, account.Role, account.UID)
	if err != nil {
		return "", nil, fmt.Errorf("auth.Login: %w", err)
	}
	return token, account, nil
}

// verifyCredentials реализует проверку пары email/пароль: сперва внешний
// провайдер, при отказе в учетных данных или недоступности — резервное
// сравнение с хранимым хэш-эквивалентом пароля.
//
// Источники могут расходиться: сброс пароля обновляет только хранилище,
// поэтому после сброса вход проходит именно по резервному пути.
func (s *AuthService) verifyCredentials(ctx context.Context, email, rawPassword string) (*models.Account, error) {
	const op = "auth.verifyCredentials"

	_, err := s.provider.SignInWithPassword(ctx, email, rawPassword)
	switch {
	case err == nil:
		account, aerr := s.getAccount(ctx, email)
		if aerr != nil {
			return nil, aerr
		}
		return account, nil
	case errors.Is(err, identityprovider.ErrMalformedEmail):
		return nil, ErrMalformedEmail
	case errors.Is(err, identityprovider.ErrRateLimited):
		return nil, ErrRateLimited
	default:
		if !identityprovider.IsCredentialRejection(err) {
			s.log.Warn("identity provider unavailable, using stored credential fallback",
				slog.String("op", op), sl.Err(err))
		}
		account, aerr := s.getAccount(ctx, email)
		if aerr != nil {
			return nil, aerr
		}
		if cerr := password.CompareHash(account.PasswordHash, rawPassword); cerr != nil {
			return nil, ErrPasswordMismatch
		}
		return account, nil
	}
}

// GetAccount возвращает учетную запись по почте (для восстановления сессии).
func (s *AuthService) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, email)
}

// ValidateToken проверяет токен сессии и возвращает его claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}

func accountCacheKey(email string) string {
	return "account:" + strings.ToLower(email)
}

// getAccount читает учетную запись сквозь кэш.
func (s *AuthService) getAccount(ctx context.Context, email string) (*models.Account, error) {
	key := accountCacheKey(email)

	var cached models.Account
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read account from cache", slog.String("key", key), sl.Err(err))
	} else if found {
		return &cached, nil
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(key, account, accountCacheTTL); err != nil {
		s.log.Warn("failed to cache account", slog.String("key", key), sl.Err(err))
	}
	return account, nil
}

func (s *AuthService) invalidateAccount(email string) {
	key := accountCacheKey(email)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate account cache", slog.String("key", key), sl.Err(err))
	}
}
