// Package identityprovider реализует клиент REST API внешнего провайдера
// аутентификации: вход по паролю и создание учетной записи.
//
// Провайдер возвращает коды ошибок в теле ответа; клиент отображает их
// на sentinel-ошибки, по которым бизнес-логика различает отказ в учетных
// данных, некорректную почту и ограничение частоты запросов.
package identityprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Ошибки провайдера, различаемые бизнес-логикой.
var (
	// ErrAccountNotFound — провайдер не знает учетную запись с такой почтой.
	ErrAccountNotFound = errors.New("identityprovider: account not found")
	// ErrPasswordMismatch — пароль не подошел.
	ErrPasswordMismatch = errors.New("identityprovider: password mismatch")
	// ErrMalformedEmail — провайдер счел адрес некорректным.
	ErrMalformedEmail = errors.New("identityprovider: malformed email")
	// ErrRateLimited — провайдер временно отклоняет попытки входа.
	ErrRateLimited = errors.New("identityprovider: too many attempts")
	// ErrEmailExists — учетная запись с такой почтой уже создана у провайдера.
	ErrEmailExists = errors.New("identityprovider: email already exists")
)

// Client клиент REST API провайдера аутентификации.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент провайдера.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AuthResult — результат успешной операции у провайдера.
type AuthResult struct {
	UID           string // Идентификатор учетной записи на стороне провайдера
	Email         string
	EmailVerified bool
}

func (c *Client) do(ctx context.Context, path string, body any) (*AuthResult, error) {
	url := c.apiURL + path + "?key=" + c.apiKey
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, errors.New("unexpected status: " + resp.Status)
		}
		return nil, mapProviderError(errResp.Error.Message)
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return nil, err
	}
	return &AuthResult{
		UID:           authResp.LocalID,
		Email:         authResp.Email,
		EmailVerified: authResp.EmailVerified,
	}, nil
}

// SignInWithPassword выполняет вход по паре email/пароль.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.do(ctx, "/v1/accounts:signInWithPassword", credentialsRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

// SignUpWithPassword создает учетную запись у провайдера.
func (c *Client) SignUpWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.do(ctx, "/v1/accounts:signUp", credentialsRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

func mapProviderError(code string) error {
	switch {
	case code == "EMAIL_NOT_FOUND" || code == "USER_NOT_FOUND":
		return ErrAccountNotFound
	case code == "INVALID_PASSWORD" || code == "INVALID_LOGIN_CREDENTIALS":
		return ErrPasswordMismatch
	case code == "INVALID_EMAIL" || code == "MISSING_EMAIL":
		return ErrMalformedEmail
	case strings.HasPrefix(code, "TOO_MANY_ATTEMPTS"):
		return ErrRateLimited
	case code == "EMAIL_EXISTS":
		return ErrEmailExists
	default:
		return fmt.Errorf("identityprovider: %s", code)
	}
}

// IsCredentialRejection сообщает, является ли ошибка отказом провайдера в учетных
// данных (запись не найдена или пароль не подошел). Такие отказы, как и сетевые
// сбои, переводят проверку на резервное сравнение с хранимым эквивалентом пароля.
func IsCredentialRejection(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrPasswordMismatch)
}
