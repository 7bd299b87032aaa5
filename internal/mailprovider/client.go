// Package mailprovider реализует клиент транзакционного почтового API
// (отправка одноразовых кодов и служебных уведомлений).
//
// Если ключи API не настроены, клиент работает в режиме симуляции:
// письмо целиком пишется в лог, а отправка считается успешной. Если ключи
// настроены, отказ провайдера является жесткой ошибкой — откат в симуляцию
// позволил бы обойти подтверждение по коду при сломанной конфигурации почты.
package mailprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/electrorescue/account-service/internal/config"
	"github.com/electrorescue/account-service/internal/lib/sl"
)

// ErrSendFailed возвращается при любом отказе провайдера или сети.
var ErrSendFailed = errors.New("mailprovider: send failed")

// Client клиент транзакционного почтового API.
type Client struct {
	apiURL     string
	serviceID  string
	templateID string
	publicKey  string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient создаёт новый почтовый клиент.
func NewClient(cfg config.EmailProvider, log *slog.Logger) *Client {
	return &Client{
		apiURL:     cfg.EmailAPIURL,
		serviceID:  cfg.EmailServiceID,
		templateID: cfg.EmailTemplateID,
		publicKey:  cfg.EmailPublicKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Configured сообщает, заданы ли ключи API. Без ключей действует режим симуляции.
func (c *Client) Configured() bool {
	return c.serviceID != "" && c.templateID != "" && c.publicKey != ""
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams map[string]any `json:"template_params"`
}

// Send отправляет письмо получателю. Параметр code может быть пустым
// для писем без одноразового кода.
func (c *Client) Send(ctx context.Context, to, subject, body, code string) error {
	const op = "mailprovider.Send"

	if !c.Configured() {
		c.log.Warn("email keys are not configured, simulating send",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("code", code),
		)
		return nil
	}

	// Параметры дублируются под распространенные имена переменных шаблона.
	payload := sendRequest{
		ServiceID:  c.serviceID,
		TemplateID: c.templateID,
		UserID:     c.publicKey,
		TemplateParams: map[string]any{
			"to_email":        to,
			"email":           to,
			"otp_code":        code,
			"otp":             code,
			"code":            code,
			"message_subject": subject,
			"subject":         subject,
			"message_body":    body,
			"message":         body,
			"body":            body,
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v1.0/email/send", &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("email provider unreachable", sl.Err(err))
		return fmt.Errorf("%s: %w", op, ErrSendFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error("email provider rejected message",
			slog.String("status", resp.Status),
			slog.String("response", string(respBody)),
		)
		return fmt.Errorf("%s: %w", op, ErrSendFailed)
	}

	c.log.Info("email sent successfully", slog.String("to", to))
	return nil
}
