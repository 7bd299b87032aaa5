// Package sender реализует обработку уведомлений о входе администраторов:
// сообщения из очереди превращаются в письма на служебный адрес.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/electrorescue/account-service/internal/lib/sl"
	"github.com/electrorescue/account-service/internal/models"
)

const alertSubject = "Security Alert: Admin Login"

// Mailer описывает отправку писем через транзакционный почтовый API.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, code string) error
}

// SenderService отправляет письма-уведомления о входе администраторов.
type SenderService struct {
	mailer Mailer
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(mailer Mailer, log *slog.Logger) *SenderService {
	return &SenderService{
		mailer: mailer,
		log:    log,
	}
}

// SendAdminLoginAlert разбирает сообщение очереди и отправляет уведомление
// на служебный адрес администратора.
func (s *SenderService) SendAdminLoginAlert(ctx context.Context, body []byte) error {
	var alert models.AdminLoginAlert
	if err := json.Unmarshal(body, &alert); err != nil {
		s.log.Error("failed to unmarshal admin login alert", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	bodyText := fmt.Sprintf("An Admin login session was authorized for %s via OTP.\n\nTime: %s",
		alert.Email, alert.LoggedAt.Format("2006-01-02 15:04:05 MST"))

	if err := s.mailer.Send(ctx, models.ReservedAdminEmail, alertSubject, bodyText, ""); err != nil {
		s.log.Error("failed to send admin login alert", sl.Err(err))
		return err
	}

	s.log.Info("admin login alert sent", slog.String("admin", alert.Email))
	return nil
}
