package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/electrorescue/account-service/internal/authflow"
	"github.com/electrorescue/account-service/internal/lib/otp"
	"github.com/electrorescue/account-service/internal/lib/password"
	"github.com/electrorescue/account-service/internal/lib/sl"
)

const (
	resetSubject = "Password Reset Request"
	resetBody    = "We received a request to reset your password.\n\nYour Secure OTP is: %s\n\nIf you did not request this, please ignore this email."
)

// RequestPasswordReset начинает сценарий сброса пароля: проверяет, что
// учетная запись существует, и отправляет одноразовый код на почту.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const op = "auth.RequestPasswordReset"

	account, err := s.getAccount(ctx, email)
	if err != nil {
		return "", err
	}

	flow := s.flows.Create(authflow.KindReset, authflow.StateAwaitCode, account.Email, *account)

	code, err := otp.Generate()
	if err != nil {
		s.flows.Delete(flow.ID)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	body := fmt.Sprintf(resetBody, code)
	if err := s.mailer.Send(ctx, account.Email, resetSubject, body, code); err != nil {
		s.log.Error("failed to send reset code", slog.String("op", op), sl.Err(err))
		s.flows.Delete(flow.ID)
		return "", ErrCodeSendFailed
	}
	s.flows.SetCode(flow.ID, code)

	s.log.Info("password reset requested",
		slog.String("op", op),
		slog.String("email", account.Email),
		slog.String("flow_id", flow.ID),
	)
	return flow.ID, nil
}

// VerifyResetCode сверяет код сброса. Совпадение переводит сценарий к вводу
// нового пароля; несовпадение оставляет код действующим.
func (s *AuthService) VerifyResetCode(_ context.Context, flowID, code string) error {
	flow, ok := s.flows.Get(flowID, authflow.KindReset)
	if !ok {
		return ErrFlowNotFound
	}
	if flow.State != authflow.StateAwaitCode {
		return ErrInvalidStep
	}

	if flow.Code == "" || code != flow.Code {
		_ = s.flows.Apply(flow.ID, authflow.EventMismatch)
		return ErrInvalidOTPCode
	}
	if err := s.flows.Apply(flow.ID, authflow.EventCodeMatched); err != nil {
		return ErrFlowNotFound
	}
	return nil
}

// ConfirmPasswordReset сохраняет новый пароль и завершает сценарий. Обновляется
// только хранимый эквивалент: у провайдера остается прежний пароль, поэтому
// следующий вход пройдет по резервному пути сравнения с хранилищем.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, flowID, newPassword string) error {
	const op = "auth.ConfirmPasswordReset"

	flow, ok := s.flows.Get(flowID, authflow.KindReset)
	if !ok {
		return ErrFlowNotFound
	}
	if flow.State != authflow.StateAwaitNewPassword {
		return ErrInvalidStep
	}

	hash, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, flow.Email, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateAccount(flow.Email)

	if err := s.flows.Apply(flow.ID, authflow.EventPasswordSet); err != nil {
		return ErrFlowNotFound
	}
	s.flows.Delete(flow.ID)

	s.log.Info("password reset completed", slog.String("op", op), slog.String("email", flow.Email))
	return nil
}
