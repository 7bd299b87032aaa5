package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/electrorescue/account-service/internal/authflow"
	"github.com/electrorescue/account-service/internal/identityprovider"
	"github.com/electrorescue/account-service/internal/lib/otp"
	"github.com/electrorescue/account-service/internal/lib/password"
	"github.com/electrorescue/account-service/internal/lib/sl"
	"github.com/electrorescue/account-service/internal/models"
)

const (
	verificationSubject = "Verify your ElectroRescue Account"
	verificationBody    = "Welcome to ElectroRescue!\n\nYour verification code is: %s\n\nPlease enter this code to verify your email address."
)

// Register создает неподтвержденную учетную запись и начинает сценарий
// подтверждения почты. Возвращает идентификатор сценария.
//
// Если письмо с кодом отправить не удалось, сценарий удаляется, но созданная
// учетная запись остается неподтвержденной и ждет повторной попытки.
func (s *AuthService) Register(ctx context.Context, name, email, rawPassword string) (string, error) {
	const op = "auth.Register"

	if strings.EqualFold(email, models.ReservedAdminEmail) {
		return "", ErrEmailReserved
	}

	result, err := s.provider.SignUpWithPassword(ctx, email, rawPassword)
	if err != nil {
		if errors.Is(err, identityprovider.ErrEmailExists) {
			return "", ErrEmailTaken
		}
		if errors.Is(err, identityprovider.ErrMalformedEmail) {
			return "", ErrMalformedEmail
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	uid := result.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	account := models.Account{
		UID:          uid,
		Name:         name,
		Email:        email,
		Role:         models.RoleUser,
		PasswordHash: hash,
		Verified:     false,
	}
	if _, err := s.repo.CreateAccount(ctx, account); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	flow := s.flows.Create(authflow.KindRegister, authflow.StateCodeEntry, email, account)

	code, err := otp.Generate()
	if err != nil {
		s.flows.Delete(flow.ID)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	body := fmt.Sprintf(verificationBody, code)
	if err := s.mailer.Send(ctx, email, verificationSubject, body, code); err != nil {
		s.log.Error("failed to send verification email", slog.String("op", op), sl.Err(err))
		s.flows.Delete(flow.ID)
		return "", ErrCodeSendFailed
	}
	s.flows.SetCode(flow.ID, code)

	s.log.Info("registration started",
		slog.String("op", op),
		slog.String("email", email),
		slog.String("flow_id", flow.ID),
	)
	return flow.ID, nil
}

// VerifyRegistration сверяет код подтверждения. При совпадении учетная запись
// помечается подтвержденной, сценарий удаляется и выдается токен сессии.
// При несовпадении код остается действующим, состояние не меняется.
func (s *AuthService) VerifyRegistration(ctx context.Context, flowID, code string) (string, *models.Account, error) {
	const op = "auth.VerifyRegistration"

	flow, ok := s.flows.Get(flowID, authflow.KindRegister)
	if !ok {
		return "", nil, ErrFlowNotFound
	}

	if flow.Code == "" || code != flow.Code {
		_ = s.flows.Apply(flow.ID, authflow.EventMismatch)
		return "", nil, ErrInvalidVerificationCode
	}

	if err := s.repo.SetVerified(ctx, flow.Email); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateAccount(flow.Email)

	if err := s.flows.Apply(flow.ID, authflow.EventCodeMatched); err != nil {
		return "", nil, ErrFlowNotFound
	}
	s.flows.Delete(flow.ID)

	account := flow.Account
	account.Verified = true

	token, err := s.jwtMaker.GenerateToken(account.Email, account.Role, account.UID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("registration verified", slog.String("op", op), slog.String("email", flow.Email))
	return token, &account, nil
}

// ResendRegistrationCode отправляет новый код подтверждения. Прежний код
// перестает действовать только после успешной отправки письма.
func (s *AuthService) ResendRegistrationCode(ctx context.Context, flowID string) error {
	const op = "auth.ResendRegistrationCode"

	flow, ok := s.flows.Get(flowID, authflow.KindRegister)
	if !ok {
		return ErrFlowNotFound
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body := fmt.Sprintf(verificationBody, code)
	if err := s.mailer.Send(ctx, flow.Email, verificationSubject, body, code); err != nil {
		s.log.Error("failed to resend verification email", slog.String("op", op), sl.Err(err))
		return ErrCodeSendFailed
	}

	s.flows.SetCode(flow.ID, code)
	if err := s.flows.Apply(flow.ID, authflow.EventCodeSent); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
