package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/electrorescue/account-service/internal/authflow"
	"github.com/electrorescue/account-service/internal/identityprovider"
	"github.com/electrorescue/account-service/internal/lib/otp"
	"github.com/electrorescue/account-service/internal/lib/password"
	"github.com/electrorescue/account-service/internal/lib/sl"
	"github.com/electrorescue/account-service/internal/models"
)

// AdminLogin проверяет пароль администратора и открывает двухэтапный сценарий
// входа. Сессия на этом шаге не выдается: совпавший пароль лишь переводит
// сценарий к выбору второго фактора (ключ доступа или одноразовый код).
func (s *AuthService) AdminLogin(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "auth.AdminLogin"

	account, err := s.verifyCredentials(ctx, email, rawPassword)
	if err != nil {
		return "", err
	}
	if !account.IsAdmin() {
		return "", ErrNotAdmin
	}

	flow := s.flows.Create(authflow.KindAdminLogin, authflow.StateCredentialsEntered, account.Email, *account)
	if err := s.flows.Apply(flow.ID, authflow.EventAdminVerified); err != nil {
		s.flows.Delete(flow.ID)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("admin password verified, awaiting second factor",
		slog.String("op", op),
		slog.String("email", account.Email),
		slog.String("flow_id", flow.ID),
	)
	return flow.ID, nil
}

// SelectKeyMethod переводит сценарий входа администратора к вводу ключа
// доступа. Побочных эффектов у выбора нет.
func (s *AuthService) SelectKeyMethod(_ context.Context, flowID string) error {
	flow, ok := s.flows.Get(flowID, authflow.KindAdminLogin)
	if !ok {
		return ErrFlowNotFound
	}
	if err := s.flows.Apply(flow.ID, authflow.EventChooseKey); err != nil {
		return ErrInvalidStep
	}
	return nil
}

// InitiateOTP генерирует одноразовый код и отправляет его на почту
// администратора. Сценарий переходит к вводу кода только после успешной
// отправки письма; при отказе почты выбор способа остается доступен.
func (s *AuthService) InitiateOTP(ctx context.Context, flowID string) error {
	const op = "auth.InitiateOTP"

	flow, ok := s.flows.Get(flowID, authflow.KindAdminLogin)
	if !ok {
		return ErrFlowNotFound
	}
	if flow.State != authflow.StateMethodSelection && flow.State != authflow.StateCodeEntry {
		return ErrInvalidStep
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body := fmt.Sprintf(verificationBody, code)
	if err := s.mailer.Send(ctx, flow.Email, verificationSubject, body, code); err != nil {
		s.log.Error("failed to send admin otp", slog.String("op", op), sl.Err(err))
		return ErrCodeSendFailed
	}

	s.flows.SetCode(flow.ID, code)
	if err := s.flows.Apply(flow.ID, authflow.EventCodeSent); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyAdminKey сверяет ключ быстрого входа с хранимым хэш-эквивалентом.
// Совпадение завершает сценарий и выдает токен; несовпадение оставляет
// сценарий в ожидании ключа.
func (s *AuthService) VerifyAdminKey(_ context.Context, flowID, key string) (string, *models.Account, error) {
	const op = "auth.VerifyAdminKey"

	flow, ok := s.flows.Get(flowID, authflow.KindAdminLogin)
	if !ok {
		return "", nil, ErrFlowNotFound
	}
	if flow.State != authflow.StateKeyEntry {
		return "", nil, ErrInvalidStep
	}

	account := flow.Account
	if account.LoginKeyHash == nil || password.CompareHash(*account.LoginKeyHash, key) != nil {
		_ = s.flows.Apply(flow.ID, authflow.EventMismatch)
		return "", nil, ErrInvalidAccessKey
	}

	// Переход проверяется по живому состоянию: параллельный запрос,
	// успевший завершить сценарий первым, здесь получит отказ.
	if err := s.flows.Apply(flow.ID, authflow.EventKeyMatched); err != nil {
		return "", nil, ErrFlowNotFound
	}
	s.flows.Delete(flow.ID)

	token, err := s.jwtMaker.GenerateToken(account.Email, account.Role, account.UID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("admin session established via access key",
		slog.String("op", op), slog.String("email", account.Email))
	return token, &account, nil
}

// VerifyAdminOTP сверяет одноразовый код. Совпадение публикует уведомление
// о входе администратора (ровно одна попытка; отказ очереди входу не мешает),
// завершает сценарий и выдает токен.
func (s *AuthService) VerifyAdminOTP(_ context.Context, flowID, code string) (string, *models.Account, error) {
	const op = "auth.VerifyAdminOTP"

	flow, ok := s.flows.Get(flowID, authflow.KindAdminLogin)
	if !ok {
		return "", nil, ErrFlowNotFound
	}
	if flow.State != authflow.StateCodeEntry {
		return "", nil, ErrInvalidStep
	}

	if flow.Code == "" || code != flow.Code {
		_ = s.flows.Apply(flow.ID, authflow.EventMismatch)
		return "", nil, ErrInvalidOTPCode
	}

	if err := s.flows.Apply(flow.ID, authflow.EventCodeMatched); err != nil {
		return "", nil, ErrFlowNotFound
	}

	// Уведомление публикуется только после успешного перехода: ровно одна
	// попытка на каждый установленный сеанс, отказ очереди входу не мешает.
	alert := models.AdminLoginAlert{
		Email:    flow.Email,
		Method:   "otp",
		LoggedAt: time.Now().UTC(),
	}
	if err := s.alerts.Publish(alert); err != nil {
		s.log.Warn("failed to queue admin login alert", slog.String("op", op), sl.Err(err))
	}

	s.flows.Delete(flow.ID)

	account := flow.Account
	token, err := s.jwtMaker.GenerateToken(account.Email, account.Role, account.UID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("admin session established via otp",
		slog.String("op", op), slog.String("email", account.Email))
	return token, &account, nil
}

// RegisterAdmin создает учетную запись администратора по мастер-ключу.
// Предел числа администраторов проверяется до обращения к провайдеру,
// чтобы отказ не оставлял осиротевшую запись у провайдера.
func (s *AuthService) RegisterAdmin(ctx context.Context, name, email, rawPassword, masterKey, loginKey string) error {
	const op = "auth.RegisterAdmin"

	stored, err := s.repo.GetMasterKey(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if stored == "" {
		stored = DefaultMasterKey
	}
	if masterKey != stored {
		return ErrInvalidMasterKey
	}

	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count >= maxAdminAccounts {
		return ErrAdminLimitReached
	}

	result, err := s.provider.SignUpWithPassword(ctx, email, rawPassword)
	if err != nil {
		if errors.Is(err, identityprovider.ErrEmailExists) {
			return ErrEmailTaken
		}
		if errors.Is(err, identityprovider.ErrMalformedEmail) {
			return ErrMalformedEmail
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var loginKeyHash *string
	if loginKey != "" {
		kh, err := password.GetHash(loginKey)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		loginKeyHash = &kh
	}

	uid := result.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	account := models.Account{
		UID:          uid,
		Name:         name,
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		LoginKeyHash: loginKeyHash,
		Verified:     true,
	}
	if _, err := s.repo.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("admin account created", slog.String("op", op), slog.String("email", email))
	return nil
}
