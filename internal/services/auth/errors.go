package auth

import "errors"

// Ошибки бизнес-логики, отображаемые обработчиками на сообщения пользователю.
var (
	// ErrAccountNotFound — учетная запись с такой почтой не найдена.
	ErrAccountNotFound = errors.New("auth: account not found")
	// ErrPasswordMismatch — пароль не совпал ни у провайдера, ни с хранимым эквивалентом.
	ErrPasswordMismatch = errors.New("auth: password mismatch")
	// ErrMalformedEmail — провайдер счел адрес некорректным.
	ErrMalformedEmail = errors.New("auth: malformed email")
	// ErrRateLimited — провайдер временно отклоняет попытки входа.
	ErrRateLimited = errors.New("auth: rate limited by provider")
	// ErrNotVerified — почта учетной записи не подтверждена.
	ErrNotVerified = errors.New("auth: account not verified")
	// ErrNotAdmin — учетная запись не является администратором.
	ErrNotAdmin = errors.New("auth: not an admin account")
	// ErrAdminLoginRequired — для администраторов вход выполняется только через двухэтапный сценарий.
	ErrAdminLoginRequired = errors.New("auth: admin login flow required")
	// ErrEmailReserved — адрес зарезервирован и недоступен для регистрации.
	ErrEmailReserved = errors.New("auth: email is reserved")
	// ErrEmailTaken — учетная запись с такой почтой уже существует.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidVerificationCode — код подтверждения регистрации не совпал.
	ErrInvalidVerificationCode = errors.New("auth: invalid verification code")
	// ErrInvalidOTPCode — одноразовый код не совпал.
	ErrInvalidOTPCode = errors.New("auth: invalid otp code")
	// ErrInvalidAccessKey — ключ быстрого входа администратора не совпал.
	ErrInvalidAccessKey = errors.New("auth: invalid access key")
	// ErrInvalidMasterKey — мастер-ключ регистрации администратора не совпал.
	ErrInvalidMasterKey = errors.New("auth: invalid master key")
	// ErrAdminLimitReached — достигнут предел числа администраторов.
	ErrAdminLimitReached = errors.New("auth: admin limit reached")
	// ErrCodeSendFailed — не удалось отправить письмо с одноразовым кодом.
	ErrCodeSendFailed = errors.New("auth: failed to send code")
	// ErrFlowNotFound — сценарий не найден (неизвестный или завершенный идентификатор).
	ErrFlowNotFound = errors.New("auth: flow not found")
	// ErrInvalidStep — операция недопустима в текущем состоянии сценария.
	ErrInvalidStep = errors.New("auth: step not allowed in current state")
)
