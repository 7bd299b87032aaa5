// Package models содержит доменную модель учетной записи пользователя
// платформы ElectroRescue, включая роль, флаг подтверждения почты
// и хэш-эквиваленты пароля и ключа быстрого входа администратора.
package models

import (
	"strings"
	"time"
)

// Роли учетных записей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ReservedAdminEmail — зарезервированный адрес главного администратора.
// Учетная запись с этим адресом всегда считается администратором,
// на него же отправляются уведомления о входах по одноразовому коду.
const ReservedAdminEmail = "electrorescuehelp@gmail.com"

// Account представляет учетную запись пользователя системы.
type Account struct {
	UID          string     // Уникальный идентификатор учетной записи
	Name         string     // Отображаемое имя
	Email        string     // Электронная почта (уникальная)
	Role         string     // Роль: admin или user
	PasswordHash string     // Хэш-эквивалент пароля, резервный источник при отказе провайдера
	LoginKeyHash *string    // Хэш ключа быстрого входа администратора (опционально)
	Verified     bool       // Подтверждена ли почта
	CreatedAt    *time.Time // Дата создания записи
}

// IsAdmin сообщает, относится ли учетная запись к администраторам.
// Администратором считается запись с ролью admin либо с зарезервированным адресом.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin || strings.EqualFold(a.Email, ReservedAdminEmail)
}
