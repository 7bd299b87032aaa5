package models

import "time"

// AdminLoginAlert — сообщение для очереди уведомлений о входе администратора
// по одноразовому коду. Потребляется сервисом отправки писем.
type AdminLoginAlert struct {
	Email    string    `json:"email"`     // Адрес администратора, выполнившего вход
	Method   string    `json:"method"`    // Способ подтверждения (otp)
	LoggedAt time.Time `json:"logged_at"` // Время входа
}
