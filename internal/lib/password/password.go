// Package password реализует функции для безопасного хеширования и проверки
// хранимых эквивалентов учетных данных: пароля и ключа быстрого входа.
//
// GetHash создает bcrypt-хеш значения для безопасного хранения.
// CompareHash сравнивает исходный bcrypt-хеш с введённым значением.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash принимает секретное значение и возвращает его bcrypt‑хэш.
//
// Используется для безопасного хранения паролей и ключей входа в базе данных.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым значением.
//
// Возвращает nil, если значение соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
