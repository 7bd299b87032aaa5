// Package otp генерирует шестизначные числовые одноразовые коды
// для подтверждения почты, сброса пароля и входа администратора.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// Length — длина одноразового кода в символах.
const Length = 6

// Generate возвращает случайный шестизначный числовой код в виде строки.
// Код всегда находится в диапазоне 100000–999999, ведущих нулей не бывает.
func Generate() (string, error) {
	const op = "otp.Generate"
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
