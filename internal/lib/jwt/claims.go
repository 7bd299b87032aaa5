// CustomClaims расширяет стандартные claims, добавляя email, роль и uid учетной записи.
//
// Методы GenerateToken и ParseToken реализуют создание и валидацию токена с заданными claims.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает пользовательские данные, хранящиеся в токене сессии.
type CustomClaims struct {
	Email                string `json:"email"` // Электронная почта учетной записи
	Role                 string `json:"role"`  // Роль учетной записи
	UID                  string `json:"uid"`   // Уникальный идентификатор учетной записи
	jwt.RegisteredClaims        // Встроенные стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// GenerateToken создает токен сессии с заданными email, role и uid,
// подписывая его секретным ключом. Время жизни определяется полем tokenTTL.
func (j *MakerImpl) GenerateToken(email, role, uid string) (string, error) {
	claims := CustomClaims{
		Email: email,
		Role:  role,
		UID:   uid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит токен, проверяет его подпись и валидность,
// возвращает CustomClaims с данными, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
