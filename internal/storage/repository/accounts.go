package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/electrorescue/account-service/internal/models"
)

// ErrAccountNotFound возвращается, когда учетная запись с указанной почтой отсутствует.
var ErrAccountNotFound = errors.New("account not found")

// CreateAccount сохраняет новую учетную запись и возвращает её UID.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account) (string, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO accounts (uid, name, email, role, password_hash, login_key_hash, verified)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		account.UID, account.Name, account.Email, account.Role,
		account.PasswordHash, account.LoginKeyHash, account.Verified).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetAccountByEmail возвращает учетную запись по адресу электронной почты.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, role, password_hash, login_key_hash, verified, created_at
			  FROM accounts
			  WHERE LOWER(email) = LOWER($1)`
	a := &models.Account{}
	row := s.DB.QueryRowContext(ctx, query, email)

	var loginKeyHash sql.NullString
	var createdAt sql.NullTime
	if err := row.Scan(&a.UID, &a.Name, &a.Email, &a.Role,
		&a.PasswordHash, &loginKeyHash, &a.Verified, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if loginKeyHash.Valid {
		a.LoginKeyHash = &loginKeyHash.String
	}
	if createdAt.Valid {
		a.CreatedAt = &createdAt.Time
	}
	return a, nil
}

// SetVerified помечает учетную запись как подтвержденную.
func (s *Storage) SetVerified(ctx context.Context, email string) error {
	const op = "storage.SetVerified"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET verified = TRUE
			  WHERE LOWER(email) = LOWER($1)`
	res, err := s.DB.ExecContext(ctx, query, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	return nil
}

// UpdatePasswordHash обновляет хранимый хэш-эквивалент пароля учетной записи.
// Копия пароля у внешнего провайдера при этом не меняется.
func (s *Storage) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET password_hash = $1
			  WHERE LOWER(email) = LOWER($2)`
	res, err := s.DB.ExecContext(ctx, query, passwordHash, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	return nil
}

// CountAdmins возвращает количество учетных записей с ролью администратора.
func (s *Storage) CountAdmins(ctx context.Context) (int, error) {
	const op = "storage.CountAdmins"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM accounts WHERE role = $1`
	if err := s.DB.QueryRowContext(ctx, query, models.RoleAdmin).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetMasterKey возвращает мастер-ключ регистрации администраторов из system_config.
// Пустая строка означает, что ключ не задан и действует значение по умолчанию.
func (s *Storage) GetMasterKey(ctx context.Context) (string, error) {
	const op = "storage.GetMasterKey"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var value string
	query := `SELECT value FROM system_config WHERE key = 'admin_master_key'`
	err := s.DB.QueryRowContext(ctx, query).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return value, nil
}
