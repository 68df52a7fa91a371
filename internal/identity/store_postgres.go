package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresStore persists user records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, name, email, national_id, password_hash, phone, date_of_birth,
	street, city, state, postal_code, verified, role, otp_code, otp_expires_at,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u            User
		otpCode      sql.NullString
		otpExpiresAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.NationalID, &u.PasswordHash, &u.Phone, &u.DateOfBirth,
		&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.PostalCode,
		&u.Verified, &u.Role, &otpCode, &otpExpiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if otpCode.Valid {
		u.OTP = &OTP{Code: otpCode.String, ExpiresAt: otpExpiresAt.Time}
	}
	return &u, nil
}

func otpColumns(u *User) (sql.NullString, sql.NullTime) {
	if u.OTP == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: u.OTP.Code, Valid: true},
		sql.NullTime{Time: u.OTP.ExpiresAt, Valid: true}
}

// mapUniqueViolation translates constraint names into the store sentinels.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrDuplicateEmail
	case strings.Contains(pgErr.ConstraintName, "national_id"):
		return ErrDuplicateNationalID
	default:
		return nil
	}
}

func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	otpCode, otpExpiresAt := otpColumns(user)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		user.ID, user.Name, user.Email, user.NationalID, user.PasswordHash, user.Phone, user.DateOfBirth,
		user.Address.Street, user.Address.City, user.Address.State, user.Address.PostalCode,
		user.Verified, user.Role, otpCode, otpExpiresAt,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) findBy(ctx context.Context, column string, value any) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by %s: %w", column, err)
	}
	return user, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.findBy(ctx, "id", id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *PostgresStore) FindByNationalID(ctx context.Context, nationalID string) (*User, error) {
	return s.findBy(ctx, "national_id", nationalID)
}

func (s *PostgresStore) Update(ctx context.Context, user *User) error {
	otpCode, otpExpiresAt := otpColumns(user)
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			name = $2, email = $3, phone = $4, date_of_birth = $5,
			street = $6, city = $7, state = $8, postal_code = $9,
			verified = $10, role = $11, otp_code = $12, otp_expires_at = $13,
			updated_at = $14
		WHERE id = $1`,
		user.ID, user.Name, user.Email, user.Phone, user.DateOfBirth,
		user.Address.Street, user.Address.City, user.Address.State, user.Address.PostalCode,
		user.Verified, user.Role, otpCode, otpExpiresAt,
		user.UpdatedAt,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
