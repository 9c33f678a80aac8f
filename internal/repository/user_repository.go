package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/rentwheels/internal/domain"
)

// pqUniqueViolation is the Postgres error code for unique constraint hits.
const pqUniqueViolation = "23505"

const userColumns = "id, name, email, password_hash, phone, role, created_at, updated_at"

// PostgresUserRepository implements domain.UserRepository on PostgreSQL.
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository.
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a user. Emails are stored lowercase so uniqueness is
// case-insensitive.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)

	query := `
		INSERT INTO users (id, name, email, password_hash, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.E(domain.KindConflict, "user already exists with this email")
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return domain.WrapErr(domain.KindStore, "failed to create user", err)
	}

	return nil
}

// GetByID retrieves a user by id.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email = $1", strings.ToLower(email))
}

func (r *PostgresUserRepository) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	user := &domain.User{}

	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", userColumns, where)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "user not found")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to get user", err)
	}

	return user, nil
}

// List returns all users, newest first.
func (r *PostgresUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY created_at DESC", userColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, domain.WrapErr(domain.KindStore, "failed to list users", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Phone,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, domain.WrapErr(domain.KindStore, "failed to scan user", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to list users", err)
	}
	return users, nil
}

// UpdateFields applies a partial update, leaving unspecified columns alone.
func (r *PostgresUserRepository) UpdateFields(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	var fields []string
	var values []any
	idx := 1

	addField := func(column string, value any) {
		fields = append(fields, fmt.Sprintf("%s = $%d", column, idx))
		values = append(values, value)
		idx++
	}

	if upd.Name != nil {
		addField("name", *upd.Name)
	}
	if upd.Email != nil {
		addField("email", strings.ToLower(*upd.Email))
	}
	if upd.Phone != nil {
		addField("phone", *upd.Phone)
	}
	if upd.Role != nil {
		addField("role", *upd.Role)
	}

	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	fields = append(fields, "updated_at = NOW()")
	values = append(values, id)

	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(fields, ", "), idx, userColumns,
	)

	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, values...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "user not found")
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, domain.E(domain.KindConflict, "email already in use")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to update user", err)
	}

	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2",
		passwordHash, id,
	)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to update password", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to update password", err)
	}
	if rows == 0 {
		return domain.E(domain.KindNotFound, "user not found")
	}

	return nil
}

// Delete removes the user row.
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to delete user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to delete user", err)
	}
	if rows == 0 {
		return domain.E(domain.KindNotFound, "user not found")
	}

	return nil
}

// HasActiveBookings reports whether the user owns any active booking.
func (r *PostgresUserRepository) HasActiveBookings(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE customer_id = $1 AND status = $2",
		id, domain.BookingActive,
	).Scan(&count)
	if err != nil {
		return false, domain.WrapErr(domain.KindStore, "failed to count active bookings", err)
	}
	return count > 0, nil
}
