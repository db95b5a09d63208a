package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/medicare-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	getUserByIDQuery = `
		SELECT id, name, email, role, password, created_at
		FROM users
		WHERE id = $1
	`
	getUserByEmailQuery = `
		SELECT id, name, email, role, password, created_at
		FROM users
		WHERE email = $1
	`
	insertUserQuery = `
		INSERT INTO users (id, name, email, role, password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, ErrNotFound
	}
	return r.get(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	return r.get(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account Account) (Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, insertUserQuery,
		account.ID,
		account.Name,
		account.Email,
		account.Role,
		account.Password,
		account.CreatedAt,
	)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return Account{}, ErrEmailExists
		}
		return Account{}, err
	}
	return account, nil
}

func scanAccount(scanner rowScanner) (Account, error) {
	account := Account{}
	if err := scanner.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Role,
		&account.Password,
		&account.CreatedAt,
	); err != nil {
		return Account{}, err
	}
	return account, nil
}
