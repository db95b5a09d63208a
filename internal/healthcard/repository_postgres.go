package healthcard

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
	healthCardColumns = `id, first_name, last_name, email, national_id, gender, contact_number, blood_type, photo_url, created_at, updated_at`

	insertHealthCardQuery = `
		INSERT INTO health_cards (` + healthCardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	getHealthCardByIDQuery = `
		SELECT ` + healthCardColumns + `
		FROM health_cards
		WHERE id = $1
	`
	getHealthCardByEmailQuery = `
		SELECT ` + healthCardColumns + `
		FROM health_cards
		WHERE email = $1
	`
	listHealthCardsQuery = `
		SELECT ` + healthCardColumns + `
		FROM health_cards
		ORDER BY created_at DESC
	`
	updateHealthCardQuery = `
		UPDATE health_cards
		SET first_name = $2, last_name = $3, email = $4, national_id = $5, gender = $6,
			contact_number = $7, blood_type = $8, photo_url = $9, updated_at = $10
		WHERE id = $1
		RETURNING created_at
	`
	deleteHealthCardQuery = `DELETE FROM health_cards WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, card HealthCard) (HealthCard, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, insertHealthCardQuery,
		card.ID,
		card.FirstName,
		card.LastName,
		card.Email,
		card.NationalID,
		card.Gender,
		card.ContactNumber,
		nullString(card.BloodType),
		nullString(card.PhotoURL),
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		return HealthCard{}, translate(err)
	}
	return card, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (HealthCard, error) {
	if _, err := uuid.Parse(id); err != nil {
		return HealthCard{}, ErrNotFound
	}
	return r.get(ctx, getHealthCardByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (HealthCard, error) {
	return r.get(ctx, getHealthCardByEmailQuery, email)
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (HealthCard, error) {
	card, err := scanHealthCard(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HealthCard{}, ErrNotFound
		}
		return HealthCard{}, err
	}
	return card, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]HealthCard, error) {
	rows, err := r.db.QueryContext(ctx, listHealthCardsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]HealthCard, 0)
	for rows.Next() {
		card, err := scanHealthCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *PostgresRepository) Update(ctx context.Context, card HealthCard) (HealthCard, error) {
	if _, err := uuid.Parse(card.ID); err != nil {
		return HealthCard{}, ErrNotFound
	}
	card.UpdatedAt = time.Now().UTC()

	err := r.db.QueryRowContext(ctx, updateHealthCardQuery,
		card.ID,
		card.FirstName,
		card.LastName,
		card.Email,
		card.NationalID,
		card.Gender,
		card.ContactNumber,
		nullString(card.BloodType),
		nullString(card.PhotoURL),
		card.UpdatedAt,
	).Scan(&card.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HealthCard{}, ErrNotFound
		}
		return HealthCard{}, translate(err)
	}
	return card, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, deleteHealthCardQuery, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// translate turns a violation of the email or national id constraint into a
// DuplicateKeyError naming the colliding field. Other errors pass through.
func translate(err error) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case database.HealthCardEmailKey:
		return &DuplicateKeyError{Field: "email"}
	case database.HealthCardNationalIDKey:
		return &DuplicateKeyError{Field: "nationalId"}
	default:
		return err
	}
}

func scanHealthCard(scanner rowScanner) (HealthCard, error) {
	var (
		card      HealthCard
		bloodType sql.NullString
		photoURL  sql.NullString
	)
	if err := scanner.Scan(
		&card.ID,
		&card.FirstName,
		&card.LastName,
		&card.Email,
		&card.NationalID,
		&card.Gender,
		&card.ContactNumber,
		&bloodType,
		&photoURL,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return HealthCard{}, err
	}
	card.BloodType = bloodType.String
	card.PhotoURL = photoURL.String
	return card, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
