package healthcard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var healthCardRowColumns = []string{
	"id", "first_name", "last_name", "email", "national_id", "gender",
	"contact_number", "blood_type", "photo_url", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_CreateMapsConstraint(t *testing.T) {
	repo, mock := newMockRepo(t)
	card := HealthCard{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", NationalID: "111", Gender: "female", ContactNumber: "077"}

	mock.ExpectExec("INSERT INTO health_cards").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "health_cards_national_id_key"})
	_, err := repo.Create(context.Background(), card)
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) || dup.Field != "nationalId" {
		t.Fatalf("expected nationalId duplicate, got %v", err)
	}

	mock.ExpectExec("INSERT INTO health_cards").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "health_cards_email_key"})
	_, err = repo.Create(context.Background(), card)
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected email duplicate, got %v", err)
	}

	unknown := &pgconn.PgError{Code: "23505", ConstraintName: "health_cards_pkey"}
	mock.ExpectExec("INSERT INTO health_cards").WillReturnError(unknown)
	_, err = repo.Create(context.Background(), card)
	if errors.As(err, &dup) {
		t.Fatalf("unknown constraint must not be reported as a duplicate %s", dup.Field)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.ConstraintName != "health_cards_pkey" {
		t.Fatalf("expected the driver error to pass through, got %v", err)
	}

	mock.ExpectExec("INSERT INTO health_cards").
		WithArgs(sqlmock.AnyArg(), "Jane", "Doe", "jane@example.com", "111", "female", "077", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.Create(context.Background(), card)
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetByEmailAndList(t *testing.T) {
	repo, mock := newMockRepo(t)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	mock.ExpectQuery("FROM health_cards").WithArgs("jane@example.com").WillReturnRows(
		sqlmock.NewRows(healthCardRowColumns).
			AddRow("0f8fad5b-d9cb-469f-a165-70867728950e", "Jane", "Doe", "jane@example.com", "111", "female", "077", "O+", "/uploads/photo-1.png", older, older))
	card, err := repo.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if card.BloodType != "O+" || card.PhotoURL != "/uploads/photo-1.png" {
		t.Fatalf("unexpected card %+v", card)
	}

	mock.ExpectQuery("FROM health_cards").WithArgs("missing@example.com").WillReturnRows(sqlmock.NewRows(healthCardRowColumns))
	if _, err := repo.GetByEmail(context.Background(), "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("ORDER BY created_at DESC").WillReturnRows(
		sqlmock.NewRows(healthCardRowColumns).
			AddRow("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "John", "Roe", "john@example.com", "222", "male", "071", nil, nil, newer, newer).
			AddRow("0f8fad5b-d9cb-469f-a165-70867728950e", "Jane", "Doe", "jane@example.com", "111", "female", "077", "O+", nil, older, older))
	cards, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if len(cards) != 2 || cards[0].Email != "john@example.com" || cards[0].BloodType != "" {
		t.Fatalf("unexpected list %+v", cards)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateAndDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "0f8fad5b-d9cb-469f-a165-70867728950e"

	mock.ExpectQuery("UPDATE health_cards").WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	if _, err := repo.Update(context.Background(), HealthCard{ID: id, Email: "jane@example.com"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from update, got %v", err)
	}

	mock.ExpectQuery("UPDATE health_cards").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "health_cards_email_key"})
	_, err := repo.Update(context.Background(), HealthCard{ID: id, Email: "john@example.com"})
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected email duplicate from update, got %v", err)
	}

	mock.ExpectExec("DELETE FROM health_cards").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from delete, got %v", err)
	}

	mock.ExpectExec("DELETE FROM health_cards").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), id); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}

	// malformed ids never reach the database
	if _, err := repo.GetByID(context.Background(), "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
	if err := repo.Delete(context.Background(), "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
