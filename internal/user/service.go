package user

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

// Create stores a new account. A plaintext password is hashed first; the
// returned account carries the hash, never the plaintext.
func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	account.Email = strings.TrimSpace(account.Email)
	if account.Email == "" || account.Password == "" {
		return Account{}, errors.New("email and password are required")
	}
	if account.Role == "" {
		account.Role = RoleUser
	}
	if account.Role != RoleUser && account.Role != RoleAdmin {
		return Account{}, errors.New("role must be admin or user")
	}

	if !looksLikeBcrypt(account.Password) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
		if err != nil {
			return Account{}, err
		}
		account.Password = string(hashed)
	}

	return s.repo.Create(ctx, account)
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	account, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Account{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return Account{}, ErrInvalidCredentials
	}

	return account, nil
}

func looksLikeBcrypt(value string) bool {
	return len(value) > 4 && value[0:2] == "$2"
}
