package healthcard

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wichananm65/medicare-backend/internal/mailer"
	"github.com/wichananm65/medicare-backend/internal/upload"
	"github.com/wichananm65/medicare-backend/internal/user"
)

const credentialSubject = "Your Medicare account credentials"

// PhotoStore persists uploaded photos and returns a public reference.
type PhotoStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(ref string) error
}

// AccountService looks up and provisions login accounts.
type AccountService interface {
	GetByEmail(ctx context.Context, email string) (user.Account, error)
	Create(ctx context.Context, account user.Account) (user.Account, error)
}

// Mailer sends credential emails.
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, msg mailer.Message) (mailer.Receipt, error)
}

type Options struct {
	LoginURL   string
	Production bool
	Logger     zerolog.Logger
}

// RegistrationResult is what a successful registration reports back.
// DebugPassword is empty in production and whenever no account was created.
type RegistrationResult struct {
	HealthCard     HealthCard
	UserCreated    bool
	MailConfigured bool
	DebugPassword  string
}

type Service struct {
	repo       Repository
	photos     PhotoStore
	accounts   AccountService
	mail       Mailer
	loginURL   string
	production bool
	logger     zerolog.Logger
}

func NewService(repo Repository, photos PhotoStore, accounts AccountService, mail Mailer, opts Options) *Service {
	return &Service{
		repo:       repo,
		photos:     photos,
		accounts:   accounts,
		mail:       mail,
		loginURL:   opts.LoginURL,
		production: opts.Production,
		logger:     opts.Logger.With().Str("component", "healthcard").Logger(),
	}
}

// Register validates and stores a new health card, then provisions a login
// account for its email if none exists and mails the credentials. Only the
// card write can fail the call; account and mail problems are logged.
func (s *Service) Register(ctx context.Context, in Input, photo *multipart.FileHeader) (RegistrationResult, error) {
	in = in.normalized()
	if missing := in.missingRequired(); len(missing) > 0 {
		return RegistrationResult{}, &ValidationError{
			Message: "Missing required fields: " + strings.Join(missing, ", "),
			Fields:  missing,
		}
	}

	card := in.apply(HealthCard{})
	if photo != nil {
		ref, err := s.savePhoto(photo)
		if err != nil {
			return RegistrationResult{}, err
		}
		card.PhotoURL = ref
	}

	created, err := s.repo.Create(ctx, card)
	if err != nil {
		s.discardPhoto(card.PhotoURL)
		return RegistrationResult{}, err
	}
	log := s.logger.With().Str("card_id", created.ID).Str("email", created.Email).Logger()
	log.Info().Msg("health card registered")

	result := RegistrationResult{HealthCard: created, MailConfigured: s.mailConfigured()}
	password, ok := s.provisionAccount(ctx, created)
	if !ok {
		return result, nil
	}
	result.UserCreated = true
	if !s.production {
		result.DebugPassword = password
	}
	if result.MailConfigured {
		s.deliverCredentials(ctx, s.credentialMessage(created, password))
	} else {
		log.Info().Msg("smtp not configured, credential email skipped")
	}
	return result, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (HealthCard, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) List(ctx context.Context) ([]HealthCard, error) {
	return s.repo.List(ctx)
}

// Update replaces the non-empty fields of in. A new photo replaces the stored
// reference; the previous file stays on disk.
func (s *Service) Update(ctx context.Context, id string, in Input, photo *multipart.FileHeader) (HealthCard, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return HealthCard{}, err
	}

	card := in.normalized().apply(existing)
	if photo != nil {
		ref, err := s.savePhoto(photo)
		if err != nil {
			return HealthCard{}, err
		}
		card.PhotoURL = ref
	}

	updated, err := s.repo.Update(ctx, card)
	if err != nil {
		if card.PhotoURL != existing.PhotoURL {
			s.discardPhoto(card.PhotoURL)
		}
		return HealthCard{}, err
	}
	s.logger.Info().Str("card_id", updated.ID).Msg("health card updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("card_id", id).Msg("health card deleted")
	return nil
}

func (s *Service) savePhoto(photo *multipart.FileHeader) (string, error) {
	ref, err := s.photos.Save(photo)
	switch {
	case err == nil:
		return ref, nil
	case errors.Is(err, upload.ErrUnsupportedType):
		return "", &ValidationError{Message: "Only JPEG, PNG, and WEBP images are allowed", Fields: []string{"photo"}}
	case errors.Is(err, upload.ErrTooLarge):
		return "", PhotoTooLarge()
	default:
		return "", fmt.Errorf("store photo: %w", err)
	}
}

func (s *Service) discardPhoto(ref string) {
	if ref == "" {
		return
	}
	if err := s.photos.Remove(ref); err != nil {
		s.logger.Warn().Err(err).Str("photo", ref).Msg("failed to remove photo")
	}
}

// provisionAccount creates a user account for the card's email unless one
// exists. It returns the plaintext password when an account was created.
func (s *Service) provisionAccount(ctx context.Context, card HealthCard) (string, bool) {
	log := s.logger.With().Str("email", card.Email).Logger()

	_, err := s.accounts.GetByEmail(ctx, card.Email)
	if err == nil {
		log.Info().Bool("account_created", false).Msg("account already exists")
		return "", false
	}
	if !errors.Is(err, user.ErrNotFound) {
		log.Error().Err(err).Msg("account lookup failed")
		return "", false
	}

	password, err := user.GeneratePassword()
	if err != nil {
		log.Error().Err(err).Msg("password generation failed")
		return "", false
	}
	account, err := s.accounts.Create(ctx, user.Account{
		Name:     strings.TrimSpace(card.FirstName + " " + card.LastName),
		Email:    card.Email,
		Role:     user.RoleUser,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			log.Info().Bool("account_created", false).Msg("account created concurrently")
		} else {
			log.Error().Err(err).Msg("account creation failed")
		}
		return "", false
	}
	log.Info().Str("user_id", account.ID).Bool("account_created", true).Msg("account provisioned")
	return password, true
}

func (s *Service) mailConfigured() bool {
	return s.mail != nil && s.mail.Configured()
}

func (s *Service) credentialMessage(card HealthCard, password string) mailer.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", card.FirstName)
	body.WriteString("Your patient account has been created.\n\n")
	fmt.Fprintf(&body, "Email: %s\n", card.Email)
	fmt.Fprintf(&body, "Password: %s\n\n", password)
	fmt.Fprintf(&body, "Login here: %s\n\n", s.loginURL)
	body.WriteString("Please change your password after logging in.\n")
	return mailer.Message{
		To:      []string{card.Email},
		Subject: credentialSubject,
		Body:    body.String(),
	}
}

// deliverCredentials is the single place the mail outcome is handled. It only
// logs; nothing it sees can change the registration result.
func (s *Service) deliverCredentials(ctx context.Context, msg mailer.Message) {
	receipt, err := s.mail.Send(ctx, msg)
	if err != nil {
		s.logger.Warn().Err(err).Strs("to", msg.To).Msg("credential email not delivered")
		return
	}
	s.logger.Info().
		Str("message_id", receipt.MessageID).
		Strs("to", receipt.Recipients).
		Msg("credential email sent")
}
