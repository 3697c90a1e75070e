package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/identity/internal/config"
	"github.com/mrlokans/identity/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already taken")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password so that login failures do not reveal whether an
	// account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrResetTokenInvalid = errors.New("password reset token is invalid or expired")
)

// Store is the credential store contract the authenticator depends on.
// Implementations own User records: they normalize emails, perform the hash
// transform on create and password change, and enforce email uniqueness.
type Store interface {
	CreateUser(email, plaintext string) (*entities.User, error)
	GetUserByEmail(email string) (*entities.User, error)
	GetUserByID(id uint) (*entities.User, error)
	SetResetToken(userID uint, token string, expires time.Time) error
	GetUserByResetToken(token string) (*entities.User, error)
	ResetPassword(userID uint, plaintext string) error
}

// ResetMailer delivers password reset messages. Delivery is asynchronous;
// Enqueue only records the work.
type ResetMailer interface {
	EnqueueResetEmail(email, token string) error
}

// NormalizeEmail lowercases and trims an email address. The normalized form
// is the uniqueness key for users.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that an email is syntactically acceptable.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	// RFC 5321 limit is 254
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// Service verifies credentials against the store and issues signed tokens.
type Service struct {
	store  Store
	tokens *TokenIssuer
	mailer ResetMailer
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(store Store, tokens *TokenIssuer, cfg config.Auth) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		config: cfg,
	}
}

// SetResetMailer attaches the mailer used for password reset delivery.
// Without one, reset requests still record the token but send nothing.
func (s *Service) SetResetMailer(m ResetMailer) {
	s.mailer = m
}

// Tokens exposes the token issuer for the request gate.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Authenticate validates credentials and returns the user.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.store.GetUserByEmail(NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		// ErrHashFormat and anything else is a data integrity problem,
		// not a failed login.
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and issues a signed token bound to the user id.
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.Authenticate(email, password)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID)
}

// Register validates input, creates the user, and issues a token identically
// to Login. A duplicate email fails with ErrEmailTaken; the store's unique
// index is the final authority when concurrent registrations race.
func (s *Service) Register(email, password, confirmPassword string) (string, error) {
	user, err := s.RegisterUser(email, password, confirmPassword)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID)
}

// RegisterUser performs registration and returns the created user. The web
// login flow uses this directly since it creates a session instead of a token.
func (s *Service) RegisterUser(email, password, confirmPassword string) (*entities.User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if password != confirmPassword {
		return nil, ErrPasswordMismatch
	}

	user, err := s.store.CreateUser(NormalizeEmail(email), password)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.store.GetUserByID(id)
}

// RequestPasswordReset generates a reset token for the account, stores it
// with an expiry, and enqueues the reset email. An unknown email returns
// ErrUserNotFound; callers decide whether to surface that distinction.
func (s *Service) RequestPasswordReset(email string) error {
	user, err := s.store.GetUserByEmail(NormalizeEmail(email))
	if err != nil {
		return err
	}

	token, err := GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	lifetime := s.config.ResetLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	expires := time.Now().Add(lifetime)

	if err := s.store.SetResetToken(user.ID, token, expires); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.EnqueueResetEmail(user.Email, token); err != nil {
			return fmt.Errorf("failed to enqueue reset email: %w", err)
		}
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password. The token is
// single-use: a successful reset clears it.
func (s *Service) ResetPassword(token, password, confirmPassword string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.store.GetUserByResetToken(token)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if user.PasswordResetExpires == nil || time.Now().After(*user.PasswordResetExpires) {
		return ErrResetTokenInvalid
	}

	return s.store.ResetPassword(user.ID, password)
}
