// Package users is the credential store: it owns User records, performs the
// password hash transform on create and password change, and relies on the
// unique email index for uniqueness under concurrent registration.
//
// # Usage
//
//	repo := users.NewRepository(db, cfg.Auth)
//	user, err := repo.GetUserByEmail("user@example.com")
package users

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/identity/internal/auth"
	"github.com/mrlokans/identity/internal/config"
	"github.com/mrlokans/identity/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db  *gorm.DB
	cfg config.Auth
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB, cfg config.Auth) *Repository {
	return &Repository{db: db, cfg: cfg}
}

// CreateUser creates a new user from an email and a plaintext password.
// The email is normalized, the password is hashed exactly once here, and the
// plaintext is never persisted. A duplicate normalized email fails with
// auth.ErrEmailTaken, whether caught by the pre-check or by the unique index
// when two registrations race.
func (r *Repository) CreateUser(email, plaintext string) (*entities.User, error) {
	email = auth.NormalizeEmail(email)

	var existing entities.User
	err := r.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, auth.ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := auth.HashPassword(plaintext, r.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Email:        email,
		PasswordHash: hash,
	}

	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the check-then-create race; the unique index is
			// the final authority.
			return nil, auth.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by normalized email.
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", auth.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the mutable display attributes of a user.
type ProfileUpdate struct {
	Name     string
	Gender   string
	Location string
	Website  string
	Picture  string
}

// UpdateProfile updates display attributes only. The password hash is never
// touched here, so no rehash happens on profile saves.
func (r *Repository) UpdateProfile(id uint, p ProfileUpdate) (*entities.User, error) {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"name":     p.Name,
		"gender":   p.Gender,
		"location": p.Location,
		"website":  p.Website,
		"picture":  p.Picture,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, auth.ErrUserNotFound
	}
	return r.GetUserByID(id)
}

// ChangePassword verifies the old password and sets a new one. The new
// password is rehashed; this is the only mutation path besides reset that
// touches the hash.
func (r *Repository) ChangePassword(id uint, oldPlaintext, newPlaintext string) error {
	user, err := r.GetUserByID(id)
	if err != nil {
		return err
	}

	if err := auth.CheckPassword(oldPlaintext, user.PasswordHash); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPlaintext, r.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return r.db.Model(user).Update("password_hash", hash).Error
}

// SetResetToken stores a password reset token with its expiry.
func (r *Repository) SetResetToken(id uint, token string, expires time.Time) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to store reset token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// GetUserByResetToken retrieves a user by their pending reset token.
// Expiry is checked by the caller.
func (r *Repository) GetUserByResetToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, auth.ErrUserNotFound
	}
	var user entities.User
	err := r.db.Where("password_reset_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ResetPassword sets a new password and clears the reset token, making the
// token single-use.
func (r *Repository) ResetPassword(id uint, plaintext string) error {
	hash, err := auth.HashPassword(plaintext, r.cfg.BcryptCost)
	if err != nil {
		return err
	}

	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":          hash,
		"password_reset_token":   "",
		"password_reset_expires": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to reset password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// ClearExpiredResetTokens removes reset tokens whose expiry has passed.
// Returns the number of cleared tokens.
func (r *Repository) ClearExpiredResetTokens(now time.Time) (int64, error) {
	result := r.db.Model(&entities.User{}).
		Where("password_reset_token <> '' AND password_reset_expires < ?", now).
		Updates(map[string]any{
			"password_reset_token":   "",
			"password_reset_expires": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
