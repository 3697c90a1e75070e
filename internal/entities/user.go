package entities

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// User is the sole persisted entity: a unique lowercase email plus a bcrypt
// password hash and optional display attributes.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string `gorm:"size:100" json:"-"` // bcrypt hash, hidden from JSON

	// Profile display attributes, not security-relevant.
	Name     string `gorm:"size:255" json:"name,omitempty"`
	Gender   string `gorm:"size:32" json:"gender,omitempty"`
	Location string `gorm:"size:255" json:"location,omitempty"`
	Website  string `gorm:"size:512" json:"website,omitempty"`
	Picture  string `gorm:"size:2048" json:"picture,omitempty"`

	// Password reset flow
	PasswordResetToken   string     `gorm:"index;size:64" json:"-"`
	PasswordResetExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicProfile is the externally visible shape of a user.
type PublicProfile struct {
	Email   string `json:"email"`
	Avatar  string `json:"avatar"`
	Name    string `json:"name"`
	Gender  string `json:"gender"`
	Website string `json:"website"`
}

// Profile returns the public view of the user. The avatar falls back to the
// user's Gravatar when no picture is set.
func (u *User) Profile() PublicProfile {
	avatar := u.Picture
	if avatar == "" {
		avatar = u.Gravatar(0)
	}
	return PublicProfile{
		Email:   u.Email,
		Avatar:  avatar,
		Name:    u.Name,
		Gender:  u.Gender,
		Website: u.Website,
	}
}

// Gravatar returns the Gravatar URL for the user's email.
// A size of 0 uses the default of 200 pixels.
func (u *User) Gravatar(size int) string {
	if size <= 0 {
		size = 200
	}
	if u.Email == "" {
		return fmt.Sprintf("https://gravatar.com/avatar/?s=%d&d=retro", size)
	}
	sum := md5.Sum([]byte(u.Email))
	return fmt.Sprintf("https://gravatar.com/avatar/%s?s=%d&d=retro", hex.EncodeToString(sum[:]), size)
}
