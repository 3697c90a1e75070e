package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/identity/internal/entities"
)

// bcryptTestCost keeps hashing fast in tests.
const bcryptTestCost = bcrypt.MinCost

// fakeStore is an in-memory Store for exercising the authenticator without a
// database.
type fakeStore struct {
	nextID uint
	byID   map[uint]*entities.User

	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uint]*entities.User)}
}

func (s *fakeStore) CreateUser(email, plaintext string) (*entities.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	email = NormalizeEmail(email)
	for _, u := range s.byID {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}

	hash, err := HashPassword(plaintext, bcryptTestCost)
	if err != nil {
		return nil, err
	}

	s.nextID++
	user := &entities.User{ID: s.nextID, Email: email, PasswordHash: hash}
	s.byID[user.ID] = user
	return user, nil
}

func (s *fakeStore) GetUserByEmail(email string) (*entities.User, error) {
	email = NormalizeEmail(email)
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) GetUserByID(id uint) (*entities.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) SetResetToken(id uint, token string, expires time.Time) error {
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordResetToken = token
	u.PasswordResetExpires = &expires
	return nil
}

func (s *fakeStore) GetUserByResetToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	for _, u := range s.byID {
		if u.PasswordResetToken == token {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) ResetPassword(id uint, plaintext string) error {
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	hash, err := HashPassword(plaintext, bcryptTestCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return nil
}

// fakeMailer records enqueued reset emails.
type fakeMailer struct {
	emails []string
	tokens []string
	err    error
}

func (m *fakeMailer) EnqueueResetEmail(email, token string) error {
	if m.err != nil {
		return m.err
	}
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, token)
	return nil
}
