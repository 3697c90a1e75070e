package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "pass1234",
			wantErr:  nil,
		},
		{
			name:     "minimum length password",
			password: "abcd",
			wantErr:  nil,
		},
		{
			name:     "too short",
			password: "abc",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "empty",
			password: "",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "too long",
			password: strings.Repeat("a", 73),
			wantErr:  ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, bcryptTestCost)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("HashPassword() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("HashPassword() unexpected error = %v", err)
			}
			if hash == tt.password {
				t.Error("HashPassword() returned the plaintext")
			}
			if err := CheckPassword(tt.password, hash); err != nil {
				t.Errorf("CheckPassword() on fresh hash = %v", err)
			}
		})
	}
}

// Hashing must salt: the same plaintext hashed twice yields different outputs,
// yet both verify.
func TestHashPassword_NonDeterministic(t *testing.T) {
	h1, err := HashPassword("pass1234", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("pass1234", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if h1 == h2 {
		t.Error("two hashes of the same password are identical, salt is missing")
	}
	if err := CheckPassword("pass1234", h1); err != nil {
		t.Errorf("CheckPassword(h1) = %v", err)
	}
	if err := CheckPassword("pass1234", h2); err != nil {
		t.Errorf("CheckPassword(h2) = %v", err)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("pass1234", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		if err := CheckPassword("pass1234", hash); err != nil {
			t.Errorf("CheckPassword() = %v, want nil", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		err := CheckPassword("wrong-password", hash)
		if !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("CheckPassword() = %v, want ErrInvalidPassword", err)
		}
	})

	t.Run("malformed stored hash", func(t *testing.T) {
		err := CheckPassword("pass1234", "not-a-bcrypt-hash")
		if !errors.Is(err, ErrHashFormat) {
			t.Errorf("CheckPassword() = %v, want ErrHashFormat", err)
		}
	})

	t.Run("empty stored hash", func(t *testing.T) {
		err := CheckPassword("pass1234", "")
		if !errors.Is(err, ErrHashFormat) {
			t.Errorf("CheckPassword() = %v, want ErrHashFormat", err)
		}
	})
}

func TestGenerateResetToken(t *testing.T) {
	t1, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}
	t2, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}

	if len(t1) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(t1))
	}
	if t1 == t2 {
		t.Error("two generated tokens are identical")
	}
}
