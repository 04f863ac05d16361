// internal/pkg/auth/password_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/storefront-backend/internal/config"
)

func testPasswordManager() *PasswordManager {
	return NewPasswordManager(&config.Config{
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	manager := testPasswordManager()

	hash, err := manager.HashPassword("Sufficient1")
	require.NoError(t, err)
	assert.NotEqual(t, "Sufficient1", hash)

	require.NoError(t, manager.VerifyPassword("Sufficient1", hash))
	require.Error(t, manager.VerifyPassword("Sufficient2", hash))
}

func TestValidatePassword(t *testing.T) {
	manager := testPasswordManager()

	cases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "Sufficient1", true},
		{"too short", "Ab1", false},
		{"no uppercase", "sufficient1", false},
		{"no lowercase", "SUFFICIENT1", false},
		{"no number", "Sufficient", false},
		{"common word", "Password123", false},
		{"common word embedded", "MyQwerty99", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := manager.ValidatePassword(tc.password)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestHashPasswordRejectsWeakPassword(t *testing.T) {
	manager := testPasswordManager()

	_, err := manager.HashPassword("weak")
	require.Error(t, err)
}
