package auth

import (
	"context"
	"testing"

	"github.com/enchant97/web-portal/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"admin", true},
		{"User42", true},
		{"", false},
		{"with space", false},
		{"dots.not.allowed", false},
		{"public", false},
		{"PUBLIC", false},
		{string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		err := ValidateUsername(tt.username)
		if tt.valid {
			assert.NoError(t, err, tt.username)
			continue
		}
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, tt.username)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("bob", "correcthorse", false))
	assert.Error(t, ValidatePassword("bob", "short", false))
	assert.Error(t, ValidatePassword("bob", "elevenchars", true), "admins need 12 characters")
	assert.NoError(t, ValidatePassword("bob", "twelvechars!", true))
	assert.Error(t, ValidatePassword("bob", "my-BOB-password", false))

	long := make([]byte, 1025)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidatePassword("bob", string(long), false))
}

type fakeUsers map[string]*database.User

func (f fakeUsers) GetUserByUsername(_ context.Context, username string) (*database.User, error) {
	if u, ok := f[username]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (f fakeUsers) GetUserByID(_ context.Context, id uint) (*database.User, error) {
	for _, u := range f {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func TestPasswordLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword("correcthorse")
	require.NoError(t, err)

	users := fakeUsers{
		"bob":      {ID: 1, Username: "bob", PasswordHash: hash},
		"external": {ID: 2, Username: "external"},
		"public":   {ID: 3, Username: database.PublicAccountUsername},
	}

	u, err := PasswordLogin(ctx, users, "bob", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	_, err = PasswordLogin(ctx, users, "bob", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = PasswordLogin(ctx, users, "nobody", "correcthorse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = PasswordLogin(ctx, users, "external", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = PasswordLogin(ctx, users, "public", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
