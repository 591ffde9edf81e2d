package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "hunter2-but-longer"
)

func TestNew_Validation(t *testing.T) {
	_, err := New("short", testPassword, 0)
	assert.Error(t, err)

	_, err = New(testSecret, "", 0)
	assert.Error(t, err)

	m, err := New(testSecret, testPassword, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, m.TTL())
}

func TestLoginAndValidate(t *testing.T) {
	m, err := New(testSecret, testPassword, time.Hour)
	require.NoError(t, err)

	token, err := m.Login(testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, m.Validate(token))
}

func TestLogin_WrongPassword(t *testing.T) {
	m, err := New(testSecret, testPassword, time.Hour)
	require.NoError(t, err)

	_, err = m.Login("wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Login("")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_Garbage(t *testing.T) {
	m, err := New(testSecret, testPassword, time.Hour)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Validate(""), ErrUnauthorized)
	assert.ErrorIs(t, m.Validate("   "), ErrUnauthorized)
	assert.ErrorIs(t, m.Validate("not.a.jwt"), ErrUnauthorized)
}

func TestValidate_WrongSecret(t *testing.T) {
	m1, err := New(testSecret, testPassword, time.Hour)
	require.NoError(t, err)
	m2, err := New("ffffffffffffffffffffffffffffffff", testPassword, time.Hour)
	require.NoError(t, err)

	token, err := m1.Login(testPassword)
	require.NoError(t, err)

	assert.ErrorIs(t, m2.Validate(token), ErrUnauthorized)
}

func TestValidate_Expired(t *testing.T) {
	m, err := New(testSecret, testPassword, time.Hour)
	require.NoError(t, err)

	issued := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.Login(testPassword)
	require.NoError(t, err)

	// Still valid just before expiry.
	m.now = func() time.Time { return issued.Add(59 * time.Minute) }
	assert.NoError(t, m.Validate(token))

	// Rejected after.
	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	assert.ErrorIs(t, m.Validate(token), ErrUnauthorized)
}
