package session

import (
	"testing"
	"time"

	"palantir/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestSession_SetAndCurrent(t *testing.T) {
	s := New()
	user := &domain.User{ID: 1, Username: "admin", Role: "admin"}

	s.Set(Tokens{Access: "acc-1", Refresh: "ref-1"}, user)

	tokens := s.Current()
	assert.Equal(t, "acc-1", tokens.Access)
	assert.Equal(t, "ref-1", tokens.Refresh)
	assert.Equal(t, user, s.User())
	assert.True(t, s.Authenticated())
}

func TestSession_SetAccess_KeepsRefreshAndUser(t *testing.T) {
	s := New()
	s.Set(Tokens{Access: "old", Refresh: "ref-1"}, &domain.User{ID: 7})

	s.SetAccess("new")

	tokens := s.Current()
	assert.Equal(t, "new", tokens.Access)
	assert.Equal(t, "ref-1", tokens.Refresh)
	assert.NotNil(t, s.User())
}

func TestSession_Clear(t *testing.T) {
	s := New()
	s.Set(Tokens{Access: "acc", Refresh: "ref"}, &domain.User{ID: 1})

	s.Clear()

	assert.Equal(t, Tokens{}, s.Current())
	assert.Nil(t, s.User())
	assert.False(t, s.Authenticated())
}

func TestSession_EmptySessionNotAuthenticated(t *testing.T) {
	s := New()

	assert.False(t, s.Authenticated())
	assert.Equal(t, Tokens{}, s.Current())
}

func TestSession_AccessExpiry(t *testing.T) {
	s := New()
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	s.Set(Tokens{Access: signedToken(t, exp)}, nil)

	got, ok := s.AccessExpiry()
	assert.True(t, ok)
	assert.WithinDuration(t, exp, got, time.Second)
}

func TestSession_AccessExpiry_NoToken(t *testing.T) {
	s := New()

	_, ok := s.AccessExpiry()
	assert.False(t, ok)
}

func TestSession_AccessExpiry_OpaqueToken(t *testing.T) {
	s := New()
	s.Set(Tokens{Access: "not-a-jwt"}, nil)

	_, ok := s.AccessExpiry()
	assert.False(t, ok)
}
