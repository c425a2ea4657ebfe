package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kernel/lecturecap/internal/bridge"
	"github.com/kernel/lecturecap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakeTokenStore implements TokenStore in memory.
type FakeTokenStore struct {
	token string
	err   error
}

func (f *FakeTokenStore) Save(token string) error {
	if f.err != nil {
		return f.err
	}
	f.token = token
	return nil
}

func (f *FakeTokenStore) Load() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.token == "" {
		return "", config.ErrNoToken
	}
	return f.token, nil
}

func (f *FakeTokenStore) Delete() error {
	f.token = ""
	return f.err
}

var authNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "student@example.edu",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestAuthLogin(t *testing.T) {
	tests := []struct {
		name    string
		token   func(t *testing.T) string
		ping    func(ctx context.Context, token string) (bridge.PingResponse, error)
		wantErr string
		saved   bool
	}{
		{
			name:  "opaque token",
			token: func(t *testing.T) string { return "opaque-token" },
			saved: true,
		},
		{
			name:  "valid jwt",
			token: func(t *testing.T) string { return signedToken(t, authNow.Add(time.Hour)) },
			ping: func(ctx context.Context, token string) (bridge.PingResponse, error) {
				return bridge.PingResponse{Success: true, Version: "1.4.0"}, nil
			},
			saved: true,
		},
		{
			name:    "expired jwt",
			token:   func(t *testing.T) string { return signedToken(t, authNow.Add(-time.Hour)) },
			wantErr: "token expired at",
		},
		{
			name:  "rejected by background",
			token: func(t *testing.T) string { return "opaque-token" },
			ping: func(ctx context.Context, token string) (bridge.PingResponse, error) {
				return bridge.PingResponse{}, errors.New("background returned 401: unauthorized")
			},
			wantErr: "background rejected token",
		},
		{
			name:    "empty",
			token:   func(t *testing.T) string { return "  " },
			wantErr: "token is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			store := &FakeTokenStore{}
			a := AuthCmd{store: store, ping: tt.ping, now: func() time.Time { return authNow }}

			token := tt.token(t)
			err := a.Login(context.Background(), AuthLoginInput{Token: token})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, store.token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, token, store.token)
		})
	}
}

func TestAuthStatus(t *testing.T) {
	buf := captureOutput(t)
	store := &FakeTokenStore{token: signedToken(t, authNow.Add(-time.Minute))}
	a := AuthCmd{
		store: store,
		now:   func() time.Time { return authNow },
		ping: func(ctx context.Context, token string) (bridge.PingResponse, error) {
			return bridge.PingResponse{Success: true, Version: "1.4.0"}, nil
		},
	}

	require.NoError(t, a.Status(context.Background(), AuthStatusInput{}))
	out := buf.String()
	assert.Contains(t, out, "keyring")
	assert.Contains(t, out, "student@example.edu")
	assert.Contains(t, out, "1.4.0")
	assert.Contains(t, out, "Token has expired")
}

func TestAuthStatus_EnvTokenWins(t *testing.T) {
	buf := captureOutput(t)
	a := AuthCmd{store: &FakeTokenStore{err: errors.New("keyring locked")}}

	require.NoError(t, a.Status(context.Background(), AuthStatusInput{EnvToken: "opaque", Output: "json"}))
	assert.JSONEq(t, `{"source":"environment (LECTURECAP_TOKEN)","expired":false}`, buf.String())
}

func TestAuthStatus_NotLoggedIn(t *testing.T) {
	buf := captureOutput(t)
	a := AuthCmd{store: &FakeTokenStore{}}

	require.NoError(t, a.Status(context.Background(), AuthStatusInput{}))
	assert.Contains(t, buf.String(), "Not logged in")
}

func TestAuthLogout(t *testing.T) {
	buf := captureOutput(t)
	store := &FakeTokenStore{token: "t"}

	require.NoError(t, AuthCmd{store: store}.Logout(context.Background()))
	assert.Empty(t, store.token)
	assert.Contains(t, buf.String(), "Logged out")
}
