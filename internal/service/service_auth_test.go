package service

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(duration time.Duration) AuthService {
	return NewAuthService(config.App{
		TokenSignKey:  "sign-key",
		TokenIssuer:   "favsync",
		TokenDuration: duration,
	}, logger.Nop())
}

func TestAuthService_CreateAndParse(t *testing.T) {
	auth := newTestAuthService(time.Hour)
	ctx := context.Background()

	token, err := auth.CreateToken(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, token.String())

	parsed, err := auth.ParseToken(ctx, token.String())
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed.UserID)
}

func TestAuthService_CreateToken_Misconfigured(t *testing.T) {
	_, err := newTestAuthService(0).CreateToken(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTokenCreationFailed)
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	auth := newTestAuthService(time.Hour)
	ctx := context.Background()

	other := NewAuthService(config.App{TokenSignKey: "other", TokenIssuer: "favsync", TokenDuration: time.Hour}, logger.Nop())
	foreign, err := other.CreateToken(ctx, 1)
	require.NoError(t, err)

	expired, err := newTestAuthService(-time.Minute).CreateToken(ctx, 1)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage": "not.a.token",
		"foreign": foreign.String(),
		"expired": expired.String(),
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseToken(ctx, raw)
			assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
		})
	}
}
