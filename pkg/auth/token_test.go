package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "assignmentpoint",
		ExpirationMinutes: 30,
	}
}

func signRaw(t *testing.T, cfg config.JWTConfig, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return signed
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.RoleWriter, JTI: "jti-1"})
	require.NoError(t, err)

	identity, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, enums.RoleWriter, identity.Role)
	assert.Equal(t, "jti-1", identity.TokenID)
	assert.WithinDuration(t, now.Add(30*time.Minute), identity.ExpiresAt, time.Second)
}

func TestMintGeneratesTokenID(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCustomer})
	require.NoError(t, err)
	identity, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(identity.TokenID)
	assert.NoError(t, err)
}

func TestParseAccessTokenRejections(t *testing.T) {
	cfg := testJWTConfig()
	valid, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	expired, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleWriter})
	require.NoError(t, err)

	otherSecret := cfg
	otherSecret.Secret = "different"
	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	cases := []struct {
		name  string
		cfg   config.JWTConfig
		token string
	}{
		{"bad signature", otherSecret, valid},
		{"wrong issuer", otherIssuer, valid},
		{"expired", cfg, expired},
		{"garbage", cfg, "not-a-jwt"},
		{"unknown role", cfg, signRaw(t, cfg, accessClaims{
			Role:             "superuser",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer, Subject: uuid.NewString(), ExpiresAt: future},
		})},
		{"subject not a uuid", cfg, signRaw(t, cfg, accessClaims{
			Role:             enums.RoleWriter,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer, Subject: "writer-7", ExpiresAt: future},
		})},
		{"no expiry", cfg, signRaw(t, cfg, accessClaims{
			Role:             enums.RoleWriter,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer, Subject: uuid.NewString()},
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.cfg, tc.token)
			assert.Error(t, err)
		})
	}
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpirationMinutes = 1
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Minute-10*time.Second), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleWriter})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	assert.NoError(t, err)
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleWriter})
	assert.Error(t, err)
	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "nobody"})
	assert.Error(t, err)
	_, err = MintAccessToken(config.JWTConfig{}, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleWriter})
	assert.ErrorIs(t, err, errSecretRequired)
}
