package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345"

func TestGenerateAccessToken(t *testing.T) {
	t.Run("Successfully generate access token", func(t *testing.T) {
		token, err := GenerateAccessToken(uuid.New(), "user@example.com", RoleMember, testSecret)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Fail with empty secret", func(t *testing.T) {
		token, err := GenerateAccessToken(uuid.New(), "user@example.com", RoleMember, "")

		assert.Equal(t, ErrEmptyJWTSecret, err)
		assert.Empty(t, token)
	})

	t.Run("Token contains correct claims", func(t *testing.T) {
		userID := uuid.New()

		token, err := GenerateAccessToken(userID, "staff@example.com", RoleStaff, testSecret)
		require.NoError(t, err)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)

		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "staff@example.com", claims.Email)
		assert.Equal(t, RoleStaff, claims.Role)
		assert.Equal(t, "access", claims.TokenType)
	})
}

func TestValidateToken(t *testing.T) {
	t.Run("Wrong secret", func(t *testing.T) {
		token, err := GenerateAccessToken(uuid.New(), "user@example.com", RoleMember, testSecret)
		require.NoError(t, err)

		_, err = ValidateToken(token, "another-secret")
		assert.Error(t, err)
	})

	t.Run("Expired token", func(t *testing.T) {
		claims := &JWTClaims{
			UserID:    uuid.NewString(),
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = ValidateToken(token, testSecret)
		assert.Equal(t, ErrTokenExpired, err)
	})

	t.Run("Non uuid subject", func(t *testing.T) {
		claims := &JWTClaims{
			UserID:    "42",
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = ValidateToken(token, testSecret)
		assert.Equal(t, ErrInvalidToken, err)
	})

	t.Run("Refresh token rejected", func(t *testing.T) {
		claims := &JWTClaims{
			UserID:    uuid.NewString(),
			TokenType: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = ValidateToken(token, testSecret)
		assert.Equal(t, ErrInvalidTokenType, err)
	})

	t.Run("Principal from claims", func(t *testing.T) {
		userID := uuid.New()
		token, err := GenerateAccessToken(userID, "admin@example.com", RoleAdmin, testSecret)
		require.NoError(t, err)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)

		p := claims.Principal()
		assert.Equal(t, userID, p.UserID)
		assert.True(t, p.Staff())
	})

	t.Run("Empty secret", func(t *testing.T) {
		_, err := ValidateToken("abc", "")
		assert.Equal(t, ErrEmptyJWTSecret, err)
	})
}
