package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"serwer-udostepnien/internal/models"
)

func TestHashAndCheckPassword(t *testing.T) {
	password := "bardzo-tajne-haslo"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	require.NotEqual(t, password, hash)

	require.True(t, CheckPasswordHash(password, hash))
	require.False(t, CheckPasswordHash("inne-haslo", hash))
}

func TestGenerateAndVerifyJWT(t *testing.T) {
	secret := "test-secret"
	user := &models.User{UID: "jan", Enabled: true}

	tokenString, err := GenerateJWT(user, secret)
	require.NoError(t, err)

	claims, err := VerifyJWT(tokenString, secret)
	require.NoError(t, err)
	require.Equal(t, "jan", claims.UserID)
	require.Equal(t, "share-server", claims.Issuer)

	_, err = VerifyJWT(tokenString, "zly-sekret")
	require.Error(t, err)
}

func TestVerifyJWTRejectsWrongAlgorithm(t *testing.T) {
	// An unsigned token must never pass, regardless of its claims.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &AppClaims{UserID: "jan"})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = VerifyJWT(tokenString, "test-secret")
	require.Error(t, err)
}

func TestBcryptHasherVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost + 1)

	hash, err := h.Hash("haslo-do-udzialu")
	require.NoError(t, err)

	ok, newHash, err := h.Verify("haslo-do-udzialu", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, newHash)

	ok, newHash, err = h.Verify("nie-to-haslo", hash)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, newHash)
}

func TestBcryptHasherVerifySignalsRehash(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("stare-haslo"), bcrypt.MinCost)
	require.NoError(t, err)

	h := NewBcryptHasher(bcrypt.MinCost + 2)
	ok, newHash, err := h.Verify("stare-haslo", string(legacy))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, newHash)

	cost, err := bcrypt.Cost([]byte(newHash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost+2, cost)
}

func TestNewBcryptHasherClampsInvalidCost(t *testing.T) {
	h := NewBcryptHasher(99)
	hash, err := h.Hash("haslo")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}
