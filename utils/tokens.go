package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func AccessSecret() []byte  { return []byte(os.Getenv("ACCESS_TOKEN_SECRET")) }
func RefreshSecret() []byte { return []byte(os.Getenv("REFRESH_TOKEN_SECRET")) }

func GenerateAccessToken(userID, email, username string) (string, error) {
	return signToken(userID, email, username, AccessSecret(), AccessTTL(), "")
}

// GenerateRefreshToken mints with a fresh jti so that two rotations inside
// the same second never produce byte-identical tokens.
func GenerateRefreshToken(userID, email, username string) (string, error) {
	return signToken(userID, email, username, RefreshSecret(), RefreshTTL(), uuid.NewString())
}

func signToken(userID, email, username string, secret []byte, ttl time.Duration, jti string) (string, error) {
	claims := Claims{
		UserID:   userID,
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ValidateToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TemporaryToken is a single-use token for email verification and password
// reset. Plain goes to the user in a link; only Hashed is persisted.
type TemporaryToken struct {
	Plain     string
	Hashed    string
	ExpiresAt time.Time
}

func GenerateTemporaryToken() (*TemporaryToken, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	plain := hex.EncodeToString(buf)
	return &TemporaryToken{
		Plain:     plain,
		Hashed:    HashTemporaryToken(plain),
		ExpiresAt: time.Now().UTC().Add(TempTokenTTL()),
	}, nil
}

func HashTemporaryToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func AccessTTL() time.Duration {
	minStr := os.Getenv("ACCESS_TOKEN_TTL_MINUTES")
	min, _ := strconv.Atoi(minStr)
	if min <= 0 {
		min = 15
	}
	return time.Duration(min) * time.Minute
}

func RefreshTTL() time.Duration {
	dStr := os.Getenv("REFRESH_TOKEN_TTL_DAYS")
	days, _ := strconv.Atoi(dStr)
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func TempTokenTTL() time.Duration {
	minStr := os.Getenv("TEMP_TOKEN_TTL_MINUTES")
	min, _ := strconv.Atoi(minStr)
	if min <= 0 {
		min = 20
	}
	return time.Duration(min) * time.Minute
}
