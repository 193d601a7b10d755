package utils

import (
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

func BcryptCost() int {
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err == nil && cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			return cost
		}
	}
	return bcrypt.DefaultCost
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost())
	return string(bytes), err
}

// CheckPassword reports whether password matches hash. A mismatch is not an
// error, just false.
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
