package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUsername folds the username to its canonical lowercase form so
// uniqueness is case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(username)))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
