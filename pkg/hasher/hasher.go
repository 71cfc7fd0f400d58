package hasher

import (
	"golang.org/x/crypto/bcrypt"
)

const cost = 10

// HashPassword returns a bcrypt hash of pw.
func HashPassword(pw []byte) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(pw, cost)
	return string(bytes), err
}

// PasswordCorrect reports whether password matches a hash from HashPassword.
// An empty hash never matches.
func PasswordCorrect(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
