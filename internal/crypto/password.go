// Package crypto provides password hashing for the credential store.
package crypto

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the library default. Raising it is a config-free code
// change because stored hashes embed their own cost.
const bcryptCost = bcrypt.DefaultCost

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// The comparison is constant-time with respect to the hash contents.
func VerifyPassword(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
