package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes an account password for storage in the users
// table. Only email/password accounts carry a real hash; OAuth-created
// accounts never call this.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
