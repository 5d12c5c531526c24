package auth

import "golang.org/x/crypto/bcrypt"

func HashSecret(s string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	return string(b), err
}

// VerifySecret fails when hash is empty, so an unconfigured client can never
// authenticate.
func VerifySecret(plain, hash string) error {
	if hash == "" {
		return bcrypt.ErrHashTooShort
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
