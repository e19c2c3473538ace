package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ServiceKeyVerifier checks the X-Service-Key header of trusted machine
// callers (storage notifications, batch importers) against a bcrypt hash.
type ServiceKeyVerifier struct {
	hash []byte
}

func NewServiceKeyVerifier(hash string) *ServiceKeyVerifier {
	if hash == "" {
		return nil
	}
	return &ServiceKeyVerifier{hash: []byte(hash)}
}

func (v *ServiceKeyVerifier) Check(key string) error {
	if v == nil {
		return errors.New("service key authentication disabled")
	}
	if key == "" {
		return errors.New("missing service key")
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(key))
}

// HashServiceKey produces the value stored in auth.service_key_hash.
func HashServiceKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}
