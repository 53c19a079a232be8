// Package service provides API key generation and verification for applications.
package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/eventhub/internal/errors"
)

// KeyService generates and verifies application API key secrets.
type KeyService interface {
	// Generate returns a random secret and its Argon2id hash.
	Generate() (plainSecret string, hashedSecret string, err error)
	// Compare reports whether plainSecret matches hashedSecret.
	Compare(plainSecret string, hashedSecret string) bool
}

type keyService struct {
	hasher *pwdhash.PasswordHasher
}

// NewKeyService creates a KeyService using the Moderate Argon2id policy.
func NewKeyService() KeyService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		panic(err)
	}
	return &keyService{hasher: hasher}
}

func (s *keyService) Generate() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate api key")
	}

	// RawURLEncoding never emits '.', the separator between app id and secret.
	plain := base64.RawURLEncoding.EncodeToString(randomBytes)

	hashed, err := s.hasher.Hash([]byte(plain))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to hash api key")
	}
	return plain, hashed, nil
}

func (s *keyService) Compare(plainSecret string, hashedSecret string) bool {
	ok, err := s.hasher.Verify([]byte(plainSecret), hashedSecret)
	if err != nil {
		return false
	}
	return ok
}
