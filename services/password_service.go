package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService hashes and verifies account credentials. New hashes are
// always bcrypt; legacy "sha256$salt$hex" hashes from the previous system
// still verify and are upgraded lazily on the next successful login.
type PasswordService struct{}

// NewPasswordService creates a password service.
func NewPasswordService() *PasswordService {
	return &PasswordService{}
}

// Hash produces a bcrypt hash of the given password.
func (s *PasswordService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks password against the stored hash. When the stored hash is
// in the legacy format and matches, it also returns an upgraded bcrypt hash
// the caller must persist within the same login.
func (s *PasswordService) Verify(stored, password string) (ok bool, upgraded string, err error) {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, "", nil
	}

	if !s.verifyLegacy(stored, password) {
		return false, "", nil
	}

	rehash, err := s.Hash(password)
	if err != nil {
		return false, "", err
	}
	return true, rehash, nil
}

// IsLegacy reports whether the stored hash uses the legacy format.
func (s *PasswordService) IsLegacy(stored string) bool {
	return strings.HasPrefix(stored, "sha256$")
}

// verifyLegacy checks a "sha256$salt$hexdigest" hash, where the digest is
// HMAC-SHA256 keyed with the salt.
func (s *PasswordService) verifyLegacy(stored, password string) bool {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 || parts[0] != "sha256" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(parts[1]))
	mac.Write([]byte(password))
	digest := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(digest), []byte(parts[2])) == 1
}

// LegacyHash produces a hash in the legacy format. Only used by tests and
// migration tooling; new credentials always go through Hash.
func (s *PasswordService) LegacyHash(salt, password string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(password))
	return fmt.Sprintf("sha256$%s$%s", salt, hex.EncodeToString(mac.Sum(nil)))
}
