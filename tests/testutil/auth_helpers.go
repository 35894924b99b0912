package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/models"
	"github.com/tramites-digitales/tramites-api/services"
)

// NewTokenService returns a token service signed with the shared test
// secret, matching the one TestConfig hands to the router.
func NewTokenService() *services.TokenService {
	return services.NewTokenService(TestSecret)
}

// CreateUser inserts a user with a bcrypt hash of the given password and
// returns it.
func CreateUser(t *testing.T, db *gorm.DB, name, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	user := &models.User{Name: name, Email: email, Password: string(hash)}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// IssueToken mints a bearer token for the user with the shared test secret.
func IssueToken(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := NewTokenService().Issue(user.ID)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}
