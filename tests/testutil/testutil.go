package testutil

import (
	"os"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tramites-digitales/tramites-api/config"
	"github.com/tramites-digitales/tramites-api/models"
)

// TestSecret signs every token minted by the suites. It never leaves the
// test binaries.
const TestSecret = "integration-test-secret"

// RequireTestEnvironment fails the test immediately unless GO_ENV is set to
// "test". It prevents accidental execution of suites that touch env-driven
// configuration against a development or production setup.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: suites must run with GO_ENV=test (current: %q)", env)
	}
}

// MustSetTestEnvironment forces GO_ENV=test. Use in SetupSuite.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
}

// OpenTestDatabase opens an isolated in-memory database with the full
// schema migrated. Each call returns a fresh database.
func OpenTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Solicitud{}, &models.Tramite{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// TestConfig returns a configuration suitable for standing up the full
// router in a test process: local document storage under dir, permissive
// CORS and the shared test signing secret.
func TestConfig(dir string) *config.Config {
	return &config.Config{
		Port:            "0",
		GoEnv:           "test",
		JWTSecret:       TestSecret,
		UploadDir:       dir,
		MaxUploadBytes:  config.DefaultMaxUploadBytes,
		CORSOrigin:      "*",
		DocumentBackend: "local",
		LogLevel:        "error",
	}
}
