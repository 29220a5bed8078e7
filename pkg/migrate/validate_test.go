package migrate_test

import (
	"testing"

	"github.com/feirahub/marketplace-backend/pkg/migrate"
)

func TestValidateShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}
