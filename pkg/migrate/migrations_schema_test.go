package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studyassist/studyassist-backend/pkg/migrate"
)

func TestInitMigrationContainsCoreSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE profiles",
		"CREATE TABLE orders",
		"CREATE TABLE order_messages",
		"CREATE TABLE order_files",
		"CREATE TABLE notifications",
		"CHECK (rating BETWEEN 1 AND 5)",
		"'pending_payment'",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}
