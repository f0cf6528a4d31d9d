package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migration dir failed validation: %v", err)
	}
}

func TestLicensingMigrationDeclaresUniqueConstraints(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var found bool
	for _, e := range entries {
		if !strings.Contains(e.Name(), "create_licensing_tables") {
			continue
		}
		found = true
		b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
		if err != nil {
			t.Fatalf("read migration: %v", err)
		}
		sql := string(b)

		// The store's conflict semantics depend on these constraints existing.
		for _, constraint := range []string{
			"UNIQUE (license_key)",
			"UNIQUE (stripe_checkout_session_id)",
			"UNIQUE (license_id, fingerprint)",
		} {
			if !strings.Contains(sql, constraint) {
				t.Fatalf("migration missing constraint %q", constraint)
			}
		}
	}
	if !found {
		t.Fatal("create_licensing_tables migration not found")
	}
}
