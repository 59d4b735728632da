// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
	"github.com/trezcool/masomo-dashboard/core/forms"
	"github.com/trezcool/masomo-dashboard/core/inventory"
	"github.com/trezcool/masomo-dashboard/core/region"
	"github.com/trezcool/masomo-dashboard/storage"
	"github.com/trezcool/masomo-dashboard/storage/database"
)

var tables = "country, state, district, taluka, teacher, item, purchase"

// PrepareDB connects to the test database, migrates it and empties every table.
// Tests are skipped unless the database storage is configured, eg. TEST_STORAGE=database.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewConfig()
	if conf.Storage != core.StorageDatabase {
		t.Skip("database storage not configured")
	}

	db, err := database.Prepare(context.Background(), conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err = db.Exec("TRUNCATE " + tables + " RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewCatalog returns a catalog over in-memory repositories seeded with the sample dataset.
func NewCatalog(t *testing.T) *forms.Catalog {
	t.Helper()

	repos, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}
	validate, _ := core.NewValidator()
	regions := region.NewService(repos.Region, validate)
	inv := inventory.NewService(repos.Inventory, validate)

	ds, err := storage.SampleDataset()
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}
	if _, err = storage.Seed(context.Background(), ds, regions, inv); err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}

	catalog, err := forms.NewCatalog(regions, inv)
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}
	return catalog
}

// OptionID returns the id of the option named `name`.
func OptionID(t *testing.T, options []cascade.Option, name string) string {
	t.Helper()
	for _, opt := range options {
		if opt.Name == name {
			return opt.ID
		}
	}
	t.Fatalf("OptionID(): no option named %q", name)
	return ""
}
