// Package storage opens the reference-data repositories of the configured backend.
package storage

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/inventory"
	"github.com/trezcool/masomo-dashboard/core/region"
	"github.com/trezcool/masomo-dashboard/fs"
	"github.com/trezcool/masomo-dashboard/storage/database"
	inmemdb "github.com/trezcool/masomo-dashboard/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-dashboard/storage/database/sqlx"
)

var ErrUnknownStorage = errors.New("unknown storage")

type Repositories struct {
	Region    region.Repository
	Inventory inventory.Repository

	close func() error
}

// Open returns the repositories of conf.Storage. The database is created and migrated if needed.
func Open(ctx context.Context, conf *core.Config) (*Repositories, error) {
	switch conf.Storage {
	case core.StorageMemory:
		return OpenMemory()

	case core.StorageDatabase:
		db, err := database.Prepare(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Region:    sqlxrepos.NewRegionRepository(db),
			Inventory: sqlxrepos.NewInventoryRepository(db),
			close:     db.Close,
		}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownStorage, "%q", conf.Storage)
	}
}

// OpenMemory returns empty in-memory repositories.
func OpenMemory() (*Repositories, error) {
	db, err := inmemdb.Open()
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Region:    inmemdb.NewRegionRepository(db),
		Inventory: inmemdb.NewInventoryRepository(db),
		close:     func() error { return nil },
	}, nil
}

func (r *Repositories) Close() error {
	return r.close()
}

// Dataset is the JSON document imported by `admin seed`.
type Dataset struct {
	Region    region.Dataset    `json:"region"`
	Inventory inventory.Dataset `json:"inventory"`
}

type SeedStats struct {
	Region    region.ImportStats    `json:"region"`
	Inventory inventory.ImportStats `json:"inventory"`
}

func LoadDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return ds, core.NewValidationError(errors.Wrap(err, "decoding dataset"))
	}
	return ds, nil
}

// SampleDataset returns the dataset shipped with the binaries.
func SampleDataset() (Dataset, error) {
	f, err := appfs.FS.Open(appfs.DatasetPath)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "opening sample dataset")
	}
	defer func() { _ = f.Close() }()
	return LoadDataset(f)
}

// Seed imports `ds` through the services, regions first.
func Seed(ctx context.Context, ds Dataset, regions *region.Service, inv *inventory.Service) (SeedStats, error) {
	var stats SeedStats
	var err error

	if stats.Region, err = regions.Import(ctx, ds.Region); err != nil {
		return stats, errors.Wrap(err, "importing regions")
	}
	if stats.Inventory, err = inv.Import(ctx, ds.Inventory); err != nil {
		return stats, errors.Wrap(err, "importing inventory")
	}
	return stats, nil
}
