package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/inventory"
	"github.com/trezcool/masomo-dashboard/core/region"
	"github.com/trezcool/masomo-dashboard/storage"
)

// seed imports the dataset at `path` (or the sample dataset) into the configured storage.
func (cli *commandLine) seed(path string) error {
	ds, err := loadDataset(path)
	if err != nil {
		return err
	}

	repos, err := cli.openStorage()
	if err != nil {
		return errors.Wrap(err, "opening storage")
	}
	defer func() { _ = repos.Close() }()

	validate, _ := core.NewValidator()
	stats, err := storage.Seed(
		context.Background(),
		ds,
		region.NewService(repos.Region, validate),
		inventory.NewService(repos.Inventory, validate),
	)
	if err != nil {
		return err
	}

	cli.logger.Info("dataset imported", map[string]interface{}{"storage": cli.conf.Storage})
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func loadDataset(path string) (storage.Dataset, error) {
	if path == "" {
		return storage.SampleDataset()
	}
	f, err := os.Open(path)
	if err != nil {
		return storage.Dataset{}, errors.Wrap(err, "opening dataset")
	}
	defer func() { _ = f.Close() }()
	return storage.LoadDataset(f)
}
