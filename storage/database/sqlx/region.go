package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/region"
)

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

func pqErrorCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

type regionRepository struct {
	db *sqlx.DB
}

var _ region.Repository = (*regionRepository)(nil) // interface compliance check

func NewRegionRepository(db *sqlx.DB) region.Repository {
	return &regionRepository{db: db}
}

func (repo *regionRepository) QueryCountries(ctx context.Context, ords ...core.DBOrdering) ([]region.Country, error) {
	countries := make([]region.Country, 0)
	q := `SELECT id, code, name FROM country` + orderBy(ords, "id", "name", "code")
	if err := repo.db.SelectContext(ctx, &countries, q); err != nil {
		return nil, errors.Wrap(err, "selecting countries")
	}
	return countries, nil
}

func (repo *regionRepository) QueryStates(ctx context.Context, countryID int, ords ...core.DBOrdering) ([]region.State, error) {
	states := make([]region.State, 0)
	q := `SELECT id, country_id, name FROM state WHERE country_id = $1` + orderBy(ords, "id", "name")
	if err := repo.db.SelectContext(ctx, &states, q, countryID); err != nil {
		return nil, errors.Wrap(err, "selecting states")
	}
	return states, nil
}

func (repo *regionRepository) QueryDistricts(ctx context.Context, stateID int, ords ...core.DBOrdering) ([]region.District, error) {
	districts := make([]region.District, 0)
	q := `SELECT id, state_id, name FROM district WHERE state_id = $1` + orderBy(ords, "id", "name")
	if err := repo.db.SelectContext(ctx, &districts, q, stateID); err != nil {
		return nil, errors.Wrap(err, "selecting districts")
	}
	return districts, nil
}

func (repo *regionRepository) QueryTalukas(ctx context.Context, districtID int, ords ...core.DBOrdering) ([]region.Taluka, error) {
	talukas := make([]region.Taluka, 0)
	q := `SELECT id, district_id, name FROM taluka WHERE district_id = $1` + orderBy(ords, "id", "name")
	if err := repo.db.SelectContext(ctx, &talukas, q, districtID); err != nil {
		return nil, errors.Wrap(err, "selecting talukas")
	}
	return talukas, nil
}

func (repo *regionRepository) CreateCountry(ctx context.Context, country region.Country) (region.Country, error) {
	q := `INSERT INTO country (code, name) VALUES (:code, :name) RETURNING id`
	id, err := insert(ctx, repo.db, q, country)
	if err != nil {
		return region.Country{}, errors.Wrap(err, "inserting country")
	}
	country.ID = id
	return country, nil
}

func (repo *regionRepository) CreateState(ctx context.Context, state region.State) (region.State, error) {
	q := `INSERT INTO state (country_id, name) VALUES (:country_id, :name) RETURNING id`
	id, err := insert(ctx, repo.db, q, state)
	if err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return region.State{}, region.ErrParentNotFound
		}
		return region.State{}, errors.Wrap(err, "inserting state")
	}
	state.ID = id
	return state, nil
}

func (repo *regionRepository) CreateDistrict(ctx context.Context, district region.District) (region.District, error) {
	q := `INSERT INTO district (state_id, name) VALUES (:state_id, :name) RETURNING id`
	id, err := insert(ctx, repo.db, q, district)
	if err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return region.District{}, region.ErrParentNotFound
		}
		return region.District{}, errors.Wrap(err, "inserting district")
	}
	district.ID = id
	return district, nil
}

func (repo *regionRepository) CreateTaluka(ctx context.Context, taluka region.Taluka) (region.Taluka, error) {
	q := `INSERT INTO taluka (district_id, name) VALUES (:district_id, :name) RETURNING id`
	id, err := insert(ctx, repo.db, q, taluka)
	if err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return region.Taluka{}, region.ErrParentNotFound
		}
		return region.Taluka{}, errors.Wrap(err, "inserting taluka")
	}
	taluka.ID = id
	return taluka, nil
}

// insert runs a named INSERT ... RETURNING id.
func insert(ctx context.Context, db *sqlx.DB, q string, arg interface{}) (int, error) {
	stmt, err := db.PrepareNamedContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	var id int
	if err = stmt.GetContext(ctx, &id, arg); err != nil {
		return 0, err
	}
	return id, nil
}
