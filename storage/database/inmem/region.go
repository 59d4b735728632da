package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/region"
)

type regionRepository struct {
	db *regionTables
}

var _ region.Repository = (*regionRepository)(nil) // interface compliance check

func NewRegionRepository(db *DB) region.Repository {
	return &regionRepository{db: db.region}
}

func (repo *regionRepository) QueryCountries(ctx context.Context, ords ...core.DBOrdering) ([]region.Country, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	countries := make([]region.Country, 0, len(repo.db.countries))
	for _, c := range repo.db.countries {
		countries = append(countries, *c)
	}
	sort.SliceStable(countries, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return countries[i].ID
		case "name":
			return countries[i].Name
		case "code":
			return countries[i].Code
		}
		return nil
	}))
	return countries, nil
}

func (repo *regionRepository) QueryStates(ctx context.Context, countryID int, ords ...core.DBOrdering) ([]region.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	states := make([]region.State, 0)
	for _, s := range repo.db.states {
		if s.CountryID == countryID {
			states = append(states, *s)
		}
	}
	sort.SliceStable(states, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return states[i].ID
		case "name":
			return states[i].Name
		}
		return nil
	}))
	return states, nil
}

func (repo *regionRepository) QueryDistricts(ctx context.Context, stateID int, ords ...core.DBOrdering) ([]region.District, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	districts := make([]region.District, 0)
	for _, d := range repo.db.districts {
		if d.StateID == stateID {
			districts = append(districts, *d)
		}
	}
	sort.SliceStable(districts, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return districts[i].ID
		case "name":
			return districts[i].Name
		}
		return nil
	}))
	return districts, nil
}

func (repo *regionRepository) QueryTalukas(ctx context.Context, districtID int, ords ...core.DBOrdering) ([]region.Taluka, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	talukas := make([]region.Taluka, 0)
	for _, t := range repo.db.talukas {
		if t.DistrictID == districtID {
			talukas = append(talukas, *t)
		}
	}
	sort.SliceStable(talukas, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return talukas[i].ID
		case "name":
			return talukas[i].Name
		}
		return nil
	}))
	return talukas, nil
}

func (repo *regionRepository) CreateCountry(_ context.Context, country region.Country) (region.Country, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	country.ID = repo.db.pkCount
	repo.db.countries[country.ID] = &country
	return country, nil
}

func (repo *regionRepository) CreateState(_ context.Context, state region.State) (region.State, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.countries[state.CountryID]; !ok {
		return region.State{}, region.ErrParentNotFound
	}
	repo.db.pkCount++
	state.ID = repo.db.pkCount
	repo.db.states[state.ID] = &state
	return state, nil
}

func (repo *regionRepository) CreateDistrict(_ context.Context, district region.District) (region.District, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.states[district.StateID]; !ok {
		return region.District{}, region.ErrParentNotFound
	}
	repo.db.pkCount++
	district.ID = repo.db.pkCount
	repo.db.districts[district.ID] = &district
	return district, nil
}

func (repo *regionRepository) CreateTaluka(_ context.Context, taluka region.Taluka) (region.Taluka, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.districts[taluka.DistrictID]; !ok {
		return region.Taluka{}, region.ErrParentNotFound
	}
	repo.db.pkCount++
	taluka.ID = repo.db.pkCount
	repo.db.talukas[taluka.ID] = &taluka
	return taluka, nil
}
