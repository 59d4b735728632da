package region

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

var (
	// errors
	ErrParentNotFound = errors.New("region: parent not found")
)

type (
	// Repository queries are filtered by parent id and return an empty list for unknown parents.
	Repository interface {
		QueryCountries(ctx context.Context, ords ...core.DBOrdering) ([]Country, error)
		QueryStates(ctx context.Context, countryID int, ords ...core.DBOrdering) ([]State, error)
		QueryDistricts(ctx context.Context, stateID int, ords ...core.DBOrdering) ([]District, error)
		QueryTalukas(ctx context.Context, districtID int, ords ...core.DBOrdering) ([]Taluka, error)
		CreateCountry(ctx context.Context, country Country) (Country, error)
		// CreateState, CreateDistrict and CreateTaluka fail with ErrParentNotFound for unknown parents.
		CreateState(ctx context.Context, state State) (State, error)
		CreateDistrict(ctx context.Context, district District) (District, error)
		CreateTaluka(ctx context.Context, taluka Taluka) (Taluka, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}

	ImportStats struct {
		Countries int `json:"countries"`
		States    int `json:"states"`
		Districts int `json:"districts"`
		Talukas   int `json:"talukas"`
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Levels() []string { return Levels }

// OrderingFields returns the fields the options of `level` can be ordered by.
func (svc *Service) OrderingFields(level string) []string { return orderingFields[level] }

// Options returns the options of `level` under `parent`, the id selected on the level above
// (empty for countries). Options are sorted by name unless `ords` says otherwise.
func (svc *Service) Options(ctx context.Context, level, parent string, ords ...core.DBOrdering) ([]cascade.Option, error) {
	if len(ords) == 0 {
		ords = defaultOrdering
	}

	if level == LevelCountry {
		countries, err := svc.repo.QueryCountries(ctx, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying countries")
		}
		options := make([]cascade.Option, 0, len(countries))
		for _, c := range countries {
			options = append(options, c.Option())
		}
		return options, nil
	}

	var parentField string
	switch level {
	case LevelState:
		parentField = "country_id"
	case LevelDistrict:
		parentField = "state_id"
	case LevelTaluka:
		parentField = "district_id"
	default:
		return nil, errors.Wrapf(cascade.ErrUnknownLevel, "%q", level)
	}
	parentID, err := core.ParseID(parentField, parent)
	if err != nil {
		return nil, err
	}

	var options []cascade.Option
	switch level {
	case LevelState:
		states, err := svc.repo.QueryStates(ctx, parentID, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying states")
		}
		options = make([]cascade.Option, 0, len(states))
		for _, s := range states {
			options = append(options, s.Option())
		}
	case LevelDistrict:
		districts, err := svc.repo.QueryDistricts(ctx, parentID, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying districts")
		}
		options = make([]cascade.Option, 0, len(districts))
		for _, d := range districts {
			options = append(options, d.Option())
		}
	case LevelTaluka:
		talukas, err := svc.repo.QueryTalukas(ctx, parentID, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying talukas")
		}
		options = make([]cascade.Option, 0, len(talukas))
		for _, t := range talukas {
			options = append(options, t.Option())
		}
	}
	return options, nil
}

// Import validates and creates a whole region tree.
// Nothing is created when validation fails; a storage failure may leave the tree partially imported.
func (svc *Service) Import(ctx context.Context, ds Dataset) (ImportStats, error) {
	var stats ImportStats

	ds.Clean()
	if err := svc.validate.Struct(ds); err != nil {
		return stats, err
	}

	for _, nc := range ds.Countries {
		country, err := svc.repo.CreateCountry(ctx, Country{Code: nc.Code, Name: nc.Name})
		if err != nil {
			return stats, errors.Wrapf(err, "creating country %q", nc.Name)
		}
		stats.Countries++

		for _, ns := range nc.States {
			state, err := svc.repo.CreateState(ctx, State{CountryID: country.ID, Name: ns.Name})
			if err != nil {
				return stats, errors.Wrapf(err, "creating state %q", ns.Name)
			}
			stats.States++

			for _, nd := range ns.Districts {
				district, err := svc.repo.CreateDistrict(ctx, District{StateID: state.ID, Name: nd.Name})
				if err != nil {
					return stats, errors.Wrapf(err, "creating district %q", nd.Name)
				}
				stats.Districts++

				for _, name := range nd.Talukas {
					if _, err := svc.repo.CreateTaluka(ctx, Taluka{DistrictID: district.ID, Name: name}); err != nil {
						return stats, errors.Wrapf(err, "creating taluka %q", name)
					}
					stats.Talukas++
				}
			}
		}
	}
	return stats, nil
}
