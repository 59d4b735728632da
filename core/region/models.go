package region

import (
	"strconv"
	"strings"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

// Levels
const (
	LevelCountry  = "country"
	LevelState    = "state"
	LevelDistrict = "district"
	LevelTaluka   = "taluka"
)

var (
	Levels = []string{LevelCountry, LevelState, LevelDistrict, LevelTaluka}

	orderingFields = map[string][]string{
		LevelCountry:  {"id", "name", "code"},
		LevelState:    {"id", "name"},
		LevelDistrict: {"id", "name"},
		LevelTaluka:   {"id", "name"},
	}
	defaultOrdering = []core.DBOrdering{{Field: "name", Ascending: true}}
)

type Country struct {
	ID   int    `json:"id" db:"id"`
	Code string `json:"code" db:"code"` // ISO 3166-1 alpha-2
	Name string `json:"name" db:"name"`
}

func (c Country) Option() cascade.Option {
	return cascade.Option{
		ID:    strconv.Itoa(c.ID),
		Name:  c.Name,
		Attrs: map[string]string{"code": c.Code},
	}
}

type State struct {
	ID        int    `json:"id" db:"id"`
	CountryID int    `json:"country_id" db:"country_id"`
	Name      string `json:"name" db:"name"`
}

func (s State) Option() cascade.Option {
	return cascade.Option{
		ID:    strconv.Itoa(s.ID),
		Name:  s.Name,
		Attrs: map[string]string{"country_id": strconv.Itoa(s.CountryID)},
	}
}

type District struct {
	ID      int    `json:"id" db:"id"`
	StateID int    `json:"state_id" db:"state_id"`
	Name    string `json:"name" db:"name"`
}

func (d District) Option() cascade.Option {
	return cascade.Option{
		ID:    strconv.Itoa(d.ID),
		Name:  d.Name,
		Attrs: map[string]string{"state_id": strconv.Itoa(d.StateID)},
	}
}

type Taluka struct {
	ID         int    `json:"id" db:"id"`
	DistrictID int    `json:"district_id" db:"district_id"`
	Name       string `json:"name" db:"name"`
}

func (t Taluka) Option() cascade.Option {
	return cascade.Option{
		ID:    strconv.Itoa(t.ID),
		Name:  t.Name,
		Attrs: map[string]string{"district_id": strconv.Itoa(t.DistrictID)},
	}
}

// Dataset is a nested region tree, as imported by `admin seed`.
type Dataset struct {
	Countries []NewCountry `json:"countries" validate:"dive"`
}

type NewCountry struct {
	Code   string     `json:"code" validate:"required,len=2,alpha"`
	Name   string     `json:"name" validate:"required"`
	States []NewState `json:"states" validate:"dive"`
}

type NewState struct {
	Name      string        `json:"name" validate:"required"`
	Districts []NewDistrict `json:"districts" validate:"dive"`
}

type NewDistrict struct {
	Name    string   `json:"name" validate:"required"`
	Talukas []string `json:"talukas" validate:"dive,required"`
}

// Clean trims every name of the tree and upper-cases country codes.
func (ds *Dataset) Clean() {
	for i := range ds.Countries {
		c := &ds.Countries[i]
		c.Code = strings.ToUpper(core.CleanString(c.Code))
		c.Name = core.CleanString(c.Name)
		for j := range c.States {
			s := &c.States[j]
			s.Name = core.CleanString(s.Name)
			for k := range s.Districts {
				d := &s.Districts[k]
				d.Name = core.CleanString(d.Name)
				for l := range d.Talukas {
					d.Talukas[l] = core.CleanString(d.Talukas[l])
				}
			}
		}
	}
}
