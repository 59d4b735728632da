package inmemdb

import (
	"strings"
	"sync"
	"time"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/inventory"
	"github.com/trezcool/masomo-dashboard/core/region"
)

type (
	DB struct {
		region    *regionTables
		inventory *inventoryTables
	}

	regionTables struct {
		sync.RWMutex
		pkCount   int
		countries map[int]*region.Country
		states    map[int]*region.State
		districts map[int]*region.District
		talukas   map[int]*region.Taluka
	}

	inventoryTables struct {
		sync.RWMutex
		pkCount   int
		teachers  map[int]*inventory.Teacher
		items     map[int]*inventory.Item
		purchases map[int]*inventory.Purchase
	}
)

func Open() (*DB, error) {
	db := &DB{
		region: &regionTables{
			countries: make(map[int]*region.Country),
			states:    make(map[int]*region.State),
			districts: make(map[int]*region.District),
			talukas:   make(map[int]*region.Taluka),
		},
		inventory: &inventoryTables{
			teachers:  make(map[int]*inventory.Teacher),
			items:     make(map[int]*inventory.Item),
			purchases: make(map[int]*inventory.Purchase),
		},
	}
	return db, nil
}

// column returns the value of `field` for row i; nil for unknown fields.
type column func(i int, field string) interface{}

// lessFunc orders rows on `ords`, then by id.
func lessFunc(ords []core.DBOrdering, col column) func(i, j int) bool {
	return func(i, j int) bool {
		for _, ord := range ords {
			c := compare(col(i, ord.Field), col(j, ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return compare(col(i, "id"), col(j, "id")) < 0
	}
}

func compare(a, b interface{}) int {
	switch a := a.(type) {
	case int:
		if b, ok := b.(int); ok {
			return a - b
		}
	case int64:
		if b, ok := b.(int64); ok {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
		}
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(a), strings.ToLower(b))
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			switch {
			case a.Before(b):
				return -1
			case a.After(b):
				return 1
			}
		}
	}
	return 0
}
