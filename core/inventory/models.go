package inventory

import (
	"fmt"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

// Levels
const (
	LevelTeacher  = "teacher"
	LevelItem     = "item"
	LevelPurchase = "purchase"
)

var (
	Levels = []string{LevelTeacher, LevelItem, LevelPurchase}

	orderingFields = map[string][]string{
		LevelTeacher:  {"id", "name"},
		LevelItem:     {"id", "name", "sku"},
		LevelPurchase: {"id", "purchased_at", "quantity", "unit_price"},
	}
	defaultOrderings = map[string][]core.DBOrdering{
		LevelTeacher:  {{Field: "name", Ascending: true}},
		LevelItem:     {{Field: "name", Ascending: true}},
		LevelPurchase: {{Field: "purchased_at", Ascending: false}},
	}
)

type Teacher struct {
	ID    int         `json:"id" db:"id"`
	Name  string      `json:"name" db:"name"`
	Email null.String `json:"email" db:"email"`
}

func (t Teacher) Option() cascade.Option {
	opt := cascade.Option{ID: strconv.Itoa(t.ID), Name: t.Name}
	if t.Email.Valid {
		opt.Attrs = map[string]string{"email": t.Email.String}
	}
	return opt
}

type Item struct {
	ID        int         `json:"id" db:"id"`
	TeacherID int         `json:"teacher_id" db:"teacher_id"`
	Name      string      `json:"name" db:"name"`
	SKU       null.String `json:"sku" db:"sku"`
}

func (it Item) Option() cascade.Option {
	opt := cascade.Option{
		ID:    strconv.Itoa(it.ID),
		Name:  it.Name,
		Attrs: map[string]string{"teacher_id": strconv.Itoa(it.TeacherID)},
	}
	if it.SKU.Valid {
		opt.Attrs["sku"] = it.SKU.String
	}
	return opt
}

type Purchase struct {
	ID          int       `json:"id" db:"id"`
	ItemID      int       `json:"item_id" db:"item_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   int64     `json:"unit_price" db:"unit_price"`     // in cents
	PurchasedAt time.Time `json:"purchased_at" db:"purchased_at"` // UTC
}

func (p Purchase) Total() int64 { return int64(p.Quantity) * p.UnitPrice }

func (p Purchase) Option() cascade.Option {
	return cascade.Option{
		ID:   strconv.Itoa(p.ID),
		Name: fmt.Sprintf("%s: %d × %s", p.PurchasedAt.Format("2006-01-02"), p.Quantity, formatCents(p.UnitPrice)),
		Attrs: map[string]string{
			"item_id":      strconv.Itoa(p.ItemID),
			"quantity":     strconv.Itoa(p.Quantity),
			"unit_price":   strconv.FormatInt(p.UnitPrice, 10),
			"total":        strconv.FormatInt(p.Total(), 10),
			"purchased_at": p.PurchasedAt.Format(time.RFC3339),
		},
	}
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

// Dataset is a list of teachers with their inventory, as imported by `admin seed`.
type Dataset struct {
	Teachers []NewTeacher `json:"teachers" validate:"dive"`
}

type NewTeacher struct {
	Name  string    `json:"name" validate:"required"`
	Email string    `json:"email" validate:"omitempty,email"`
	Items []NewItem `json:"items" validate:"dive"`
}

type NewItem struct {
	Name      string        `json:"name" validate:"required"`
	SKU       string        `json:"sku" validate:"omitempty,max=32"`
	Purchases []NewPurchase `json:"purchases" validate:"dive"`
}

type NewPurchase struct {
	Quantity    int       `json:"quantity" validate:"min=1"`
	UnitPrice   int64     `json:"unit_price" validate:"min=0"`
	PurchasedAt time.Time `json:"purchased_at" validate:"required"`
}

// Clean trims names, lowers emails and normalizes purchase dates to UTC.
func (ds *Dataset) Clean() {
	for i := range ds.Teachers {
		t := &ds.Teachers[i]
		t.Name = core.CleanString(t.Name)
		t.Email = core.CleanString(t.Email, true /* lower */)
		for j := range t.Items {
			it := &t.Items[j]
			it.Name = core.CleanString(it.Name)
			it.SKU = core.CleanString(it.SKU)
			for k := range it.Purchases {
				it.Purchases[k].PurchasedAt = it.Purchases[k].PurchasedAt.UTC()
			}
		}
	}
}
