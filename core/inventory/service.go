package inventory

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

var (
	// errors
	ErrParentNotFound = errors.New("inventory: parent not found")
	ErrEmailExists    = errors.New("a teacher with this email already exists")
)

type (
	Repository interface {
		QueryTeachers(ctx context.Context, ords ...core.DBOrdering) ([]Teacher, error)
		QueryItems(ctx context.Context, teacherID int, ords ...core.DBOrdering) ([]Item, error)
		QueryPurchases(ctx context.Context, itemID int, ords ...core.DBOrdering) ([]Purchase, error)
		// CreateTeacher fails with ErrEmailExists when the email is taken.
		CreateTeacher(ctx context.Context, teacher Teacher) (Teacher, error)
		// CreateItem and CreatePurchase fail with ErrParentNotFound for unknown parents.
		CreateItem(ctx context.Context, item Item) (Item, error)
		CreatePurchase(ctx context.Context, purchase Purchase) (Purchase, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}

	ImportStats struct {
		Teachers  int `json:"teachers"`
		Items     int `json:"items"`
		Purchases int `json:"purchases"`
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Levels() []string { return Levels }

// OrderingFields returns the fields the options of `level` can be ordered by.
func (svc *Service) OrderingFields(level string) []string { return orderingFields[level] }

// Options returns the options of `level` under `parent`, the id selected on the level above
// (empty for teachers). Purchases come most recent first, everything else by name.
func (svc *Service) Options(ctx context.Context, level, parent string, ords ...core.DBOrdering) ([]cascade.Option, error) {
	if len(ords) == 0 {
		ords = defaultOrderings[level]
	}

	switch level {
	case LevelTeacher:
		teachers, err := svc.repo.QueryTeachers(ctx, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying teachers")
		}
		options := make([]cascade.Option, 0, len(teachers))
		for _, t := range teachers {
			options = append(options, t.Option())
		}
		return options, nil

	case LevelItem:
		teacherID, err := core.ParseID("teacher_id", parent)
		if err != nil {
			return nil, err
		}
		items, err := svc.repo.QueryItems(ctx, teacherID, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying items")
		}
		options := make([]cascade.Option, 0, len(items))
		for _, it := range items {
			options = append(options, it.Option())
		}
		return options, nil

	case LevelPurchase:
		itemID, err := core.ParseID("item_id", parent)
		if err != nil {
			return nil, err
		}
		purchases, err := svc.repo.QueryPurchases(ctx, itemID, ords...)
		if err != nil {
			return nil, errors.Wrap(err, "querying purchases")
		}
		options := make([]cascade.Option, 0, len(purchases))
		for _, p := range purchases {
			options = append(options, p.Option())
		}
		return options, nil

	default:
		return nil, errors.Wrapf(cascade.ErrUnknownLevel, "%q", level)
	}
}

// Import validates and creates teachers with their items and purchases.
func (svc *Service) Import(ctx context.Context, ds Dataset) (ImportStats, error) {
	var stats ImportStats

	ds.Clean()
	if err := svc.validate.Struct(ds); err != nil {
		return stats, err
	}

	for _, nt := range ds.Teachers {
		teacher := Teacher{Name: nt.Name}
		if nt.Email != "" {
			teacher.Email = null.StringFrom(nt.Email)
		}
		teacher, err := svc.repo.CreateTeacher(ctx, teacher)
		if err != nil {
			if errors.Cause(err) == ErrEmailExists {
				return stats, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
			}
			return stats, errors.Wrapf(err, "creating teacher %q", nt.Name)
		}
		stats.Teachers++

		for _, ni := range nt.Items {
			item := Item{TeacherID: teacher.ID, Name: ni.Name}
			if ni.SKU != "" {
				item.SKU = null.StringFrom(ni.SKU)
			}
			item, err := svc.repo.CreateItem(ctx, item)
			if err != nil {
				return stats, errors.Wrapf(err, "creating item %q", ni.Name)
			}
			stats.Items++

			for _, np := range ni.Purchases {
				_, err := svc.repo.CreatePurchase(ctx, Purchase{
					ItemID:      item.ID,
					Quantity:    np.Quantity,
					UnitPrice:   np.UnitPrice,
					PurchasedAt: np.PurchasedAt,
				})
				if err != nil {
					return stats, errors.Wrapf(err, "creating purchase of %q", ni.Name)
				}
				stats.Purchases++
			}
		}
	}
	return stats, nil
}
