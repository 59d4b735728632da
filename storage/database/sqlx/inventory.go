package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/inventory"
)

type inventoryRepository struct {
	db *sqlx.DB
}

var _ inventory.Repository = (*inventoryRepository)(nil) // interface compliance check

func NewInventoryRepository(db *sqlx.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

func (repo *inventoryRepository) QueryTeachers(ctx context.Context, ords ...core.DBOrdering) ([]inventory.Teacher, error) {
	teachers := make([]inventory.Teacher, 0)
	q := `SELECT id, name, email FROM teacher` + orderBy(ords, "id", "name")
	if err := repo.db.SelectContext(ctx, &teachers, q); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	return teachers, nil
}

func (repo *inventoryRepository) QueryItems(ctx context.Context, teacherID int, ords ...core.DBOrdering) ([]inventory.Item, error) {
	items := make([]inventory.Item, 0)
	q := `SELECT id, teacher_id, name, sku FROM item WHERE teacher_id = $1` + orderBy(ords, "id", "name", "sku")
	if err := repo.db.SelectContext(ctx, &items, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "selecting items")
	}
	return items, nil
}

func (repo *inventoryRepository) QueryPurchases(ctx context.Context, itemID int, ords ...core.DBOrdering) ([]inventory.Purchase, error) {
	purchases := make([]inventory.Purchase, 0)
	q := `SELECT id, item_id, quantity, unit_price, purchased_at FROM purchase WHERE item_id = $1` +
		orderBy(ords, "id", "purchased_at", "quantity", "unit_price")
	if err := repo.db.SelectContext(ctx, &purchases, q, itemID); err != nil {
		return nil, errors.Wrap(err, "selecting purchases")
	}
	for i := range purchases {
		purchases[i].PurchasedAt = purchases[i].PurchasedAt.UTC()
	}
	return purchases, nil
}

func (repo *inventoryRepository) CreateTeacher(ctx context.Context, teacher inventory.Teacher) (inventory.Teacher, error) {
	q := `INSERT INTO teacher (name, email) VALUES (:name, :email) RETURNING id`
	id, err := insert(ctx, repo.db, q, teacher)
	if err != nil {
		if pqErrorCode(err) == uniqueViolation {
			return inventory.Teacher{}, inventory.ErrEmailExists
		}
		return inventory.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	teacher.ID = id
	return teacher, nil
}

func (repo *inventoryRepository) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	q := `INSERT INTO item (teacher_id, name, sku) VALUES (:teacher_id, :name, :sku) RETURNING id`
	id, err := insert(ctx, repo.db, q, item)
	if err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return inventory.Item{}, inventory.ErrParentNotFound
		}
		return inventory.Item{}, errors.Wrap(err, "inserting item")
	}
	item.ID = id
	return item, nil
}

func (repo *inventoryRepository) CreatePurchase(ctx context.Context, purchase inventory.Purchase) (inventory.Purchase, error) {
	purchase.PurchasedAt = purchase.PurchasedAt.UTC()
	q := `INSERT INTO purchase (item_id, quantity, unit_price, purchased_at)
		VALUES (:item_id, :quantity, :unit_price, :purchased_at) RETURNING id`
	id, err := insert(ctx, repo.db, q, purchase)
	if err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return inventory.Purchase{}, inventory.ErrParentNotFound
		}
		return inventory.Purchase{}, errors.Wrap(err, "inserting purchase")
	}
	purchase.ID = id
	return purchase, nil
}
