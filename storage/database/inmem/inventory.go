package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/inventory"
)

type inventoryRepository struct {
	db *inventoryTables
}

var _ inventory.Repository = (*inventoryRepository)(nil) // interface compliance check

func NewInventoryRepository(db *DB) inventory.Repository {
	return &inventoryRepository{db: db.inventory}
}

func (repo *inventoryRepository) QueryTeachers(ctx context.Context, ords ...core.DBOrdering) ([]inventory.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]inventory.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		teachers = append(teachers, *t)
	}
	sort.SliceStable(teachers, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return teachers[i].ID
		case "name":
			return teachers[i].Name
		}
		return nil
	}))
	return teachers, nil
}

func (repo *inventoryRepository) QueryItems(ctx context.Context, teacherID int, ords ...core.DBOrdering) ([]inventory.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]inventory.Item, 0)
	for _, it := range repo.db.items {
		if it.TeacherID == teacherID {
			items = append(items, *it)
		}
	}
	sort.SliceStable(items, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return items[i].ID
		case "name":
			return items[i].Name
		case "sku":
			return items[i].SKU.String
		}
		return nil
	}))
	return items, nil
}

func (repo *inventoryRepository) QueryPurchases(ctx context.Context, itemID int, ords ...core.DBOrdering) ([]inventory.Purchase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	purchases := make([]inventory.Purchase, 0)
	for _, p := range repo.db.purchases {
		if p.ItemID == itemID {
			purchases = append(purchases, *p)
		}
	}
	sort.SliceStable(purchases, lessFunc(ords, func(i int, field string) interface{} {
		switch field {
		case "id":
			return purchases[i].ID
		case "purchased_at":
			return purchases[i].PurchasedAt
		case "quantity":
			return purchases[i].Quantity
		case "unit_price":
			return purchases[i].UnitPrice
		}
		return nil
	}))
	return purchases, nil
}

func (repo *inventoryRepository) CreateTeacher(_ context.Context, teacher inventory.Teacher) (inventory.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if teacher.Email.Valid {
		for _, t := range repo.db.teachers {
			if t.Email.Valid && t.Email.String == teacher.Email.String {
				return inventory.Teacher{}, inventory.ErrEmailExists
			}
		}
	}
	repo.db.pkCount++
	teacher.ID = repo.db.pkCount
	repo.db.teachers[teacher.ID] = &teacher
	return teacher, nil
}

func (repo *inventoryRepository) CreateItem(_ context.Context, item inventory.Item) (inventory.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.teachers[item.TeacherID]; !ok {
		return inventory.Item{}, inventory.ErrParentNotFound
	}
	repo.db.pkCount++
	item.ID = repo.db.pkCount
	repo.db.items[item.ID] = &item
	return item, nil
}

func (repo *inventoryRepository) CreatePurchase(_ context.Context, purchase inventory.Purchase) (inventory.Purchase, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.items[purchase.ItemID]; !ok {
		return inventory.Purchase{}, inventory.ErrParentNotFound
	}
	repo.db.pkCount++
	purchase.ID = repo.db.pkCount
	purchase.PurchasedAt = purchase.PurchasedAt.UTC()
	repo.db.purchases[purchase.ID] = &purchase
	return purchase, nil
}
