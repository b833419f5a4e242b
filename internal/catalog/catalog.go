package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/domain"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Catalog bundles the document collections of the service
type Catalog struct {
	db         *gorm.DB
	Products   *GormRepository[domain.Product]
	Packs      *GormRepository[domain.Pack]
	PackItems  *PackItemRepository
	Orders     *GormRepository[domain.Order]
	Users      *GormRepository[domain.User]
	Properties *GormRepository[domain.Property]
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{
		db: db,
		Products: NewGormRepository[domain.Product](db, "product",
			"name", "description", "supplier", "cost_price", "default_markup", "active",
			"image_url", "image_thumb", "created_at", "updated_at"),
		Packs: NewGormRepository[domain.Pack](db, "pack",
			"name", "description", "price", "type", "target_margin", "override_margin", "active",
			"image_url", "created_at", "updated_at"),
		PackItems: &PackItemRepository{NewGormRepository[domain.PackItem](db, "pack_item",
			"pack_id", "product_id", "quantity", "sort", "created_at")},
		Orders: NewGormRepository[domain.Order](db, "order",
			"user_id", "pack_id", "status", "scheduled_time", "delivery_type", "total_price",
			"delivery_fee", "notes", "created_at", "updated_at"),
		Users: NewGormRepository[domain.User](db, "user",
			"account_id", "name", "email", "avatar", "role", "hotel_id", "current_property_id",
			"created_at", "updated_at"),
		Properties: NewGormRepository[domain.Property](db, "property",
			"name", "code", "address", "active", "created_at", "updated_at"),
	}
}

// PackItemRepository adds the replace-set save to the pack item collection
type PackItemRepository struct {
	*GormRepository[domain.PackItem]
}

// ReplaceForPack deletes every item of the pack and inserts items in one transaction.
// Either the old set or the new set is visible, never a mix.
func (r *PackItemRepository) ReplaceForPack(ctx context.Context, packID string, items []domain.PackItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replacePackItems(tx, packID, items)
	})
}

func replacePackItems(tx *gorm.DB, packID string, items []domain.PackItem) error {
	if err := tx.Where("pack_id = ?", packID).Delete(&domain.PackItem{}).Error; err != nil {
		return errors.Wrapf(err, "clear items of pack %s", packID)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]domain.PackItem, 0, len(items))
	for i, it := range items {
		rows = append(rows, domain.PackItem{PackID: packID, ProductID: it.ProductID, Quantity: it.Quantity, Sort: i})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return errors.Wrapf(err, "insert items of pack %s", packID)
	}
	return nil
}

// ForPack lists the current composition of a pack
func (r *PackItemRepository) ForPack(ctx context.Context, packID string) ([]domain.PackItem, error) {
	return r.List(ctx, Eq("pack_id", packID), OrderBy("sort", false))
}

// SavePack writes the pack fields and replaces its items in one transaction.
// A pack without id is created.
func (c *Catalog) SavePack(ctx context.Context, pack *domain.Pack, items []domain.PackItem) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pack.ID == "" {
			if err := tx.Create(pack).Error; err != nil {
				return errors.Wrap(err, "create pack")
			}
		} else {
			result := tx.Model(&domain.Pack{ID: pack.ID}).Select("*").Omit("id", "created_at").Updates(pack)
			if result.Error != nil {
				return errors.Wrapf(result.Error, "update pack %s", pack.ID)
			}
			if result.RowsAffected == 0 {
				return errors.Wrapf(ErrNotFound, "pack %s", pack.ID)
			}
		}
		return replacePackItems(tx, pack.ID, items)
	})
}

// DeletePack removes the pack with its items. Orders keep their snapshots.
func (c *Catalog) DeletePack(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pack_id = ?", id).Delete(&domain.PackItem{}).Error; err != nil {
			return errors.Wrapf(err, "delete items of pack %s", id)
		}
		if err := tx.Where("id = ?", id).Delete(&domain.Pack{}).Error; err != nil {
			return errors.Wrapf(err, "delete pack %s", id)
		}
		return nil
	})
}

// PackView is a pack joined with its items and the products they resolve to
type PackView struct {
	Pack     *domain.Pack
	Items    []domain.PackItem
	Products map[string]domain.Product
}

// LoadPack reads a pack and its items in parallel, then resolves the products.
// Dangling product ids are simply missing from Products.
func (c *Catalog) LoadPack(ctx context.Context, id string) (*PackView, error) {
	var (
		pack  *domain.Pack
		items []domain.PackItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pack, err = c.Packs.Get(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = c.PackItems.ForPack(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := ProductsByID(ctx, c.Products, ids)
	if err != nil {
		return nil, err
	}
	return &PackView{Pack: pack, Items: items, Products: products}, nil
}

// ProductsByID fetches the given products keyed by id; unknown ids are absent
func ProductsByID(ctx context.Context, repo Repository[domain.Product], ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := repo.List(ctx, In("id", uniq(ids)))
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
