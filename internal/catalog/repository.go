package catalog

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("document not found")

// Repository is the CRUD contract of one document collection
type Repository[T any] interface {
	List(ctx context.Context, filters ...Filter) ([]T, error)
	Count(ctx context.Context, filters ...Filter) (int64, error)
	Get(ctx context.Context, id string) (*T, error)
	// Create inserts v; an empty id is generated
	Create(ctx context.Context, v *T) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// GormRepository is the GORM implementation of Repository
type GormRepository[T any] struct {
	db     *gorm.DB
	name   string
	fields map[string]struct{}
}

// NewGormRepository creates a repository; fields lists the columns filters and updates may name
func NewGormRepository[T any](db *gorm.DB, name string, fields ...string) *GormRepository[T] {
	set := make(map[string]struct{}, len(fields)+1)
	set["id"] = struct{}{}
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return &GormRepository[T]{db: db, name: name, fields: set}
}

func (r *GormRepository[T]) List(ctx context.Context, filters ...Filter) ([]T, error) {
	query, err := apply(r.db.WithContext(ctx).Model(new(T)), r.fields, filters, true)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "list %s", r.name)
	}
	return rows, nil
}

func (r *GormRepository[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	query, err := apply(r.db.WithContext(ctx).Model(new(T)), r.fields, filters, false)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, errors.Wrapf(err, "count %s", r.name)
	}
	return total, nil
}

func (r *GormRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	var v T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%s %s", r.name, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s", r.name, id)
	}
	return &v, nil
}

func (r *GormRepository[T]) Create(ctx context.Context, v *T) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return errors.Wrapf(err, "create %s", r.name)
	}
	return nil
}

func (r *GormRepository[T]) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	for k := range fields {
		if _, ok := r.fields[k]; !ok || k == "id" {
			return errors.Wrapf(ErrUnknownField, "%q", k)
		}
	}
	if len(fields) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}
	result := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "update %s %s", r.name, id)
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%s %s", r.name, id)
	}
	return nil
}

func (r *GormRepository[T]) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error; err != nil {
		return errors.Wrapf(err, "delete %s %s", r.name, id)
	}
	return nil
}
