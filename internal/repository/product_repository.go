package repository

import (
	"context"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint64) (*model.Product, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	FindByTitle(ctx context.Context, sellerUID, title string) (*model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// FindByTitle is used by the seeder to stay idempotent.
func (r *productRepository) FindByTitle(ctx context.Context, sellerUID, title string) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ? AND title = ?", sellerUID, title).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
