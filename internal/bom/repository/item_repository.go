package repository

import (
	"context"
	"errors"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"gorm.io/gorm"
)

// ItemRepository 物料仓库（物料 + BOM边）
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository 创建物料仓库
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create 创建物料
func (r *ItemRepository) Create(ctx context.Context, item *entity.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新物料
func (r *ItemRepository) Update(ctx context.Context, item *entity.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// FindByID 根据ID获取物料
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*entity.Item, error) {
	var item entity.Item
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// List 物料列表
func (r *ItemRepository) List(ctx context.Context) ([]entity.Item, error) {
	var items []entity.Item
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error
	return items, err
}

// FindComponent 获取指定的BOM边
func (r *ItemRepository) FindComponent(ctx context.Context, parentID, childID string) (*entity.ItemComponent, error) {
	var edge entity.ItemComponent
	err := r.db.WithContext(ctx).
		First(&edge, "parent_item_id = ? AND child_item_id = ?", parentID, childID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &edge, nil
}

// ListChildren 获取物料的直接子项，按子项ID排序保证结果可复现
func (r *ItemRepository) ListChildren(ctx context.Context, parentID string) ([]entity.ItemComponent, error) {
	var edges []entity.ItemComponent
	err := r.db.WithContext(ctx).
		Preload("Child").
		Where("parent_item_id = ?", parentID).
		Order("child_item_id ASC").
		Find(&edges).Error
	return edges, err
}
