package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/fabworks/bomcost/internal/bom/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateItemRequest 创建物料请求
type CreateItemRequest struct {
	Name     string           `json:"name" binding:"required"`
	BaseCost *decimal.Decimal `json:"base_cost"`
	ItemType string           `json:"item_type"`
	Unit     string           `json:"unit"`
}

// UpdateItemRequest 更新物料请求。BaseCost允许随时变更，不回写已锁定的快照
type UpdateItemRequest struct {
	Name     string           `json:"name"`
	BaseCost *decimal.Decimal `json:"base_cost"`
	Unit     string           `json:"unit"`
}

// GraphService 物料图服务：维护物料与BOM边，保证图始终无环。
// 图写操作用一把粗粒度互斥锁串行化，环检测和落库在同一事务内完成
type GraphService struct {
	db       *gorm.DB
	itemRepo *repository.ItemRepository

	mu sync.Mutex // 图写锁
}

// NewGraphService 创建物料图服务
func NewGraphService(db *gorm.DB, itemRepo *repository.ItemRepository) *GraphService {
	return &GraphService{db: db, itemRepo: itemRepo}
}

// CreateItem 创建物料
func (s *GraphService) CreateItem(ctx context.Context, req *CreateItemRequest) (*entity.Item, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("item name is required")
	}

	itemType := req.ItemType
	if itemType == "" {
		itemType = entity.ItemTypeItem
	}
	if itemType != entity.ItemTypeItem && itemType != entity.ItemTypeMaterial {
		return nil, fmt.Errorf("invalid item type: %s", itemType)
	}

	now := time.Now()
	item := &entity.Item{
		ID:        generateID(),
		Name:      req.Name,
		ItemType:  itemType,
		Unit:      req.Unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.BaseCost != nil {
		item.BaseCost = decimal.NewNullDecimal(*req.BaseCost)
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", translateDBError(err))
	}
	return item, nil
}

// UpdateItem 更新物料
func (s *GraphService) UpdateItem(ctx context.Context, id string, req *UpdateItemRequest) (*entity.Item, error) {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		item.Name = req.Name
	}
	if req.BaseCost != nil {
		item.BaseCost = decimal.NewNullDecimal(*req.BaseCost)
	}
	if req.Unit != "" {
		item.Unit = req.Unit
	}
	item.UpdatedAt = time.Now()

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", translateDBError(err))
	}
	return item, nil
}

// GetItem 获取物料
func (s *GraphService) GetItem(ctx context.Context, id string) (*entity.Item, error) {
	return s.getItem(ctx, id)
}

// ListItems 物料列表
func (s *GraphService) ListItems(ctx context.Context) ([]entity.Item, error) {
	return s.itemRepo.List(ctx)
}

// AddComponent 新增BOM边 parent→child。
// 前置校验：qty>0、parent≠child、两端物料存在、(parent,child)不重复、
// 且 parent 不可从 child 到达（否则成环）。全部通过后才落库
func (s *GraphService) AddComponent(ctx context.Context, parentID, childID string, qty decimal.Decimal) (*entity.ItemComponent, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty %s", ErrInvalidQuantity, qty)
	}
	if parentID == childID {
		return nil, fmt.Errorf("%w: item %s", ErrSelfReference, parentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var edge *entity.ItemComponent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []string{parentID, childID} {
			var item entity.Item
			if err := tx.First(&item, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: item %s", ErrItemNotFound, id)
				}
				return err
			}
		}

		var count int64
		if err := tx.Model(&entity.ItemComponent{}).
			Where("parent_item_id = ? AND child_item_id = ?", parentID, childID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, parentID, childID)
		}

		reachable, err := s.isReachable(ctx, tx, childID, parentID)
		if err != nil {
			return err
		}
		if reachable {
			return fmt.Errorf("%w: adding %s -> %s would close a cycle", ErrCycleDetected, parentID, childID)
		}

		now := time.Now()
		edge = &entity.ItemComponent{
			ID:           generateID(),
			ParentItemID: parentID,
			ChildItemID:  childID,
			Qty:          qty,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(edge).Error
	})
	if err != nil {
		// 并发下唯一索引兜底
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, parentID, childID)
		}
		return nil, translateDBError(err)
	}
	return edge, nil
}

// UpdateComponentQty 更新BOM边用量
func (s *GraphService) UpdateComponentQty(ctx context.Context, parentID, childID string, qty decimal.Decimal) (*entity.ItemComponent, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty %s", ErrInvalidQuantity, qty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	edge, err := s.itemRepo.FindComponent(ctx, parentID, childID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, parentID, childID)
		}
		return nil, translateDBError(err)
	}

	edge.Qty = qty
	edge.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(edge).Error; err != nil {
		return nil, fmt.Errorf("update component: %w", translateDBError(err))
	}
	return edge, nil
}

// RemoveComponent 删除BOM边
func (s *GraphService) RemoveComponent(ctx context.Context, parentID, childID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).
		Where("parent_item_id = ? AND child_item_id = ?", parentID, childID).
		Delete(&entity.ItemComponent{})
	if result.Error != nil {
		return translateDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, parentID, childID)
	}
	return nil
}

// RemoveItem 删除物料。物料仍被任何BOM边或项目行引用时拒绝删除，
// 删除成功时一并删除以它为父项的边
func (s *GraphService) RemoveItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item entity.Item
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: item %s", ErrItemNotFound, id)
			}
			return err
		}

		var asChild int64
		if err := tx.Model(&entity.ItemComponent{}).
			Where("child_item_id = ?", id).
			Count(&asChild).Error; err != nil {
			return err
		}
		if asChild > 0 {
			return fmt.Errorf("%w: item %s is a component of %d parent(s)", ErrItemReferenced, id, asChild)
		}

		var onLines int64
		if err := tx.Model(&entity.ProjectItem{}).
			Where("item_id = ?", id).
			Count(&onLines).Error; err != nil {
			return err
		}
		if onLines > 0 {
			return fmt.Errorf("%w: item %s appears on %d project line(s)", ErrItemReferenced, id, onLines)
		}

		if err := tx.Where("parent_item_id = ?", id).Delete(&entity.ItemComponent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Item{}, "id = ?", id).Error
	})
	return translateDBError(err)
}

// Children 获取物料的直接子项，按子项ID排序
func (s *GraphService) Children(ctx context.Context, id string) ([]entity.ItemComponent, error) {
	if _, err := s.getItem(ctx, id); err != nil {
		return nil, err
	}
	return s.itemRepo.ListChildren(ctx, id)
}

func (s *GraphService) getItem(ctx context.Context, id string) (*entity.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: item %s", ErrItemNotFound, id)
		}
		return nil, translateDBError(err)
	}
	return item, nil
}

// isReachable 判断 target 是否可从 from 沿BOM边到达。
// 按层加载边做BFS，访问集保证每个节点最多展开一次，受图规模约束必然终止
func (s *GraphService) isReachable(ctx context.Context, tx *gorm.DB, fromID, targetID string) (bool, error) {
	visited := map[string]bool{fromID: true}
	frontier := []string{fromID}

	for len(frontier) > 0 {
		var children []string
		if err := tx.WithContext(ctx).
			Model(&entity.ItemComponent{}).
			Where("parent_item_id IN ?", frontier).
			Pluck("child_item_id", &children).Error; err != nil {
			return false, err
		}

		frontier = frontier[:0]
		for _, child := range children {
			if child == targetID {
				return true, nil
			}
			if !visited[child] {
				visited[child] = true
				frontier = append(frontier, child)
			}
		}
	}
	return false, nil
}
