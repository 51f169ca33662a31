package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/fabworks/bomcost/internal/bom/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService 项目台账服务：维护项目与物料行，聚合项目成本。
// 行的增删改只允许在DRAFT状态下进行；每个写操作先对项目行加行锁，
// 与锁定流程共用同一套按项目串行化的约束
type LedgerService struct {
	db          *gorm.DB
	projectRepo *repository.ProjectRepository
	cost        *CostService
}

// NewLedgerService 创建项目台账服务
func NewLedgerService(db *gorm.DB, projectRepo *repository.ProjectRepository, cost *CostService) *LedgerService {
	return &LedgerService{db: db, projectRepo: projectRepo, cost: cost}
}

// CreateProject 创建项目，初始状态DRAFT
func (s *LedgerService) CreateProject(ctx context.Context, name string) (*entity.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	now := time.Now()
	project := &entity.Project{
		ID:        generateID(),
		Name:      name,
		Status:    entity.ProjectStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", translateDBError(err))
	}
	return project, nil
}

// GetProject 获取项目
func (s *LedgerService) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	return s.getProject(ctx, id)
}

// ListProjects 项目列表
func (s *LedgerService) ListProjects(ctx context.Context) ([]entity.Project, error) {
	return s.projectRepo.List(ctx)
}

// UpdateProject 更新项目名称。名称不属于成本数据，锁定后仍可改
func (s *LedgerService) UpdateProject(ctx context.Context, id, name string) (*entity.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	project, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Name = name
	project.UpdatedAt = time.Now()
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", translateDBError(err))
	}
	return project, nil
}

// AddLine 向项目添加物料行。(project, item) 已存在时更新数量（upsert语义）
func (s *LedgerService) AddLine(ctx context.Context, projectID, itemID string, qty decimal.Decimal) (*entity.ProjectItem, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty %s", ErrInvalidQuantity, qty)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockDraftProject(ctx, tx, projectID); err != nil {
			return err
		}

		var item entity.Item
		if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: item %s", ErrItemNotFound, itemID)
			}
			return err
		}

		now := time.Now()
		line := &entity.ProjectItem{
			ID:        generateID(),
			ProjectID: projectID,
			ItemID:    itemID,
			Qty:       qty,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"qty":        qty,
				"updated_at": now,
			}),
		}).Create(line).Error
	})
	if err != nil {
		return nil, translateDBError(err)
	}

	line, err := s.projectRepo.FindLine(ctx, projectID, itemID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return line, nil
}

// UpdateLineQty 更新项目物料行数量
func (s *LedgerService) UpdateLineQty(ctx context.Context, projectID, itemID string, qty decimal.Decimal) (*entity.ProjectItem, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty %s", ErrInvalidQuantity, qty)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockDraftProject(ctx, tx, projectID); err != nil {
			return err
		}

		result := tx.Model(&entity.ProjectItem{}).
			Where("project_id = ? AND item_id = ?", projectID, itemID).
			Updates(map[string]interface{}{
				"qty":        qty,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: item %s not on project %s", ErrItemNotFound, itemID, projectID)
		}
		return nil
	})
	if err != nil {
		return nil, translateDBError(err)
	}

	line, err := s.projectRepo.FindLine(ctx, projectID, itemID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return line, nil
}

// RemoveLine 删除项目物料行
func (s *LedgerService) RemoveLine(ctx context.Context, projectID, itemID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockDraftProject(ctx, tx, projectID); err != nil {
			return err
		}

		result := tx.Where("project_id = ? AND item_id = ?", projectID, itemID).
			Delete(&entity.ProjectItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: item %s not on project %s", ErrItemNotFound, itemID, projectID)
		}
		return nil
	})
	return translateDBError(err)
}

// Lines 获取项目物料行，按物料名称排序
func (s *LedgerService) Lines(ctx context.Context, projectID string) ([]entity.ProjectItem, error) {
	if _, err := s.getProject(ctx, projectID); err != nil {
		return nil, err
	}
	lines, err := s.projectRepo.ListLines(ctx, projectID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return lines, nil
}

// ComputeProjectCost 计算项目总成本。
// DRAFT：Σ 行数量×实时卷算单位成本，无副作用；DONE：直接取锁定时缓存的总额，
// 不再触发卷算
func (s *LedgerService) ComputeProjectCost(ctx context.Context, projectID string) (decimal.Decimal, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}

	if project.Status == entity.ProjectStatusDone {
		if project.ProjectCost.Valid {
			return project.ProjectCost.Decimal, nil
		}
		// 缓存缺失时回退为锁定行小计之和
		lines, err := s.projectRepo.ListLines(ctx, projectID)
		if err != nil {
			return decimal.Zero, translateDBError(err)
		}
		total := decimal.Zero
		for _, line := range lines {
			if line.LockedTotalCost.Valid {
				total = total.Add(line.LockedTotalCost.Decimal)
			}
		}
		return total.Round(costScale), nil
	}

	lines, err := s.projectRepo.ListLines(ctx, projectID)
	if err != nil {
		return decimal.Zero, translateDBError(err)
	}

	total := decimal.Zero
	for _, line := range lines {
		unit, err := s.cost.computeItemCost(ctx, s.db, line.ItemID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(line.Qty.Mul(unit))
	}
	return total.Round(costScale), nil
}

func (s *LedgerService) getProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrProjectNotFound, id)
		}
		return nil, translateDBError(err)
	}
	return project, nil
}

// lockDraftProject 对项目行加 FOR UPDATE 锁并校验状态为DRAFT。
// 所有台账写操作的统一前置，保证与锁定事务互斥
func (s *LedgerService) lockDraftProject(ctx context.Context, tx *gorm.DB, projectID string) error {
	var project entity.Project
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: project %s", ErrProjectNotFound, projectID)
		}
		return err
	}
	if project.Status == entity.ProjectStatusDone {
		return fmt.Errorf("%w: project %s", ErrProjectLocked, projectID)
	}
	return nil
}
