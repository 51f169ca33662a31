package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockService 锁定服务：DRAFT→DONE 状态机。
// 锁定在单个事务内完成：快照每行成本、缓存项目总额、翻转状态，
// 外部要么看到完整锁定的项目，要么看到原样的DRAFT项目
type LockService struct {
	db   *gorm.DB
	cost *CostService
}

// NewLockService 创建锁定服务
func NewLockService(db *gorm.DB, cost *CostService) *LockService {
	return &LockService{db: db, cost: cost}
}

// LockProject 锁定项目成本并置为DONE。DONE是终态，重复锁定报错
func (s *LockService) LockProject(ctx context.Context, projectID string) (*entity.Project, error) {
	var locked *entity.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project entity.Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, "id = ?", projectID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: project %s", ErrProjectNotFound, projectID)
			}
			return err
		}
		if project.Status == entity.ProjectStatusDone {
			return fmt.Errorf("%w: project %s", ErrAlreadyLocked, projectID)
		}

		var lines []entity.ProjectItem
		if err := tx.Where("project_id = ?", projectID).
			Order("item_id ASC").
			Find(&lines).Error; err != nil {
			return err
		}

		now := time.Now()
		total := decimal.Zero
		for i := range lines {
			unit, err := s.cost.computeItemCost(ctx, tx, lines[i].ItemID)
			if err != nil {
				return err
			}
			lineTotal := lines[i].Qty.Mul(unit).Round(costScale)

			if err := tx.Model(&entity.ProjectItem{}).
				Where("id = ?", lines[i].ID).
				Updates(map[string]interface{}{
					"locked_unit_cost":  unit,
					"locked_total_cost": lineTotal,
					"updated_at":        now,
				}).Error; err != nil {
				return err
			}
			total = total.Add(lineTotal)
		}

		if err := tx.Model(&entity.Project{}).
			Where("id = ?", projectID).
			Updates(map[string]interface{}{
				"status":       entity.ProjectStatusDone,
				"project_cost": total,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}

		project.Status = entity.ProjectStatusDone
		project.ProjectCost = decimal.NewNullDecimal(total)
		project.UpdatedAt = now
		locked = &project
		return nil
	})
	if err != nil {
		return nil, translateDBError(err)
	}
	return locked, nil
}
