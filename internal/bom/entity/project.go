package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 项目状态
const (
	ProjectStatusDraft = "DRAFT" // 草稿：成本实时计算，行项可改
	ProjectStatusDone  = "DONE"  // 完结：成本已锁定，行项只读
)

// Project 项目
type Project struct {
	ID          string              `json:"id" gorm:"primaryKey;size:32"`
	Name        string              `json:"name" gorm:"size:128;not null"`
	Status      string              `json:"status" gorm:"size:16;not null;default:DRAFT"`
	ProjectCost decimal.NullDecimal `json:"project_cost" gorm:"type:numeric(18,4)"` // 锁定时缓存的总成本
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// 关联
	Lines []ProjectItem `json:"lines,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectItem 项目物料行（数量+锁定成本快照）
// locked_* 在项目DRAFT期间为空，锁定瞬间一次性写入，之后不再变更
type ProjectItem struct {
	ID              string              `json:"id" gorm:"primaryKey;size:32"`
	ProjectID       string              `json:"project_id" gorm:"size:32;not null;uniqueIndex:uniq_project_items_line;index"`
	ItemID          string              `json:"item_id" gorm:"size:32;not null;uniqueIndex:uniq_project_items_line;index"`
	Qty             decimal.Decimal     `json:"qty" gorm:"type:numeric(18,6);not null"`
	LockedUnitCost  decimal.NullDecimal `json:"locked_unit_cost" gorm:"type:numeric(18,4)"`
	LockedTotalCost decimal.NullDecimal `json:"locked_total_cost" gorm:"type:numeric(18,4)"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	// 关联
	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (ProjectItem) TableName() string {
	return "project_items"
}
