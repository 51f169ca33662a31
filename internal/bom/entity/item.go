package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 物料类型
const (
	ItemTypeMaterial = "MATERIAL" // 原材料（叶子节点，直接贡献成本）
	ItemTypeItem     = "ITEM"     // 组件/成品（可由其他物料组成）
)

// Item 物料
type Item struct {
	ID        string              `json:"id" gorm:"primaryKey;size:32"`
	Name      string              `json:"name" gorm:"size:128;not null"`
	BaseCost  decimal.NullDecimal `json:"base_cost" gorm:"type:numeric(18,4)"`
	ItemType  string              `json:"item_type" gorm:"size:16;not null;default:ITEM"`
	Unit      string              `json:"unit,omitempty" gorm:"size:16"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// ItemComponent BOM边（父项→子项，带用量）
// 约束：parent ≠ child；(parent, child) 唯一；整体必须保持无环
type ItemComponent struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	ParentItemID string          `json:"parent_item_id" gorm:"size:32;not null;uniqueIndex:uniq_item_components_edge;index"`
	ChildItemID  string          `json:"child_item_id" gorm:"size:32;not null;uniqueIndex:uniq_item_components_edge;index"`
	Qty          decimal.Decimal `json:"qty" gorm:"type:numeric(18,6);not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// 关联
	Parent *Item `json:"parent,omitempty" gorm:"foreignKey:ParentItemID"`
	Child  *Item `json:"child,omitempty" gorm:"foreignKey:ChildItemID"`
}

func (ItemComponent) TableName() string {
	return "item_components"
}
