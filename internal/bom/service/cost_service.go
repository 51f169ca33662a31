package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// costScale 成本金额统一保留4位小数，中间计算不截断，只在最终结果舍入。
	// decimal.Round 为四舍五入（远离零），成本非负时即 round-half-up
	costScale = 4

	// maxBOMDepth BOM遍历深度上限。图结构本身保证无环，这里是对脏数据的兜底
	maxBOMDepth = 500
)

// CostService 成本卷算服务：沿BOM边递归汇总叶子物料成本。
// 只有叶子（无子项的物料）贡献 base_cost，非叶子自身的 base_cost 不参与卷算；
// 菱形结构下同一叶子经不同路径的贡献逐路径累加，不去重
type CostService struct {
	db *gorm.DB
}

// NewCostService 创建成本卷算服务
func NewCostService(db *gorm.DB) *CostService {
	return &CostService{db: db}
}

// ComputeItemCost 计算物料当前的卷算单位成本
func (s *CostService) ComputeItemCost(ctx context.Context, itemID string) (decimal.Decimal, error) {
	return s.computeItemCost(ctx, s.db, itemID)
}

// computeItemCost 在给定DB句柄上执行卷算，锁定事务内复用同一实现。
// 先一次性加载可达子图（边+叶子成本），之后的遍历是纯内存计算
func (s *CostService) computeItemCost(ctx context.Context, db *gorm.DB, itemID string) (decimal.Decimal, error) {
	var item entity.Item
	if err := db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("%w: item %s", ErrItemNotFound, itemID)
		}
		return decimal.Zero, translateDBError(err)
	}

	adjacency, baseCosts, err := s.loadSubgraph(ctx, db, itemID)
	if err != nil {
		return decimal.Zero, err
	}

	onPath := make(map[string]bool)
	total, err := s.walk(itemID, decimal.NewFromInt(1), adjacency, baseCosts, onPath, 0)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Round(costScale), nil
}

// loadSubgraph 按层BFS加载 root 可达的全部BOM边和物料成本
func (s *CostService) loadSubgraph(ctx context.Context, db *gorm.DB, rootID string) (map[string][]entity.ItemComponent, map[string]decimal.NullDecimal, error) {
	adjacency := make(map[string][]entity.ItemComponent)
	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var edges []entity.ItemComponent
		if err := db.WithContext(ctx).
			Where("parent_item_id IN ?", frontier).
			Order("parent_item_id ASC, child_item_id ASC").
			Find(&edges).Error; err != nil {
			return nil, nil, translateDBError(err)
		}

		frontier = frontier[:0]
		for _, edge := range edges {
			adjacency[edge.ParentItemID] = append(adjacency[edge.ParentItemID], edge)
			if !visited[edge.ChildItemID] {
				visited[edge.ChildItemID] = true
				frontier = append(frontier, edge.ChildItemID)
			}
		}
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}

	var items []entity.Item
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, nil, translateDBError(err)
	}
	baseCosts := make(map[string]decimal.NullDecimal, len(items))
	for _, item := range items {
		baseCosts[item.ID] = item.BaseCost
	}
	return adjacency, baseCosts, nil
}

// walk 深度优先遍历，factor 为到当前节点的路径用量乘积。
// 叶子返回 base_cost×factor（base_cost为空记零）；每条路径都走到底，逐路径求和
func (s *CostService) walk(itemID string, factor decimal.Decimal, adjacency map[string][]entity.ItemComponent, baseCosts map[string]decimal.NullDecimal, onPath map[string]bool, depth int) (decimal.Decimal, error) {
	if depth > maxBOMDepth {
		return decimal.Zero, fmt.Errorf("%w: max depth %d exceeded at item %s", ErrCycleDetected, maxBOMDepth, itemID)
	}
	if onPath[itemID] {
		return decimal.Zero, fmt.Errorf("%w: item %s revisited on path", ErrCycleDetected, itemID)
	}

	children := adjacency[itemID]
	if len(children) == 0 {
		if bc, ok := baseCosts[itemID]; ok && bc.Valid {
			return bc.Decimal.Mul(factor), nil
		}
		return decimal.Zero, nil
	}

	onPath[itemID] = true
	defer delete(onPath, itemID)

	total := decimal.Zero
	for _, edge := range children {
		sub, err := s.walk(edge.ChildItemID, factor.Mul(edge.Qty), adjacency, baseCosts, onPath, depth+1)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(sub)
	}
	return total, nil
}
