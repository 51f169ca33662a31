package service

import (
	"errors"
	"testing"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/shopspring/decimal"
)

func TestComputeItemCostLeaf(t *testing.T) {
	ctx, svcs := setupTest(t)

	bolt := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	cost, err := svcs.Cost.ComputeItemCost(ctx, bolt.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantCost(t, cost, "0.5")

	// base_cost 为空的叶子按零计
	empty := createAssembly(t, ctx, svcs, "Empty")
	cost, err = svcs.Cost.ComputeItemCost(ctx, empty.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantCost(t, cost, "0")
}

func TestComputeItemCostRollup(t *testing.T) {
	ctx, svcs := setupTest(t)
	_, _, frame, table := buildTableFixture(t, ctx, svcs)

	// 框架 = 4×0.50 + 2×12.00 = 26.00
	cost, err := svcs.Cost.ComputeItemCost(ctx, frame.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantCost(t, cost, "26")

	// 桌子 = 1×框架
	cost, err = svcs.Cost.ComputeItemCost(ctx, table.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantCost(t, cost, "26")

	// 幂等：无变更时重复计算结果一致
	again, err := svcs.Cost.ComputeItemCost(ctx, table.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Equal(cost) {
		t.Fatalf("repeated call = %s, first = %s", again, cost)
	}
}

func TestComputeItemCostDiamond(t *testing.T) {
	ctx, svcs := setupTest(t)

	// D→B(2)→L(3)，D→C(4)→L(5)：同一叶子两条路径分别累加
	leaf := createMaterial(t, ctx, svcs, "L", "1.00")
	b := createAssembly(t, ctx, svcs, "B")
	c := createAssembly(t, ctx, svcs, "C")
	d := createAssembly(t, ctx, svcs, "D")
	addComponent(t, ctx, svcs, d, b, "2")
	addComponent(t, ctx, svcs, d, c, "4")
	addComponent(t, ctx, svcs, b, leaf, "3")
	addComponent(t, ctx, svcs, c, leaf, "5")

	cost, err := svcs.Cost.ComputeItemCost(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	// 2×3 + 4×5 = 26
	wantCost(t, cost, "26")
}

func TestNonLeafBaseCostExcluded(t *testing.T) {
	ctx, svcs := setupTest(t)

	// 非叶子自带的 base_cost 不参与卷算
	baseCost := decimal.RequireFromString("99.99")
	parent, err := svcs.Graph.CreateItem(ctx, &CreateItemRequest{
		Name:     "Boxed set",
		BaseCost: &baseCost,
		ItemType: entity.ItemTypeItem,
	})
	if err != nil {
		t.Fatal(err)
	}
	leaf := createMaterial(t, ctx, svcs, "Box", "2.00")
	addComponent(t, ctx, svcs, parent, leaf, "1")

	cost, err := svcs.Cost.ComputeItemCost(ctx, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantCost(t, cost, "2")
}

func TestComputeItemCostRounding(t *testing.T) {
	ctx, svcs := setupTest(t)

	// 中间结果不丢精度，只在最终结果按4位四舍五入：
	// 0.333333 × 1.0001 = 0.3333663333 → 0.3334
	leaf := createMaterial(t, ctx, svcs, "Wire", "1.0001")
	parent := createAssembly(t, ctx, svcs, "Harness")
	addComponent(t, ctx, svcs, parent, leaf, "0.333333")

	cost, err := svcs.Cost.ComputeItemCost(ctx, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantCost(t, cost, "0.3334")
}

func TestComputeItemCostNotFound(t *testing.T) {
	ctx, svcs := setupTest(t)

	_, err := svcs.Cost.ComputeItemCost(ctx, "nosuchitem")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}
