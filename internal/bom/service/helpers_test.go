package service

import (
	"context"
	"testing"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/fabworks/bomcost/internal/bom/repository"
	"github.com/fabworks/bomcost/internal/bom/testutil"
	"github.com/shopspring/decimal"
)

func setupTest(t *testing.T) (context.Context, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return context.Background(), NewServices(db, repos)
}

func createMaterial(t *testing.T, ctx context.Context, svcs *Services, name, baseCost string) *entity.Item {
	t.Helper()
	cost := testutil.Dec(t, baseCost)
	item, err := svcs.Graph.CreateItem(ctx, &CreateItemRequest{
		Name:     name,
		BaseCost: &cost,
		ItemType: entity.ItemTypeMaterial,
		Unit:     "pcs",
	})
	if err != nil {
		t.Fatalf("create material %s: %v", name, err)
	}
	return item
}

func createAssembly(t *testing.T, ctx context.Context, svcs *Services, name string) *entity.Item {
	t.Helper()
	item, err := svcs.Graph.CreateItem(ctx, &CreateItemRequest{Name: name})
	if err != nil {
		t.Fatalf("create assembly %s: %v", name, err)
	}
	return item
}

func addComponent(t *testing.T, ctx context.Context, svcs *Services, parent, child *entity.Item, qty string) {
	t.Helper()
	if _, err := svcs.Graph.AddComponent(ctx, parent.ID, child.ID, testutil.Dec(t, qty)); err != nil {
		t.Fatalf("add component %s -> %s: %v", parent.Name, child.Name, err)
	}
}

// buildTableFixture 搭建演示BOM：框架=4×螺栓(0.50)+2×木板(12.00)，桌子=1×框架
func buildTableFixture(t *testing.T, ctx context.Context, svcs *Services) (bolt, plank, frame, table *entity.Item) {
	t.Helper()
	bolt = createMaterial(t, ctx, svcs, "Bolt", "0.50")
	plank = createMaterial(t, ctx, svcs, "Wood plank", "12.00")
	frame = createAssembly(t, ctx, svcs, "Frame")
	table = createAssembly(t, ctx, svcs, "Table")
	addComponent(t, ctx, svcs, frame, bolt, "4")
	addComponent(t, ctx, svcs, frame, plank, "2")
	addComponent(t, ctx, svcs, table, frame, "1")
	return bolt, plank, frame, table
}

func wantCost(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("cost = %s, want %s", got, want)
	}
}
