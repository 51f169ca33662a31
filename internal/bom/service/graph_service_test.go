package service

import (
	"errors"
	"testing"

	"github.com/fabworks/bomcost/internal/bom/testutil"
	"github.com/shopspring/decimal"
)

func TestCreateItemValidation(t *testing.T) {
	ctx, svcs := setupTest(t)

	if _, err := svcs.Graph.CreateItem(ctx, &CreateItemRequest{Name: ""}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := svcs.Graph.CreateItem(ctx, &CreateItemRequest{Name: "x", ItemType: "WIDGET"}); err == nil {
		t.Fatal("expected error for invalid item type")
	}
}

func TestAddComponentSelfReference(t *testing.T) {
	ctx, svcs := setupTest(t)
	item := createAssembly(t, ctx, svcs, "Frame")

	_, err := svcs.Graph.AddComponent(ctx, item.ID, item.ID, decimal.NewFromInt(1))
	if !errors.Is(err, ErrSelfReference) {
		t.Fatalf("err = %v, want ErrSelfReference", err)
	}
}

func TestAddComponentInvalidQuantity(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	child := createMaterial(t, ctx, svcs, "Bolt", "0.50")

	for _, qty := range []string{"0", "-1"} {
		_, err := svcs.Graph.AddComponent(ctx, parent.ID, child.ID, testutil.Dec(t, qty))
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %s: err = %v, want ErrInvalidQuantity", qty, err)
		}
	}
}

func TestAddComponentMissingItem(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")

	_, err := svcs.Graph.AddComponent(ctx, parent.ID, "nosuchitem", decimal.NewFromInt(1))
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestAddComponentDuplicateEdge(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	child := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	addComponent(t, ctx, svcs, parent, child, "4")

	_, err := svcs.Graph.AddComponent(ctx, parent.ID, child.ID, decimal.NewFromInt(8))
	if !errors.Is(err, ErrDuplicateEdge) {
		t.Fatalf("err = %v, want ErrDuplicateEdge", err)
	}

	// 原边不受影响
	edges, err := svcs.Graph.Children(ctx, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || !edges[0].Qty.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("edge mutated by failed insert: %+v", edges)
	}
}

func TestAddComponentCycleRejected(t *testing.T) {
	ctx, svcs := setupTest(t)
	a := createAssembly(t, ctx, svcs, "A")
	b := createAssembly(t, ctx, svcs, "B")
	c := createAssembly(t, ctx, svcs, "C")
	addComponent(t, ctx, svcs, a, b, "1")
	addComponent(t, ctx, svcs, b, c, "1")

	// 任一回边都应被拒绝
	for _, back := range []struct{ parent, child string }{
		{c.ID, a.ID},
		{b.ID, a.ID},
		{c.ID, b.ID},
	} {
		_, err := svcs.Graph.AddComponent(ctx, back.parent, back.child, decimal.NewFromInt(1))
		if !errors.Is(err, ErrCycleDetected) {
			t.Fatalf("%s -> %s: err = %v, want ErrCycleDetected", back.parent, back.child, err)
		}
	}

	// 图保持原样
	for id, want := range map[string]int{a.ID: 1, b.ID: 1, c.ID: 0} {
		edges, err := svcs.Graph.Children(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(edges) != want {
			t.Fatalf("item %s has %d children, want %d", id, len(edges), want)
		}
	}
}

func TestUpdateComponentQty(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	child := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	addComponent(t, ctx, svcs, parent, child, "4")

	edge, err := svcs.Graph.UpdateComponentQty(ctx, parent.ID, child.ID, decimal.NewFromInt(6))
	if err != nil {
		t.Fatal(err)
	}
	if !edge.Qty.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("qty = %s, want 6", edge.Qty)
	}

	_, err = svcs.Graph.UpdateComponentQty(ctx, child.ID, parent.ID, decimal.NewFromInt(1))
	if !errors.Is(err, ErrEdgeNotFound) {
		t.Fatalf("err = %v, want ErrEdgeNotFound", err)
	}
}

func TestRemoveComponent(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	child := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	addComponent(t, ctx, svcs, parent, child, "4")

	if err := svcs.Graph.RemoveComponent(ctx, parent.ID, child.ID); err != nil {
		t.Fatal(err)
	}
	err := svcs.Graph.RemoveComponent(ctx, parent.ID, child.ID)
	if !errors.Is(err, ErrEdgeNotFound) {
		t.Fatalf("err = %v, want ErrEdgeNotFound", err)
	}
}

func TestRemoveItemReferencedGuard(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	child := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	addComponent(t, ctx, svcs, parent, child, "4")

	// 作为子项被引用，禁止删除
	err := svcs.Graph.RemoveItem(ctx, child.ID)
	if !errors.Is(err, ErrItemReferenced) {
		t.Fatalf("err = %v, want ErrItemReferenced", err)
	}

	// 出现在项目行上，同样禁止删除
	project, err := svcs.Ledger.CreateProject(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Ledger.AddLine(ctx, project.ID, parent.ID, decimal.NewFromInt(1)); err != nil {
		t.Fatal(err)
	}
	err = svcs.Graph.RemoveItem(ctx, parent.ID)
	if !errors.Is(err, ErrItemReferenced) {
		t.Fatalf("err = %v, want ErrItemReferenced", err)
	}
}

func TestRemoveItemDeletesOwnEdges(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	child := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	addComponent(t, ctx, svcs, parent, child, "4")

	// parent 只是边的父项，可删；其出边一并清理，child 随后可删
	if err := svcs.Graph.RemoveItem(ctx, parent.ID); err != nil {
		t.Fatal(err)
	}
	if err := svcs.Graph.RemoveItem(ctx, child.ID); err != nil {
		t.Fatal(err)
	}

	_, err := svcs.Graph.GetItem(ctx, parent.ID)
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestChildrenDeterministicOrder(t *testing.T) {
	ctx, svcs := setupTest(t)
	parent := createAssembly(t, ctx, svcs, "Frame")
	c1 := createMaterial(t, ctx, svcs, "Bolt", "0.50")
	c2 := createMaterial(t, ctx, svcs, "Plank", "12.00")
	c3 := createMaterial(t, ctx, svcs, "Screw", "0.10")
	addComponent(t, ctx, svcs, parent, c1, "4")
	addComponent(t, ctx, svcs, parent, c2, "2")
	addComponent(t, ctx, svcs, parent, c3, "8")

	edges, err := svcs.Graph.Children(ctx, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 3 {
		t.Fatalf("got %d children, want 3", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i-1].ChildItemID >= edges[i].ChildItemID {
			t.Fatalf("children not ordered by child id: %s >= %s",
				edges[i-1].ChildItemID, edges[i].ChildItemID)
		}
	}
}
