package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestExportProjectCost(t *testing.T) {
	ctx, svcs := setupTest(t)
	_, _, _, table := buildTableFixture(t, ctx, svcs)

	project, err := svcs.Ledger.CreateProject(ctx, "Dining Table Project")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Ledger.AddLine(ctx, project.ID, table.ID, decimal.NewFromInt(3)); err != nil {
		t.Fatal(err)
	}

	f, filename, err := svcs.Export.ExportProjectCost(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if filename == "" {
		t.Fatal("empty filename")
	}

	sheet := "成本表"
	name, err := f.GetCellValue(sheet, "B2")
	if err != nil {
		t.Fatal(err)
	}
	if name != "Table" {
		t.Fatalf("B2 = %q, want Table", name)
	}

	lineTotal, err := f.GetCellValue(sheet, "G2")
	if err != nil {
		t.Fatal(err)
	}
	got, err := decimal.NewFromString(lineTotal)
	if err != nil {
		t.Fatalf("G2 = %q: %v", lineTotal, err)
	}
	wantCost(t, got, "78")

	// 汇总行在数据行之后
	summary, err := f.GetCellValue(sheet, "A3")
	if err != nil {
		t.Fatal(err)
	}
	if summary != "汇总" {
		t.Fatalf("A3 = %q, want 汇总", summary)
	}
}

func TestExportLockedProjectUsesSnapshot(t *testing.T) {
	ctx, svcs := setupTest(t)
	_, plank, _, table := buildTableFixture(t, ctx, svcs)

	project, err := svcs.Ledger.CreateProject(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Ledger.AddLine(ctx, project.ID, table.ID, decimal.NewFromInt(3)); err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Lock.LockProject(ctx, project.ID); err != nil {
		t.Fatal(err)
	}

	// 改价后导出仍为锁定值
	newCost := decimal.RequireFromString("20.00")
	if _, err := svcs.Graph.UpdateItem(ctx, plank.ID, &UpdateItemRequest{BaseCost: &newCost}); err != nil {
		t.Fatal(err)
	}

	f, _, err := svcs.Export.ExportProjectCost(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	lineTotal, err := f.GetCellValue("成本表", "G2")
	if err != nil {
		t.Fatal(err)
	}
	got, err := decimal.NewFromString(lineTotal)
	if err != nil {
		t.Fatalf("G2 = %q: %v", lineTotal, err)
	}
	wantCost(t, got, "78")
}
