package service

import (
	"context"
	"fmt"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// 成本表导出表头
var costExportHeaders = []string{
	"序号", "物料名称", "类型", "单位", "数量", "单位成本", "小计",
}

// ExportService 成本表导出服务
type ExportService struct {
	ledger *LedgerService
	cost   *CostService
}

// NewExportService 创建导出服务
func NewExportService(ledger *LedgerService, cost *CostService) *ExportService {
	return &ExportService{ledger: ledger, cost: cost}
}

// ExportProjectCost 导出项目成本表为xlsx。
// DRAFT项目导出实时卷算成本，DONE项目导出锁定快照
func (s *ExportService) ExportProjectCost(ctx context.Context, projectID string) (*excelize.File, string, error) {
	project, err := s.ledger.GetProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	lines, err := s.ledger.Lines(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("list lines: %w", err)
	}

	f := excelize.NewFile()
	sheet := "成本表"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 写入表头
	for i, h := range costExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入数据行
	locked := project.Status == entity.ProjectStatusDone
	for rowIdx, line := range lines {
		row := rowIdx + 2

		var unit, lineTotal decimal.Decimal
		if locked {
			unit = line.LockedUnitCost.Decimal
			lineTotal = line.LockedTotalCost.Decimal
		} else {
			unit, err = s.cost.ComputeItemCost(ctx, line.ItemID)
			if err != nil {
				return nil, "", err
			}
			lineTotal = line.Qty.Mul(unit).Round(costScale)
		}

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), rowIdx+1)
		if line.Item != nil {
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.Item.Name)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.Item.ItemType)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), line.Item.Unit)
		}
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), line.Qty.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), unit.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), lineTotal.InexactFloat64())
	}

	total, err := s.ledger.ComputeProjectCost(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	// 底部汇总行
	summaryRow := len(lines) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("物料行数: %d", len(lines)))
	f.SetCellValue(sheet, fmt.Sprintf("G%d", summaryRow), total.InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("G%d", summaryRow), summaryStyle)

	// 列宽
	colWidths := []float64{6, 24, 10, 6, 10, 12, 12}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("项目成本_%s_%s.xlsx", project.Name, project.Status)
	return f, filename, nil
}
