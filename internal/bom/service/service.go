package service

import (
	"strings"

	"github.com/fabworks/bomcost/internal/bom/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// generateID 生成32位ID
func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
}

// Services 服务集合
type Services struct {
	Graph  *GraphService
	Cost   *CostService
	Ledger *LedgerService
	Lock   *LockService
	Export *ExportService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories) *Services {
	cost := NewCostService(db)
	ledger := NewLedgerService(db, repos.Project, cost)
	return &Services{
		Graph:  NewGraphService(db, repos.Item),
		Cost:   cost,
		Ledger: ledger,
		Lock:   NewLockService(db, cost),
		Export: NewExportService(ledger, cost),
	}
}
