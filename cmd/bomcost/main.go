package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"github.com/fabworks/bomcost/internal/bom/repository"
	"github.com/fabworks/bomcost/internal/bom/service"
	"github.com/fabworks/bomcost/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	seed := flag.Bool("seed", false, "建表后写入演示数据并打印成本")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting bomcost migration",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 建表
	if err := db.AutoMigrate(
		&entity.Item{},
		&entity.ItemComponent{},
		&entity.Project{},
		&entity.ProjectItem{},
	); err != nil {
		zapLogger.Fatal("Failed to migrate schema", zap.Error(err))
	}
	zapLogger.Info("Schema migrated")

	if *seed {
		if err := seedDemo(db, zapLogger); err != nil {
			zapLogger.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// seedDemo 构造演示BOM并走一遍完整流程：
// 螺栓0.50、木板12.00 → 框架=4×螺栓+2×木板 → 桌子=1×框架 → 项目含3×桌子，
// 锁定后把木板改价为20.00，验证锁定总额不变
func seedDemo(db *gorm.DB, zapLogger *zap.Logger) error {
	ctx := context.Background()
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos)

	bolt, err := services.Graph.CreateItem(ctx, &service.CreateItemRequest{
		Name: "Bolt", BaseCost: dec("0.50"), ItemType: entity.ItemTypeMaterial, Unit: "pcs",
	})
	if err != nil {
		return err
	}
	plank, err := services.Graph.CreateItem(ctx, &service.CreateItemRequest{
		Name: "Wood plank", BaseCost: dec("12.00"), ItemType: entity.ItemTypeMaterial, Unit: "pcs",
	})
	if err != nil {
		return err
	}

	frame, err := services.Graph.CreateItem(ctx, &service.CreateItemRequest{Name: "Frame"})
	if err != nil {
		return err
	}
	if _, err := services.Graph.AddComponent(ctx, frame.ID, bolt.ID, decimal.NewFromInt(4)); err != nil {
		return err
	}
	if _, err := services.Graph.AddComponent(ctx, frame.ID, plank.ID, decimal.NewFromInt(2)); err != nil {
		return err
	}

	table, err := services.Graph.CreateItem(ctx, &service.CreateItemRequest{Name: "Table"})
	if err != nil {
		return err
	}
	if _, err := services.Graph.AddComponent(ctx, table.ID, frame.ID, decimal.NewFromInt(1)); err != nil {
		return err
	}

	project, err := services.Ledger.CreateProject(ctx, "Dining Table Project")
	if err != nil {
		return err
	}
	if _, err := services.Ledger.AddLine(ctx, project.ID, table.ID, decimal.NewFromInt(3)); err != nil {
		return err
	}

	live, err := services.Ledger.ComputeProjectCost(ctx, project.ID)
	if err != nil {
		return err
	}
	zapLogger.Info("Live project cost", zap.String("project", project.Name), zap.String("cost", live.String()))

	if _, err := services.Lock.LockProject(ctx, project.ID); err != nil {
		return err
	}

	// 改价验证快照不受影响
	if _, err := services.Graph.UpdateItem(ctx, plank.ID, &service.UpdateItemRequest{BaseCost: dec("20.00")}); err != nil {
		return err
	}
	lockedCost, err := services.Ledger.ComputeProjectCost(ctx, project.ID)
	if err != nil {
		return err
	}
	zapLogger.Info("Locked project cost after price change",
		zap.String("project", project.Name),
		zap.String("cost", lockedCost.String()),
	)
	return nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
