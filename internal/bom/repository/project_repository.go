package repository

import (
	"context"
	"errors"

	"github.com/fabworks/bomcost/internal/bom/entity"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓库（项目 + 项目物料行）
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// FindByID 根据ID获取项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// List 项目列表，新建的在前
func (r *ProjectRepository) List(ctx context.Context) ([]entity.Project, error) {
	var projects []entity.Project
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&projects).Error
	return projects, err
}

// FindLine 获取项目下指定物料的行
func (r *ProjectRepository) FindLine(ctx context.Context, projectID, itemID string) (*entity.ProjectItem, error) {
	var line entity.ProjectItem
	err := r.db.WithContext(ctx).
		First(&line, "project_id = ? AND item_id = ?", projectID, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// ListLines 获取项目的全部物料行，按物料名称排序
func (r *ProjectRepository) ListLines(ctx context.Context, projectID string) ([]entity.ProjectItem, error) {
	var lines []entity.ProjectItem
	err := r.db.WithContext(ctx).
		Preload("Item").
		Joins("JOIN items ON items.id = project_items.item_id").
		Where("project_items.project_id = ?", projectID).
		Order("items.name ASC").
		Find(&lines).Error
	return lines, err
}
