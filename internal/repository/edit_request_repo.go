package repository

import (
	"context"
	"errors"
	"time"

	"shopmaster/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStatusChanged is returned when a transition finds the request no longer pending.
var ErrStatusChanged = errors.New("edit request is no longer pending")

type EditRequestFilter struct {
	Status     model.EditStatus
	EntityType model.EntityType
	EntityID   *uuid.UUID
}

type EditRequestRepository interface {
	Create(ctx context.Context, req *model.EditRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EditRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EditRequest, error)
	ListPending(ctx context.Context) ([]model.EditRequest, error)
	List(ctx context.Context, filter EditRequestFilter, page, limit int) ([]model.EditRequest, int64, error)
	// Transition moves a PENDING request to a terminal status. It returns ErrStatusChanged
	// when no pending row matched.
	Transition(ctx context.Context, id uuid.UUID, to model.EditStatus, reviewer string, at time.Time) error
}

type editRequestRepository struct {
	db *gorm.DB
}

func NewEditRequestRepository(db *gorm.DB) EditRequestRepository {
	return &editRequestRepository{db: db}
}

func (r *editRequestRepository) Create(ctx context.Context, req *model.EditRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *editRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	var req model.EditRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *editRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	var req model.EditRequest
	if err := forUpdate(GetDB(ctx, r.db)).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *editRequestRepository) ListPending(ctx context.Context) ([]model.EditRequest, error) {
	var reqs []model.EditRequest
	err := GetDB(ctx, r.db).
		Where("status = ?", model.EditPending).
		Order("created_at ASC, id ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *editRequestRepository) List(ctx context.Context, filter EditRequestFilter, page, limit int) ([]model.EditRequest, int64, error) {
	var reqs []model.EditRequest
	var total int64

	scoped := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.EntityType != "" {
			db = db.Where("entity_type = ?", filter.EntityType)
		}
		if filter.EntityID != nil {
			db = db.Where("entity_id = ?", *filter.EntityID)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.EditRequest{}).Scopes(scoped).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(scoped).Order("created_at DESC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *editRequestRepository) Transition(ctx context.Context, id uuid.UUID, to model.EditStatus, reviewer string, at time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.EditRequest{}).
		Where("id = ? AND status = ?", id, model.EditPending).
		Updates(map[string]interface{}{
			"status":           to,
			"reviewed_by":      reviewer,
			"review_timestamp": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}
