package service

import (
	"context"
	"encoding/json"
	"fmt"

	"shopmaster/internal/model"
	"shopmaster/internal/repository"

	"github.com/google/uuid"
)

type ActivityLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Details    model.JSONValue `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

type ActivityService interface {
	List(ctx context.Context, action string, page, limit int) ([]ActivityLogResponse, int64, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

func (s *activityService) List(ctx context.Context, action string, page, limit int) ([]ActivityLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, &StoreError{Op: "list activity logs", Err: err}
	}

	res := make([]ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := l.UserName
		if userName == "" {
			userName = "System"
		}
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, ActivityLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserName:   userName,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

// writeActivity records who did what. Callers pass their transaction context so the
// row commits or rolls back with the change it describes.
func writeActivity(ctx context.Context, repo repository.ActivityRepository, actor Actor, action, entityType, entityID string, details map[string]interface{}) error {
	if repo == nil {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode activity details: %w", err)
	}
	entry := &model.ActivityLog{
		ID:         uuid.New(),
		UserID:     actor.idPtr(),
		UserName:   actor.Name,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
	}
	if err := repo.Log(ctx, entry); err != nil {
		return &StoreError{Op: "write activity log", Err: err}
	}
	return nil
}
