package repo

import (
	"context"

	"gorm.io/gorm"

	"nexbid/internal/domain"
)

type ReviewRepo struct{ db *gorm.DB }

func NewReviewRepo(db *gorm.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	return dbErr(withoutAssociations(r.db.WithContext(ctx)).Create(rv).Error)
}

func (r *ReviewRepo) ExistsForProject(ctx context.Context, projectID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Review{}).Where("project_id = ?", projectID).Count(&n).Error
	return n > 0, dbErr(err)
}
