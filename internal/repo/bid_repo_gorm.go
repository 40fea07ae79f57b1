package repo

import (
	"context"

	"gorm.io/gorm"

	"nexbid/internal/domain"
)

type BidRepo struct{ db *gorm.DB }

func NewBidRepo(db *gorm.DB) *BidRepo { return &BidRepo{db: db} }

func (r *BidRepo) Create(ctx context.Context, b *domain.Bid) error {
	return dbErr(withoutAssociations(r.db.WithContext(ctx)).Create(b).Error)
}

func (r *BidRepo) FindByID(ctx context.Context, id string) (*domain.Bid, error) {
	var b domain.Bid
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	return notFoundNil(&b, err)
}

func (r *BidRepo) FindWithSeller(ctx context.Context, id string) (*domain.Bid, error) {
	var b domain.Bid
	err := r.db.WithContext(ctx).Preload("Seller", userSummary).First(&b, "id = ?", id).Error
	return notFoundNil(&b, err)
}

func (r *BidRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Bid, error) {
	var list []domain.Bid
	err := newestFirst(r.db.WithContext(ctx)).
		Preload("Seller", userSummary).
		Where("project_id = ?", projectID).
		Find(&list).Error
	return list, dbErr(err)
}

func (r *BidRepo) ExistsForSeller(ctx context.Context, projectID, sellerID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Bid{}).
		Where("project_id = ? AND seller_id = ?", projectID, sellerID).
		Count(&n).Error
	return n > 0, dbErr(err)
}

func (r *BidRepo) MarkAccepted(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.Bid{}).Where("id = ?", id).Update("accepted", true)
	if res.Error != nil {
		return dbErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Bid not found")
	}
	return nil
}

var _ domain.BidRepository = (*BidRepo)(nil)
