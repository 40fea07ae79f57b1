package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nexbid/internal/domain"
)

type ProjectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) *ProjectRepo { return &ProjectRepo{db: db} }

func newestFirst(db *gorm.DB) *gorm.DB { return db.Order("created_at desc").Order("id desc") }

func withoutAssociations(db *gorm.DB) *gorm.DB { return db.Omit(clause.Associations) }

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return dbErr(withoutAssociations(r.db.WithContext(ctx)).Create(p).Error)
}

func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return notFoundNil(&p, err)
}

func (r *ProjectRepo) FindDetailed(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.db.WithContext(ctx).
		Preload("Buyer", userSummary).
		Preload("Seller", userSummary).
		Preload("Bids", newestFirst).
		Preload("Bids.Seller", userSummary).
		Preload("Reviews", newestFirst).
		Preload("Reviews.Seller", userSummary).
		First(&p, "id = ?", id).Error
	out, err := notFoundNil(&p, err)
	if out != nil {
		out.Count = &domain.ProjectCount{Bids: len(out.Bids)}
	}
	return out, err
}

func (r *ProjectRepo) LockByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	return notFoundNil(&p, err)
}

func (r *ProjectRepo) List(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Project{})
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	// 之后的 Count / Find 各自克隆语句
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, dbErr(err)
	}
	var list []domain.Project
	err := newestFirst(tx).
		Preload("Buyer", userSummary).
		Preload("Bids", newestFirst).
		Preload("Bids.Seller", userSummary).
		Offset(f.Offset()).Limit(f.Limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, dbErr(err)
	}
	for i := range list {
		list[i].Count = &domain.ProjectCount{Bids: len(list[i].Bids)}
	}
	return list, total, nil
}

func (r *ProjectRepo) AssignSeller(ctx context.Context, id, sellerID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{"seller_id": sellerID, "status": domain.StatusInProgress})
	return res.RowsAffected == 1, dbErr(res.Error)
}

func (r *ProjectRepo) Advance(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, dbErr(res.Error)
}

func (r *ProjectRepo) SetDeliverable(ctx context.Context, id, filename string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ? AND status = ?", id, domain.StatusInProgress).
		Update("deliverable", filename)
	return res.RowsAffected == 1, dbErr(res.Error)
}

func (r *ProjectRepo) Deliverables(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("deliverable IS NOT NULL AND deliverable <> ''").
		Pluck("deliverable", &names).Error
	return names, dbErr(err)
}
