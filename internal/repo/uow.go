package repo

import (
	"context"

	"gorm.io/gorm"

	"nexbid/internal/domain"
)

func NewRepositories(db *gorm.DB) domain.Repositories {
	return domain.Repositories{
		Users:    NewUserRepo(db),
		Projects: NewProjectRepo(db),
		Bids:     NewBidRepo(db),
		Reviews:  NewReviewRepo(db),
	}
}

// UnitOfWork 基于 gorm.DB.Transaction；fn 内的仓储都绑定同一个 tx
type UnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) *UnitOfWork { return &UnitOfWork{db: db} }

func (u *UnitOfWork) Do(ctx context.Context, fn func(r domain.Repositories) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
	return dbErr(err)
}

var (
	_ domain.UnitOfWork        = (*UnitOfWork)(nil)
	_ domain.UserRepository    = (*UserRepo)(nil)
	_ domain.ProjectRepository = (*ProjectRepo)(nil)
	_ domain.ReviewRepository  = (*ReviewRepo)(nil)
)
