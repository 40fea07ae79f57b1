package domain

import "context"

// Repositories 绑定到同一个连接/事务的仓储集合
type Repositories struct {
	Users    UserRepository
	Projects ProjectRepository
	Bids     BidRepository
	Reviews  ReviewRepository
}

// UnitOfWork fn 返回 nil 则提交，否则整体回滚
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r Repositories) error) error
}

// Models AutoMigrate 用
func Models() []any {
	return []any{&User{}, &Project{}, &Bid{}, &Review{}}
}
