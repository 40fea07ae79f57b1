package domain

import (
	"context"
	"encoding/json"
	"time"
)

type Project struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	MinBudget   int       `gorm:"not null" json:"minBudget"`
	MaxBudget   int       `gorm:"not null" json:"maxBudget"`
	Deadline    time.Time `gorm:"not null" json:"deadline"`
	Status      Status    `gorm:"size:16;not null;index" json:"status"`
	BuyerID     string    `gorm:"size:36;not null;index" json:"buyerId"`
	SellerID    *string   `gorm:"size:36;index" json:"sellerId"`
	Deliverable *string   `gorm:"size:255" json:"deliverable"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Buyer   *User         `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller  *User         `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Bids    []Bid         `gorm:"foreignKey:ProjectID" json:"bids"`
	Reviews []Review      `gorm:"foreignKey:ProjectID" json:"reviews"`
	Count   *ProjectCount `gorm:"-" json:"_count,omitempty"`
}

func (Project) TableName() string { return "projects" }

// MarshalJSON bids / reviews 没有数据时输出 [] 而不是 null
func (p Project) MarshalJSON() ([]byte, error) {
	type plain Project
	out := plain(p)
	if out.Bids == nil {
		out.Bids = []Bid{}
	}
	if out.Reviews == nil {
		out.Reviews = []Review{}
	}
	return json.Marshal(out)
}

func (p *Project) Ref() *ProjectRef { return &ProjectRef{ID: p.ID, Title: p.Title} }

func (p *Project) HasDeliverable() bool { return p.Deliverable != nil && *p.Deliverable != "" }

func (p *Project) AssignedTo(userID string) bool {
	return p.SellerID != nil && *p.SellerID == userID
}

// ProjectRef 挂在 bid/review 上的项目摘要
type ProjectRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ProjectCount struct {
	Bids int `json:"bids"`
}

// ProjectFilter 列表查询条件；Status 为空表示不过滤
type ProjectFilter struct {
	Status Status
	Page   int
	Limit  int
}

func (f ProjectFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination pages = ceil(total/limit)
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	// FindDetailed 带 buyer、seller、bids(含 seller)、reviews(含 seller)
	FindDetailed(ctx context.Context, id string) (*Project, error)
	// LockByID 在事务内加行锁读取（方言不支持时退化为普通读）
	LockByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, f ProjectFilter) ([]Project, int64, error)
	// AssignSeller 仅当 status=PENDING 时生效，返回是否更新成功
	AssignSeller(ctx context.Context, id, sellerID string) (bool, error)
	// Advance 条件更新 status: from -> to
	Advance(ctx context.Context, id string, from, to Status) (bool, error)
	// SetDeliverable 仅当 status=IN_PROGRESS 时生效
	SetDeliverable(ctx context.Context, id, filename string) (bool, error)
	Deliverables(ctx context.Context) ([]string, error)
}
