package domain

import (
	"context"
	"time"
)

// Bid 同一 (project, seller) 只允许一条；每个项目最多一条 accepted
type Bid struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Amount    int       `gorm:"not null" json:"amount"`
	EtaDays   int       `gorm:"not null" json:"etaDays"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	ProjectID string    `gorm:"size:36;not null;uniqueIndex:idx_bids_project_seller,priority:1" json:"projectId"`
	SellerID  string    `gorm:"size:36;not null;uniqueIndex:idx_bids_project_seller,priority:2;index" json:"sellerId"`
	Accepted  bool      `gorm:"not null" json:"accepted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Seller  *User       `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Project *ProjectRef `gorm:"-" json:"project,omitempty"`
}

func (Bid) TableName() string { return "bids" }

type BidRepository interface {
	Create(ctx context.Context, b *Bid) error
	FindByID(ctx context.Context, id string) (*Bid, error)
	// FindWithSeller 同 FindByID，附带 seller 摘要
	FindWithSeller(ctx context.Context, id string) (*Bid, error)
	ListByProject(ctx context.Context, projectID string) ([]Bid, error)
	ExistsForSeller(ctx context.Context, projectID, sellerID string) (bool, error)
	MarkAccepted(ctx context.Context, id string) error
}
