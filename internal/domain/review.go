package domain

import (
	"context"
	"time"
)

type Review struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	ProjectID string    `gorm:"size:36;not null;uniqueIndex" json:"projectId"`
	SellerID  string    `gorm:"size:36;not null;index" json:"sellerId"`
	CreatedAt time.Time `json:"createdAt"`

	Seller  *User       `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Project *ProjectRef `gorm:"-" json:"project,omitempty"`
}

func (Review) TableName() string { return "reviews" }

type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	ExistsForProject(ctx context.Context, projectID string) (bool, error)
}
