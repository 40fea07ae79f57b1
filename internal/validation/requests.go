package validation

import (
	"strings"
	"time"

	"nexbid/internal/domain"
)

const rfc3339 = "2006-01-02T15:04:05Z07:00"

type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required,min=1,max=2000"`
	MinBudget   int    `json:"minBudget" binding:"required,gt=0"`
	MaxBudget   int    `json:"maxBudget" binding:"required,gt=0,gtefield=MinBudget"`
	Deadline    string `json:"deadline" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// DeadlineTime 已经过 datetime 校验
func (r *CreateProjectRequest) DeadlineTime() time.Time {
	t, _ := time.Parse(rfc3339, r.Deadline)
	return t.UTC()
}

type CreateBidRequest struct {
	Amount  int    `json:"amount" binding:"required,gt=0"`
	EtaDays int    `json:"etaDays" binding:"required,min=1,max=365"`
	Message string `json:"message" binding:"required,min=1,max=1000"`
}

type AcceptBidRequest struct {
	BidID string `json:"bidId" binding:"required,uuid"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
}

func (r *UpdateStatusRequest) Target() domain.Status { return domain.Status(r.Status) }

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required,min=1,max=1000"`
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=191"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"required,oneof=BUYER SELLER"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ListProjectsQuery page/limit 用指针区分“未传”和 0
type ListProjectsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Page   *int   `form:"page" binding:"omitempty,min=1"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1,max=100"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

func (q *ListProjectsQuery) Filter() domain.ProjectFilter {
	f := domain.ProjectFilter{Status: domain.Status(q.Status), Page: DefaultPage, Limit: DefaultLimit}
	if q.Page != nil {
		f.Page = *q.Page
	}
	if q.Limit != nil {
		f.Limit = *q.Limit
	}
	return f
}
