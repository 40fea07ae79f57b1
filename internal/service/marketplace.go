package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"nexbid/internal/domain"
	"nexbid/internal/storage"
	"nexbid/pkg/utils"
)

const maxPageLimit = 100

// FileStore 交付物存储
type FileStore interface {
	Save(projectID, originalName string, r io.Reader) (*storage.StoredFile, error)
	Remove(filename string) error
}

type NewProject struct {
	Title       string
	Description string
	MinBudget   int
	MaxBudget   int
	Deadline    time.Time
}

type NewBid struct {
	Amount  int
	EtaDays int
	Message string
}

type NewReview struct {
	Rating  int
	Comment string
}

type AcceptResult struct {
	Message string          `json:"message"`
	Project *domain.Project `json:"project"`
	Bid     *domain.Bid     `json:"bid"`
}

type UploadResult struct {
	Message string              `json:"message"`
	Project *domain.Project     `json:"project"`
	File    *storage.StoredFile `json:"file"`
}

type Marketplace struct {
	repos    domain.Repositories
	uow      domain.UnitOfWork
	files    FileStore
	notifier *Notifier
	log      *zap.Logger
}

func NewMarketplace(repos domain.Repositories, uow domain.UnitOfWork, files FileStore, n *Notifier, log *zap.Logger) *Marketplace {
	return &Marketplace{repos: repos, uow: uow, files: files, notifier: n, log: log.Named("marketplace")}
}

func (s *Marketplace) CreateProject(ctx context.Context, a domain.Actor, in NewProject) (*domain.Project, error) {
	if err := domain.Authorize(a, domain.CapCreateProject, nil); err != nil {
		return nil, err
	}
	if in.MinBudget <= 0 || in.MaxBudget < in.MinBudget {
		return nil, domain.InvalidFields("Validation failed", map[string]string{
			"maxBudget": "Max budget must be greater than or equal to min budget",
		})
	}
	p := &domain.Project{
		ID:          utils.NewID(),
		Title:       in.Title,
		Description: in.Description,
		MinBudget:   in.MinBudget,
		MaxBudget:   in.MaxBudget,
		Deadline:    in.Deadline.UTC(),
		Status:      domain.StatusPending,
		BuyerID:     a.ID,
	}
	if err := s.repos.Projects.Create(ctx, p); err != nil {
		return nil, err
	}
	projectsCreated.Inc()
	s.log.Info("project created", zap.String("project_id", p.ID), zap.String("buyer_id", a.ID))
	return s.detailed(ctx, p.ID)
}

func (s *Marketplace) ListProjects(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, domain.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	list, total, err := s.repos.Projects.List(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	if list == nil {
		list = []domain.Project{}
	}
	return list, domain.NewPagination(f.Page, f.Limit, total), nil
}

func (s *Marketplace) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.detailed(ctx, id)
}

func (s *Marketplace) SubmitBid(ctx context.Context, a domain.Actor, projectID string, in NewBid) (*domain.Bid, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(a, domain.CapPlaceBid, p); err != nil {
		return nil, err
	}
	if p.Status != domain.StatusPending {
		return nil, domain.InvalidState("Project is no longer accepting bids")
	}
	exists, err := s.repos.Bids.ExistsForSeller(ctx, projectID, a.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Conflict("You have already placed a bid on this project")
	}

	b := &domain.Bid{
		ID:        utils.NewID(),
		Amount:    in.Amount,
		EtaDays:   in.EtaDays,
		Message:   in.Message,
		ProjectID: projectID,
		SellerID:  a.ID,
	}
	if err := s.repos.Bids.Create(ctx, b); err != nil {
		// 并发重复报价由唯一索引兜底
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Conflict("You have already placed a bid on this project")
		}
		return nil, err
	}
	bidsSubmitted.Inc()

	out, err := s.repos.Bids.FindWithSeller(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = b
	}
	out.Project = p.Ref()
	return out, nil
}

func (s *Marketplace) ListBids(ctx context.Context, projectID string) ([]domain.Bid, error) {
	if _, err := s.project(ctx, projectID); err != nil {
		return nil, err
	}
	list, err := s.repos.Bids.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Bid{}
	}
	return list, nil
}

// AcceptBid 行锁 + 条件更新保证同一项目只会有一个中标报价。
// 返回的项目和报价在同一事务内读出，出错即整体回滚。
func (s *Marketplace) AcceptBid(ctx context.Context, a domain.Actor, projectID, bidID string) (*AcceptResult, error) {
	var (
		project *domain.Project
		bid     *domain.Bid
	)
	err := s.uow.Do(ctx, func(r domain.Repositories) error {
		b, err := r.Bids.FindByID(ctx, bidID)
		if err != nil {
			return err
		}
		if b == nil || b.ProjectID != projectID {
			return domain.NotFound("Bid not found or does not belong to this project")
		}
		p, err := r.Projects.LockByID(ctx, projectID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("Project not found")
		}
		if p.Status != domain.StatusPending {
			return domain.InvalidState("Project is not in pending status")
		}
		if err := domain.Authorize(a, domain.CapAcceptBid, p); err != nil {
			return err
		}
		ok, err := r.Projects.AssignSeller(ctx, p.ID, b.SellerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidState("Project is not in pending status")
		}
		if err := r.Bids.MarkAccepted(ctx, b.ID); err != nil {
			return err
		}

		if project, err = r.Projects.FindDetailed(ctx, projectID); err != nil {
			return err
		}
		if bid, err = r.Bids.FindWithSeller(ctx, bidID); err != nil {
			return err
		}
		if project == nil || bid == nil {
			return domain.Internal("accepted bid vanished", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	bidsAccepted.Inc()
	s.log.Info("bid accepted", zap.String("project_id", projectID), zap.String("bid_id", bidID))
	s.notifier.BidAccepted(project, bid)
	return &AcceptResult{Message: "Bid accepted successfully", Project: project, Bid: bid}, nil
}

// UpdateStatus 只能把 IN_PROGRESS 推进到 COMPLETED
func (s *Marketplace) UpdateStatus(ctx context.Context, a domain.Actor, projectID string, to domain.Status) (*domain.Project, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(a, domain.CapUpdateStatus, p); err != nil {
		return nil, err
	}
	if err := domain.CheckStatusUpdate(p, to); err != nil {
		return nil, err
	}
	ok, err := s.repos.Projects.Advance(ctx, p.ID, domain.StatusInProgress, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.InvalidState("Can only complete projects that are in progress")
	}
	projectsCompleted.Inc()
	s.log.Info("project completed", zap.String("project_id", p.ID), zap.String("by", a.ID))

	out, err := s.detailed(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.ProjectCompleted(out)
	return out, nil
}

// UploadDeliverable 写盘之后任一步失败都删除新文件；替换成功后删除旧文件
func (s *Marketplace) UploadDeliverable(ctx context.Context, a domain.Actor, projectID, originalName string, r io.Reader) (*UploadResult, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusInProgress {
		return nil, domain.InvalidState("Can only upload deliverables for projects in progress")
	}
	if err := domain.Authorize(a, domain.CapUploadDeliverable, p); err != nil {
		return nil, err
	}

	file, err := s.files.Save(p.ID, originalName, r)
	if err != nil {
		return nil, err
	}
	ok, err := s.repos.Projects.SetDeliverable(ctx, p.ID, file.Filename)
	if err == nil && !ok {
		err = domain.InvalidState("Can only upload deliverables for projects in progress")
	}
	if err != nil {
		s.discard(file.Filename)
		return nil, err
	}
	deliverablesUploaded.Inc()
	if p.HasDeliverable() && *p.Deliverable != file.Filename {
		s.discard(*p.Deliverable)
	}

	out, err := s.detailed(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Message: "Deliverable uploaded successfully", Project: out, File: file}, nil
}

func (s *Marketplace) CreateReview(ctx context.Context, a domain.Actor, projectID string, in NewReview) (*domain.Review, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusCompleted {
		return nil, domain.InvalidState("Can only review completed projects")
	}
	if p.SellerID == nil {
		return nil, domain.InvalidState("No seller assigned to this project")
	}
	if err := domain.Authorize(a, domain.CapReview, p); err != nil {
		return nil, err
	}
	exists, err := s.repos.Reviews.ExistsForProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Conflict("Review already exists for this project")
	}

	rv := &domain.Review{
		ID:        utils.NewID(),
		Rating:    in.Rating,
		Comment:   in.Comment,
		ProjectID: p.ID,
		SellerID:  *p.SellerID,
	}
	if err := s.repos.Reviews.Create(ctx, rv); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Conflict("Review already exists for this project")
		}
		return nil, err
	}
	if seller, err := s.repos.Users.FindByID(ctx, rv.SellerID); err == nil && seller != nil {
		rv.Seller = seller
	}
	rv.Project = p.Ref()
	return rv, nil
}

func (s *Marketplace) project(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.repos.Projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("Project not found")
	}
	return p, nil
}

func (s *Marketplace) detailed(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.repos.Projects.FindDetailed(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("Project not found")
	}
	return p, nil
}

func (s *Marketplace) discard(filename string) {
	if err := s.files.Remove(filename); err != nil {
		s.log.Error("remove upload failed", zap.String("file", filename), zap.Error(err))
	}
}
