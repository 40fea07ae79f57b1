package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nexbid/internal/domain"
	"nexbid/internal/service"
	"nexbid/internal/transport/http/ez"
	mdw "nexbid/internal/transport/http/middleware"
	"nexbid/internal/validation"
)

// 上传字段名，file 为兼容别名
var uploadFields = []string{"deliverable", "file"}

type ProjectHandler struct {
	svc *service.Marketplace
}

func NewProjectHandler(svc *service.Marketplace) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

func (h *ProjectHandler) Priority() int { return 20 }

type listOut struct {
	Projects   []domain.Project  `json:"projects"`
	Pagination domain.Pagination `json:"pagination"`
}

func projectID(c *gin.Context) (string, error) {
	id := c.Param("id")
	return id, validation.ID("id", id)
}

func (h *ProjectHandler) Mount(e ez.EZ) {
	g := e.Group("/projects")

	ez.RegisterAction(g, ez.Action[validation.ListProjectsQuery, listOut]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *validation.ListProjectsQuery) (listOut, error) {
			ps, pg, err := h.svc.ListProjects(c.Request.Context(), in.Filter())
			if err != nil {
				return listOut{}, err
			}
			return listOut{Projects: ps, Pagination: pg}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[validation.CreateProjectRequest, *domain.Project]{
		Method: http.MethodPost,
		Path:   "",
		Binder: ez.BindJSON,
		Roles:  []domain.Role{domain.RoleBuyer},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *validation.CreateProjectRequest) (*domain.Project, error) {
			return h.svc.CreateProject(c.Request.Context(), mdw.ActorOf(c), service.NewProject{
				Title:       in.Title,
				Description: in.Description,
				MinBudget:   in.MinBudget,
				MaxBudget:   in.MaxBudget,
				Deadline:    in.DeadlineTime(),
			})
		},
	})

	ez.RegisterAction(g, ez.Action[struct{}, *domain.Project]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Project, error) {
			id, err := projectID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.GetProject(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(g, ez.Action[validation.CreateBidRequest, *domain.Bid]{
		Method: http.MethodPost,
		Path:   "/:id/bids",
		Binder: ez.BindJSON,
		Roles:  []domain.Role{domain.RoleSeller},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *validation.CreateBidRequest) (*domain.Bid, error) {
			id, err := projectID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.SubmitBid(c.Request.Context(), mdw.ActorOf(c), id, service.NewBid{
				Amount: in.Amount, EtaDays: in.EtaDays, Message: in.Message,
			})
		},
	})

	ez.RegisterAction(g, ez.Action[struct{}, []domain.Bid]{
		Method: http.MethodGet,
		Path:   "/:id/bids",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Bid, error) {
			id, err := projectID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.ListBids(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(g, ez.Action[validation.AcceptBidRequest, *service.AcceptResult]{
		Method: http.MethodPost,
		Path:   "/:id/accept",
		Binder: ez.BindJSON,
		Roles:  []domain.Role{domain.RoleBuyer},
		Handler: func(c *gin.Context, in *validation.AcceptBidRequest) (*service.AcceptResult, error) {
			id, err := projectID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.AcceptBid(c.Request.Context(), mdw.ActorOf(c), id, in.BidID)
		},
	})

	// 买家或被指派的卖家都可以改状态，角色在 service 里按项目判断
	ez.RegisterAction(g, ez.Action[validation.UpdateStatusRequest, *domain.Project]{
		Method: http.MethodPatch,
		Path:   "/:id/status",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *validation.UpdateStatusRequest) (*domain.Project, error) {
			id, err := projectID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.UpdateStatus(c.Request.Context(), mdw.ActorOf(c), id, in.Target())
		},
	})

	ez.RegisterAction(g, ez.Action[struct{}, *service.UploadResult]{
		Method:  http.MethodPost,
		Path:    "/:id/upload",
		Binder:  ez.BindNone,
		Roles:   []domain.Role{domain.RoleSeller},
		Handler: h.upload,
	})

	ez.RegisterAction(g, ez.Action[validation.CreateReviewRequest, *domain.Review]{
		Method: http.MethodPost,
		Path:   "/:id/review",
		Binder: ez.BindJSON,
		Roles:  []domain.Role{domain.RoleBuyer},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *validation.CreateReviewRequest) (*domain.Review, error) {
			id, err := projectID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.CreateReview(c.Request.Context(), mdw.ActorOf(c), id, service.NewReview{
				Rating: in.Rating, Comment: in.Comment,
			})
		},
	})
}

func (h *ProjectHandler) upload(c *gin.Context, _ *struct{}) (*service.UploadResult, error) {
	id, err := projectID(c)
	if err != nil {
		return nil, err
	}
	var mbe *http.MaxBytesError
	for _, field := range uploadFields {
		fh, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			continue
		}
		if errors.As(err, &mbe) {
			return nil, err
		}
		if err != nil {
			return nil, domain.Validation("Invalid multipart form")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, domain.Internal("open upload", err)
		}
		defer f.Close()
		return h.svc.UploadDeliverable(c.Request.Context(), mdw.ActorOf(c), id, fh.Filename, f)
	}
	return nil, domain.Validation("No file uploaded")
}
