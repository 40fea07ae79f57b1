package seed

import (
	"context"
	"time"

	"nexbid/internal/domain"
	"nexbid/pkg/utils"
)

// DemoPassword 所有演示账号共用
const DemoPassword = "password"

type Summary struct {
	Skipped  bool
	Users    int
	Projects int
	Bids     int
	Reviews  int
}

type userSpec struct {
	key, name, email string
	role             domain.Role
}

var users = []userSpec{
	{"demoBuyer", "Demo Buyer", "demo-buyer@nexbid.com", domain.RoleBuyer},
	{"demoSeller", "Demo Seller", "demo-seller@nexbid.com", domain.RoleSeller},
	{"buyer1", "John Buyer", "john.buyer@example.com", domain.RoleBuyer},
	{"buyer2", "Jane Client", "jane.client@example.com", domain.RoleBuyer},
	{"seller1", "Mike Developer", "mike.dev@example.com", domain.RoleSeller},
	{"seller2", "Sarah Designer", "sarah.design@example.com", domain.RoleSeller},
	{"seller3", "Alex Writer", "alex.writer@example.com", domain.RoleSeller},
}

type projectSpec struct {
	key, title, description string
	min, max, days          int
	status                  domain.Status
	buyer, seller           string
	deliverable             string
}

var projects = []projectSpec{
	{key: "demo", title: "Modern Landing Page Design",
		description: "Need a stunning landing page for our SaaS product. Looking for modern design with smooth animations, responsive layout, and conversion optimization. Should include hero section, features, testimonials, and pricing.",
		min: 1500, max: 3000, days: 45, status: domain.StatusPending, buyer: "demoBuyer"},
	{key: "p1", title: "E-commerce Website Development",
		description: "Need a modern e-commerce website built with React and Node.js. Should include user authentication, product catalog, shopping cart, and payment integration.",
		min: 2000, max: 5000, days: 60, status: domain.StatusPending, buyer: "buyer1"},
	{key: "p2", title: "Mobile App UI/UX Design",
		description: "Looking for a talented designer to create UI/UX designs for a fitness tracking mobile app. Need wireframes, mockups, and a complete design system.",
		min: 800, max: 1500, days: 30, status: domain.StatusPending, buyer: "buyer2"},
	{key: "p3", title: "Content Writing for Tech Blog",
		description: "Need 10 high-quality blog posts about web development trends, AI, and cybersecurity. Each post should be 1500-2000 words with proper SEO optimization.",
		min: 500, max: 1000, days: 20, status: domain.StatusInProgress, buyer: "buyer1", seller: "seller3"},
	{key: "p4", title: "Database Optimization",
		description: "Existing PostgreSQL database needs performance optimization. Looking for someone to analyze queries, create indexes, and improve overall performance.",
		min: 1200, max: 2000, days: 10, status: domain.StatusCompleted, buyer: "buyer2", seller: "seller1",
		deliverable: "sample-deliverable.pdf"},
}

type bidSpec struct {
	project, seller string
	amount, eta     int
	message         string
	accepted        bool
}

var bids = []bidSpec{
	{"demo", "demoSeller", 2200, 14, "I specialize in modern landing page design with a focus on conversion optimization. I can create a stunning, responsive design that will help boost your conversions.", false},
	{"demo", "seller2", 2800, 21, "I am a UI/UX designer with 4+ years of experience. I can deliver a premium landing page with smooth animations and mobile-first design approach.", false},
	{"demo", "seller1", 1800, 10, "Quick turnaround specialist! I can create a clean, modern landing page that converts. Includes revisions and source files.", false},
	{"p1", "seller1", 3500, 45, "I have 5+ years of experience in full-stack development. I can build a modern, responsive e-commerce site with all the features you need.", false},
	{"p1", "seller2", 4200, 60, "I specialize in e-commerce development and can provide additional features like inventory management and analytics dashboard.", false},
	{"p2", "seller2", 1200, 21, "I am a UX/UI designer with expertise in mobile app design. I can create beautiful, user-friendly designs for your fitness app.", false},
	{"p3", "seller3", 750, 30, "I have been writing technical content for 3 years. I can deliver high-quality, SEO-optimized blog posts on time.", true},
	// 已完成项目也要有一条 accepted
	{"p4", "seller1", 1600, 14, "Database tuning is my daily work. I will profile the slow queries, add the right indexes and document every change.", true},
}

// Run 写入演示数据；demo 买家已存在时跳过
func Run(ctx context.Context, uow domain.UnitOfWork, bcryptCost int, now time.Time) (Summary, error) {
	hash, err := utils.HashPassword(DemoPassword, bcryptCost)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	err = uow.Do(ctx, func(r domain.Repositories) error {
		existing, err := r.Users.FindByEmail(ctx, users[0].email)
		if err != nil {
			return err
		}
		if existing != nil {
			sum.Skipped = true
			return nil
		}

		ids := map[string]string{}
		for _, u := range users {
			m := &domain.User{ID: utils.NewID(), Name: u.name, Email: u.email, PasswordHash: hash, Role: u.role}
			if err := r.Users.Create(ctx, m); err != nil {
				return err
			}
			ids[u.key] = m.ID
			sum.Users++
		}

		pids := map[string]string{}
		for i, p := range projects {
			m := &domain.Project{
				ID:          utils.NewID(),
				Title:       p.title,
				Description: p.description,
				MinBudget:   p.min,
				MaxBudget:   p.max,
				Deadline:    now.AddDate(0, 0, p.days).UTC(),
				Status:      p.status,
				BuyerID:     ids[p.buyer],
				// 保证列表按创建时间倒序时 demo 项目排最前
				CreatedAt: now.Add(-time.Duration(i) * time.Minute),
			}
			if p.seller != "" {
				sid := ids[p.seller]
				m.SellerID = &sid
			}
			if p.deliverable != "" {
				d := p.deliverable
				m.Deliverable = &d
			}
			if err := r.Projects.Create(ctx, m); err != nil {
				return err
			}
			pids[p.key] = m.ID
			sum.Projects++
		}

		for _, b := range bids {
			m := &domain.Bid{
				ID: utils.NewID(), Amount: b.amount, EtaDays: b.eta, Message: b.message,
				ProjectID: pids[b.project], SellerID: ids[b.seller], Accepted: b.accepted,
			}
			if err := r.Bids.Create(ctx, m); err != nil {
				return err
			}
			sum.Bids++
		}

		rv := &domain.Review{
			ID: utils.NewID(), Rating: 5,
			Comment:   "Excellent work! The database performance improved significantly. Very professional and delivered on time.",
			ProjectID: pids["p4"], SellerID: ids["seller1"],
		}
		if err := r.Reviews.Create(ctx, rv); err != nil {
			return err
		}
		sum.Reviews++
		return nil
	})
	return sum, err
}
