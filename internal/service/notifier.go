package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexbid/internal/core/mailer"
	"nexbid/internal/domain"
)

const (
	tplBidAccepted      = "bid_accepted"
	tplProjectCompleted = "project_completed"
)

// Notifier 提交后异步发信；失败只记日志和指标，不影响业务结果
type Notifier struct {
	mailer  mailer.Mailer
	tpl     *mailer.Templates
	log     *zap.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func NewNotifier(m mailer.Mailer, tpl *mailer.Templates, log *zap.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{mailer: m, tpl: tpl, log: log.Named("notifier"), timeout: timeout}
}

func (n *Notifier) BidAccepted(p *domain.Project, b *domain.Bid) {
	if n == nil || b.Seller == nil {
		return
	}
	n.dispatch(tplBidAccepted, p.ID, func() (mailer.Message, error) {
		buyer := ""
		if p.Buyer != nil {
			buyer = p.Buyer.Name
		}
		return n.tpl.BidAccepted(mailer.BidAcceptedData{
			Seller:       mailer.Address{Name: b.Seller.Name, Email: b.Seller.Email},
			SellerName:   b.Seller.Name,
			BuyerName:    buyer,
			ProjectTitle: p.Title,
			Amount:       b.Amount,
			EtaDays:      b.EtaDays,
			ProjectURL:   n.tpl.ProjectURL(p.ID),
		})
	})
}

func (n *Notifier) ProjectCompleted(p *domain.Project) {
	if n == nil || p.Buyer == nil {
		return
	}
	n.dispatch(tplProjectCompleted, p.ID, func() (mailer.Message, error) {
		seller, deliverable := "", ""
		if p.Seller != nil {
			seller = p.Seller.Name
		}
		if p.HasDeliverable() {
			deliverable = n.tpl.UploadURL(*p.Deliverable)
		}
		return n.tpl.ProjectCompleted(mailer.ProjectCompletedData{
			Buyer:          mailer.Address{Name: p.Buyer.Name, Email: p.Buyer.Email},
			BuyerName:      p.Buyer.Name,
			SellerName:     seller,
			ProjectTitle:   p.Title,
			ProjectURL:     n.tpl.ProjectURL(p.ID),
			DeliverableURL: deliverable,
		})
	})
}

func (n *Notifier) dispatch(template, projectID string, build func() (mailer.Message, error)) {
	msg, err := build()
	if err != nil {
		notifications.WithLabelValues(template, "error").Inc()
		n.log.Error("render email failed", zap.String("template", template), zap.String("project_id", projectID), zap.Error(err))
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		// 与请求上下文解耦
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.mailer.Send(ctx, msg); err != nil {
			notifications.WithLabelValues(template, "error").Inc()
			n.log.Warn("send email failed",
				zap.String("template", template),
				zap.String("project_id", projectID),
				zap.String("to", msg.To.Email),
				zap.String("provider", n.mailer.Name()),
				zap.Error(err))
			return
		}
		notifications.WithLabelValues(template, "sent").Inc()
		n.log.Info("email sent", zap.String("template", template), zap.String("project_id", projectID))
	}()
}

// Wait 等待所有在途邮件
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

// Shutdown 在 ctx 到期前等待在途邮件
func (n *Notifier) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() { n.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
