package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"nexbid/internal/domain"
)

type Sweeper interface {
	Sweep(keep map[string]struct{}, grace time.Duration) ([]string, error)
}

// Janitor 定时清理没有项目引用的上传文件
type Janitor struct {
	projects domain.ProjectRepository
	store    Sweeper
	grace    time.Duration
	log      *zap.Logger
	cron     *cron.Cron
}

func NewJanitor(projects domain.ProjectRepository, store Sweeper, grace time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{projects: projects, store: store, grace: grace, log: log.Named("janitor")}
}

func (j *Janitor) RunOnce(ctx context.Context) ([]string, error) {
	names, err := j.projects.Deliverables(ctx)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	removed, err := j.store.Sweep(keep, j.grace)
	uploadsSwept.Add(float64(len(removed)))
	if len(removed) > 0 {
		j.log.Info("orphaned uploads removed", zap.Int("count", len(removed)), zap.Strings("files", removed))
	}
	return removed, err
}

// Start spec 为 cron 表达式或 @every/@hourly 等描述符
func (j *Janitor) Start(spec string) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{j.log}),
		cron.SkipIfStillRunning(cronLogger{j.log}),
	))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			j.log.Error("sweep uploads failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	j.cron = c
	c.Start()
	j.log.Info("upload sweeper scheduled", zap.String("spec", spec), zap.Duration("grace", j.grace))
	return nil
}

// Stop 返回的 ctx 在运行中的任务结束后关闭
func (j *Janitor) Stop() context.Context {
	if j.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return j.cron.Stop()
}

type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Sugar().Debugw(msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Sugar().Errorw(msg, append(kv, "error", err)...)
}
