package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"nexbid/internal/core/auth"
	"nexbid/internal/core/cache"
	"nexbid/internal/core/config"
	"nexbid/internal/core/database"
	"nexbid/internal/core/logger"
	"nexbid/internal/core/mailer"
	"nexbid/internal/core/server"
	"nexbid/internal/domain"
	"nexbid/internal/repo"
	"nexbid/internal/service"
	"nexbid/internal/storage"
	"nexbid/internal/transport/http/handler"
	"nexbid/internal/transport/http/router"
	"nexbid/internal/validation"
	"nexbid/web"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.IsProduction(),
		Rotate:      logger.FileRotate(cfg.Log.File),
	})
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	defer func() { _ = database.Close(db) }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.AutoMigrate(db, domain.Models()...); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// redis 可选：关闭时吊销列表退回进程内存
	rc := cache.NewNoop()
	var deny auth.Denylist = auth.NewMemoryDenylist()
	if cfg.Redis.Enable {
		rc = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		deny = rc
		defer func() { _ = rc.Close() }()
	}

	mail, err := mailer.New(mailer.Config{
		Provider: cfg.Mail.Provider,
		From:     mailer.Address{Name: cfg.Mail.FromName, Email: cfg.Mail.From},
		SMTP: mailer.SMTPConfig{
			Host: cfg.Mail.SMTP.Host, Port: cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username, Password: cfg.Mail.SMTP.Password,
		},
		SendGrid: mailer.SendGridConfig{APIKey: cfg.Mail.SendGrid.APIKey},
		Timeout:  time.Duration(cfg.Mail.TimeoutSec) * time.Second,
	}, log)
	if err != nil {
		log.Fatal("mailer", zap.Error(err))
	}
	tpl, err := mailer.NewTemplates(cfg.App.FrontendURL)
	if err != nil {
		log.Fatal("mail templates", zap.Error(err))
	}

	files, err := storage.NewLocal(cfg.Storage.Dir, cfg.MaxUploadBytes())
	if err != nil {
		log.Fatal("upload dir", zap.Error(err))
	}

	// 依赖
	validation.Setup()
	repos := repo.NewRepositories(db)
	notifier := service.NewNotifier(mail, tpl, log, time.Duration(cfg.Mail.TimeoutSec)*time.Second)
	market := service.NewMarketplace(repos, repo.NewUnitOfWork(db), files, notifier, log)
	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTTL())
	authSvc := service.NewAuthService(repos.Users, jwter, deny, rc,
		time.Duration(cfg.Redis.ProfileTTLSec)*time.Second, cfg.Auth.BcryptCost, log)

	janitor := service.NewJanitor(repos.Projects, files, time.Duration(cfg.Storage.SweepGraceMin)*time.Minute, log)
	if cfg.Storage.SweepCron != "" {
		if err := janitor.Start(cfg.Storage.SweepCron); err != nil {
			log.Fatal("upload sweeper", zap.String("spec", cfg.Storage.SweepCron), zap.Error(err))
		}
	}

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) }),
	}
	if rc.Enabled() {
		checks["redis"] = rc
	}
	reg := &router.Registry{}
	reg.Register(
		handler.NewHealthHandler(cfg.App.Name, checks),
		handler.NewAuthHandler(authSvc, handler.CookieOptions{Name: cfg.JWT.CookieName, Secure: cfg.IsProduction()}),
		handler.NewProjectHandler(market),
	)

	mode := gin.DebugMode
	if cfg.IsProduction() {
		mode = gin.ReleaseMode
	}
	r := router.NewAPIEngine(log, authSvc, cfg.JWT.CookieName, reg, router.Options{
		Mode:        mode,
		CorsOrigins: cfg.App.CorsOrigins,
		Expose:      !cfg.IsProduction(),
		Limits: router.Limits{
			RPS:           cfg.Limits.RPS,
			Burst:         cfg.Limits.Burst,
			PerIPRPS:      cfg.Limits.PerIPRPS,
			PerIPBurst:    cfg.Limits.PerIPBurst,
			MaxConcurrent: cfg.Limits.MaxConcurrent,
			MaxBodyBytes:  int64(cfg.App.HTTP.MaxBodyMB) << 20,
			Timeout:       time.Duration(cfg.App.HTTP.RequestTimeoutSec) * time.Second,
		},
		UploadDir: files.Dir(),
		Web:       web.FS(),
	})

	srv := server.BuildServer(
		cfg.Addr(), r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("nexbid api starting",
		zap.String("env", cfg.App.Env),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/api/health"),
		zap.String("mailer", mail.Name()),
		zap.Bool("redis", rc.Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("http server", zap.Error(err))
	}

	// 优雅关闭：停止定时清理、等待邮件发送
	<-janitor.Stop().Done()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := notifier.Shutdown(sctx); err != nil {
		log.Warn("notifications not drained", zap.Error(err))
	}
	log.Info("nexbid api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThresholdMs:    cfg.DB.SlowThresholdMs,
		Logger:             l,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
