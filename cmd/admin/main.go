package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nexbid/internal/core/config"
	"nexbid/internal/core/database"
	"nexbid/internal/core/logger"
	"nexbid/internal/domain"
	"nexbid/internal/repo"
	"nexbid/internal/seed"
	"nexbid/internal/service"
	"nexbid/internal/storage"
)

const usage = `usage: nexbid-admin [-config path] <command>

commands:
  migrate up          apply all pending migrations (postgres)
  migrate down [n]    roll back n migrations (default 1)
  migrate version     print the current schema version
  seed                insert demo users, projects, bids and a review
  sweep               remove orphaned deliverables once
`

func main() {
	cfgPath := flag.String("config", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.New(logger.Options{Level: cfg.Log.Level, Development: !cfg.IsProduction()})
	defer cleanup()

	if err := run(context.Background(), cfg, log, args); err != nil {
		log.Error("admin command failed", zap.Strings("args", args), zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
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
		Logger:             log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	switch args[0] {
	case "migrate":
		return migrate(db, cfg, log, args[1:])

	case "seed":
		if cfg.DB.Driver != "postgres" {
			if err := database.AutoMigrate(db, domain.Models()...); err != nil {
				return err
			}
		}
		sum, err := seed.Run(ctx, repo.NewUnitOfWork(db), cfg.Auth.BcryptCost, time.Now())
		if err != nil {
			return err
		}
		if sum.Skipped {
			log.Info("demo data already present, nothing to do")
			return nil
		}
		log.Info("seed done",
			zap.Int("users", sum.Users), zap.Int("projects", sum.Projects),
			zap.Int("bids", sum.Bids), zap.Int("reviews", sum.Reviews),
			zap.String("password", seed.DemoPassword))
		return nil

	case "sweep":
		files, err := storage.NewLocal(cfg.Storage.Dir, cfg.MaxUploadBytes())
		if err != nil {
			return err
		}
		j := service.NewJanitor(repo.NewRepositories(db).Projects, files,
			time.Duration(cfg.Storage.SweepGraceMin)*time.Minute, log)
		removed, err := j.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info("sweep done", zap.Int("removed", len(removed)))
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func migrate(db *gorm.DB, cfg *config.Config, log *zap.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("migrate: missing subcommand (up|down|version)")
	}
	mg, err := database.NewMigrator(db, cfg.DB.Name)
	if err != nil {
		return err
	}
	switch args[0] {
	case "up":
		if err := mg.Up(); err != nil {
			return err
		}
	case "down":
		n := 1
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
				return fmt.Errorf("migrate down: invalid step count %q", args[1])
			}
		}
		if err := mg.Down(n); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("migrate: unknown subcommand %q", args[0])
	}
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	log.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
