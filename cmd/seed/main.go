package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"

	"gallery/internal/cache"
	"gallery/internal/config"
	"gallery/internal/db"
	"gallery/internal/errors"
	"gallery/internal/lifecycle"
	"gallery/internal/logger"
	"gallery/internal/model"
	"gallery/internal/queue"
	"gallery/internal/repository"
	"gallery/internal/service"
)

// SeedUser is one entry of the seed fixture.
type SeedUser struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	EthereumAddress string `json:"ethereumAddress"`
	Type            string `json:"type"`
	Bio             string `json:"bio"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	log.Info("starting seed", "source", cfg.SeedSource)

	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}

	var publisher queue.StatsPublisher = queue.NewLogPublisher(log)
	if cfg.RabbitMQ.URL != "" {
		client, err := queue.NewClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, log)
		if err != nil {
			log.Error("connect rabbitmq", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
	}
	if err := lifecycle.New(lifecycle.NonceMode(cfg.SharedNonce), publisher, log).Register(gormDB); err != nil {
		log.Error("register lifecycle hooks", "error", err)
		os.Exit(1)
	}

	users, err := load(cfg.SeedSource)
	if err != nil {
		log.Error("load seed users", "error", err)
		os.Exit(1)
	}
	log.Info("loaded seed users", "count", len(users))

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	repo := repository.NewUserRepository(gormDB)
	svc := service.NewUserService(repo, cacheClient)

	created, updated, err := seedUsers(context.Background(), repo, svc, users)
	if err != nil {
		log.Error("seed users", "error", err, "created", created, "updated", updated)
		os.Exit(1)
	}
	log.Info("seed completed", "created", created, "updated", updated)
}

// load reads the fixture from an http(s) URL or a local file.
func load(source string) ([]SeedUser, error) {
	var users []SeedUser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := resty.New().
			SetTimeout(30*time.Second).
			SetRetryCount(2).
			R().
			SetResult(&users).
			Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode())
		}
		return users, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return users, nil
}

// seedUsers creates unknown users and refreshes the profile of known ones, matched by email.
func seedUsers(ctx context.Context, repo repository.UserRepository, svc service.UserService, users []SeedUser) (created int, updated int, err error) {
	for _, u := range users {
		existing, err := repo.FindByIdentifier(ctx, u.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, updated, fmt.Errorf("look up %s: %w", u.Email, err)
		}

		if existing != nil {
			_, err := svc.Edit(ctx, existing.ID, service.UserChanges{
				Username:        &u.Username,
				EthereumAddress: &u.EthereumAddress,
				Type:            &u.Type,
				Bio:             &u.Bio,
			})
			if err != nil {
				return created, updated, fmt.Errorf("update %s: %w", u.Email, err)
			}
			updated++
			continue
		}

		if _, err := svc.Add(ctx, &model.User{
			Username:        u.Username,
			Email:           u.Email,
			EthereumAddress: u.EthereumAddress,
			Type:            u.Type,
			Bio:             u.Bio,
			Confirmed:       true,
		}); err != nil {
			return created, updated, fmt.Errorf("create %s: %w", u.Email, err)
		}
		created++
	}
	return created, updated, nil
}
