// Package lifecycle attaches the user persistence hooks to gorm.
package lifecycle

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"gallery/internal/model"
	"gallery/internal/queue"
)

// NonceCeiling bounds generated nonces to [0, NonceCeiling).
const NonceCeiling = 10000

// NonceFunc yields the nonce for a user being created.
type NonceFunc func() int

// RandomNonce draws a fresh nonce for every record.
func RandomNonce() int {
	return rand.IntN(NonceCeiling)
}

// SharedNonce draws one nonce on first use and returns it for the lifetime of
// the process. Kept for deployments that still rely on the legacy behaviour.
func SharedNonce() NonceFunc {
	var (
		once  sync.Once
		value int
	)
	return func() int {
		once.Do(func() { value = RandomNonce() })
		return value
	}
}

// NonceMode returns SharedNonce when shared is set and RandomNonce otherwise.
func NonceMode(shared bool) NonceFunc {
	if shared {
		return SharedNonce()
	}
	return RandomNonce
}

// Hooks holds the collaborators of the user lifecycle.
type Hooks struct {
	nonce  NonceFunc
	stats  queue.StatsPublisher
	logger *slog.Logger
}

// New builds the hook set. A nil nonce func means RandomNonce.
func New(nonce NonceFunc, stats queue.StatsPublisher, logger *slog.Logger) *Hooks {
	if nonce == nil {
		nonce = RandomNonce
	}
	return &Hooks{nonce: nonce, stats: stats, logger: logger}
}

// BeforeCreate assigns the nonce, an id when missing, and the slug.
func (h *Hooks) BeforeCreate(u *model.User) {
	u.Nonce = h.nonce()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Username != "" {
		u.Slug = Slugify(u.Username)
	}
}

// AfterCreate enqueues the stats computation of new collectors.
func (h *Hooks) AfterCreate(ctx context.Context, u *model.User) {
	if !u.IsCollector() {
		return
	}
	req := queue.StatsRequest{UserID: u.ID.String(), EthereumAddress: u.EthereumAddress}
	if err := h.stats.PublishStatsRequest(ctx, req); err != nil {
		// the row is committed already; the next recompute will catch up
		h.logger.ErrorContext(ctx, "enqueue collector stats", "error", err, "user_id", req.UserID)
	}
}

// Slugify derives the URL-safe slug of a username.
func Slugify(username string) string {
	return slug.Make(username)
}

// Register installs the hooks as gorm callbacks restricted to the users table.
func (h *Hooks) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("users:before_create", h.beforeCreate); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("users:before_update", h.beforeUpdate); err != nil {
		return err
	}
	return cb.Create().After("gorm:commit_or_rollback_transaction").Register("users:after_create", h.afterCreate)
}

func (h *Hooks) beforeCreate(tx *gorm.DB) {
	if !isUsers(tx) || tx.Error != nil {
		return
	}
	for _, u := range createdUsers(tx.Statement.Dest) {
		h.BeforeCreate(u)
	}
}

func (h *Hooks) beforeUpdate(tx *gorm.DB) {
	if !isUsers(tx) || tx.Error != nil {
		return
	}
	switch dest := tx.Statement.Dest.(type) {
	case map[string]interface{}:
		if name, ok := dest["username"].(string); ok && name != "" {
			tx.Statement.SetColumn("slug", Slugify(name))
		}
	case *model.User:
		if dest.Username != "" {
			dest.Slug = Slugify(dest.Username)
		}
	}
}

func (h *Hooks) afterCreate(tx *gorm.DB) {
	if !isUsers(tx) || tx.Error != nil {
		return
	}
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	for _, u := range createdUsers(tx.Statement.Dest) {
		h.AfterCreate(ctx, u)
	}
}

func isUsers(tx *gorm.DB) bool {
	return tx.Statement.Schema != nil && tx.Statement.Schema.Table == "users"
}

func createdUsers(dest interface{}) []*model.User {
	switch d := dest.(type) {
	case *model.User:
		return []*model.User{d}
	case []*model.User:
		return d
	case *[]model.User:
		out := make([]*model.User, 0, len(*d))
		for i := range *d {
			out = append(out, &(*d)[i])
		}
		return out
	case []model.User:
		out := make([]*model.User, 0, len(d))
		for i := range d {
			out = append(out, &d[i])
		}
		return out
	}
	return nil
}
