package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gallery/internal/cache"
	"gallery/internal/errors"
	"gallery/internal/model"
	"gallery/internal/query"
	"gallery/internal/repository"
)

const (
	userCacheTTL = 5 * time.Minute
	bcryptCost   = 10
	// RemoveAllLimit caps how many users one bulk removal may delete.
	RemoveAllLimit = 100
)

// UserChanges is a partial update. Nil fields are left untouched.
type UserChanges struct {
	Username        *string
	Email           *string
	Password        *string
	EthereumAddress *string
	Type            *string
	Role            *string
	Confirmed       *bool
	Blocked         *bool
	ProfilePicture  *string
	Bio             *string
	Links           *[]model.Link
}

// RemoveResult describes a bulk removal.
type RemoveResult struct {
	Count int         `json:"count"`
	IDs   []uuid.UUID `json:"ids"`
}

// UserService exposes the user operations the controllers delegate to.
type UserService interface {
	Add(ctx context.Context, user *model.User) (*model.User, error)
	Fetch(ctx context.Context, id uuid.UUID, populate ...string) (*model.User, error)
	FetchByEthereumAddress(ctx context.Context, address string) (*model.User, error)
	FetchAll(ctx context.Context, params query.Params) ([]model.User, error)
	Find(ctx context.Context, params query.Params, fields ...string) ([]model.User, error)
	Search(ctx context.Context, params query.Params) ([]model.User, error)
	Count(ctx context.Context, params query.Params) (int64, error)
	CountSearch(ctx context.Context, params query.Params) (int64, error)
	Edit(ctx context.Context, id uuid.UUID, changes UserChanges) (*model.User, error)
	Remove(ctx context.Context, id uuid.UUID) (*model.User, error)
	RemoveAll(ctx context.Context, ids []string) (*RemoveResult, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// Add validates uniqueness, hashes the password and persists the user.
func (s *userService) Add(ctx context.Context, user *model.User) (*model.User, error) {
	if err := s.ensureUnique(ctx, user.Username, user.Email, uuid.Nil); err != nil {
		return nil, err
	}
	if user.Password != "" {
		hashed, err := hashPassword(user.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}
	if user.Role == "" {
		user.Role = model.RoleAuthenticated
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Fetch loads a user by id. Plain lookups are served from the cache.
func (s *userService) Fetch(ctx context.Context, id uuid.UUID, populate ...string) (*model.User, error) {
	cacheable := len(populate) == 0
	if cacheable {
		var cached model.User
		if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id, populate...)
	if err != nil {
		return nil, notFound(err)
	}

	if cacheable {
		_ = s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	}
	return user, nil
}

func (s *userService) FetchByEthereumAddress(ctx context.Context, address string) (*model.User, error) {
	user, err := s.repo.FindByEthereumAddress(ctx, address)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *userService) FetchAll(ctx context.Context, params query.Params) ([]model.User, error) {
	return s.repo.Find(ctx, params)
}

func (s *userService) Find(ctx context.Context, params query.Params, fields ...string) ([]model.User, error) {
	return s.repo.Find(ctx, params, fields...)
}

func (s *userService) Search(ctx context.Context, params query.Params) ([]model.User, error) {
	return s.repo.Search(ctx, params)
}

func (s *userService) Count(ctx context.Context, params query.Params) (int64, error) {
	return s.repo.Count(ctx, params)
}

func (s *userService) CountSearch(ctx context.Context, params query.Params) (int64, error) {
	return s.repo.CountSearch(ctx, params)
}

// Edit applies changes and returns the updated user with its links.
func (s *userService) Edit(ctx context.Context, id uuid.UUID, changes UserChanges) (*model.User, error) {
	username, email := deref(changes.Username), deref(changes.Email)
	if err := s.ensureUnique(ctx, username, email, id); err != nil {
		return nil, err
	}

	fields, err := changes.columns()
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		if len(fields) == 0 {
			if _, err := repo.FindByID(ctx, id); err != nil {
				return err
			}
		} else if err := repo.Update(ctx, id, fields); err != nil {
			return err
		}
		if changes.Links != nil {
			return repo.ReplaceLinks(ctx, id, *changes.Links)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit user %s: %w", id, notFound(err))
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	user, err := s.repo.FindByID(ctx, id, "links")
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *userService) Remove(ctx context.Context, id uuid.UUID) (*model.User, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return removed, nil
}

// RemoveAll deletes the users whose ids are listed, never more than
// RemoveAllLimit of them. Values that are not ids are skipped.
func (s *userService) RemoveAll(ctx context.Context, ids []string) (*RemoveResult, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		if len(parsed) == RemoveAllLimit {
			break
		}
		if id, err := uuid.Parse(raw); err == nil {
			parsed = append(parsed, id)
		}
	}

	removed, err := s.repo.DeleteAll(ctx, parsed, RemoveAllLimit)
	if err != nil {
		return nil, fmt.Errorf("remove users: %w", err)
	}

	keys := make([]string, 0, len(removed))
	for _, id := range removed {
		keys = append(keys, s.cacheKey(id))
	}
	_ = s.cache.Delete(ctx, keys...)

	return &RemoveResult{Count: len(removed), IDs: removed}, nil
}

func (s *userService) ensureUnique(ctx context.Context, username, email string, exclude uuid.UUID) error {
	existing, err := s.repo.FindConflict(ctx, username, email, exclude)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check user uniqueness: %w", err)
	}
	if username != "" && existing.Username == username {
		return errors.ErrUsernameTaken
	}
	return errors.ErrEmailTaken
}

func (c UserChanges) columns() (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	setString("username", c.Username)
	setString("email", c.Email)
	setString("ethereum_address", c.EthereumAddress)
	setString("type", c.Type)
	setString("role", c.Role)
	setString("profile_picture", c.ProfilePicture)
	setString("bio", c.Bio)
	if c.Confirmed != nil {
		fields["confirmed"] = *c.Confirmed
	}
	if c.Blocked != nil {
		fields["blocked"] = *c.Blocked
	}
	if c.Password != nil && *c.Password != "" {
		hashed, err := hashPassword(*c.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hashed
	}
	return fields, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
