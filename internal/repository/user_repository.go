package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gallery/internal/model"
	"gallery/internal/query"
)

// relations maps public relation names to gorm association fields.
var relations = map[string]string{
	"links":            "Links",
	"minted_artworks":  "MintedArtworks",
	"owned_artworks":   "OwnedArtworks",
	"placed_orders":    "PlacedOrders",
	"fulfilled_orders": "FulfilledOrders",
	"stats":            "Stats",
	"memoirs":          "Memoirs",
	"interviews":       "Interviews",
}

// searchColumns are matched by full-text search (_q).
var searchColumns = []string{"username", "email", "slug", "ethereum_address", "bio"}

// likeEscaper makes LIKE wildcards in a search term literal, with '!' as the
// escape character on every dialect.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID, populate ...string) (*model.User, error)
	FindByEthereumAddress(ctx context.Context, address string) (*model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	FindConflict(ctx context.Context, username, email string, exclude uuid.UUID) (*model.User, error)
	Find(ctx context.Context, params query.Params, fields ...string) ([]model.User, error)
	Search(ctx context.Context, params query.Params) ([]model.User, error)
	Count(ctx context.Context, params query.Params) (int64, error)
	CountSearch(ctx context.Context, params query.Params) (int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ReplaceLinks(ctx context.Context, id uuid.UUID, links []model.Link) error
	Delete(ctx context.Context, id uuid.UUID) (*model.User, error)
	DeleteAll(ctx context.Context, ids []uuid.UUID, limit int) ([]uuid.UUID, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID loads a user and the requested relations. Names that are not
// relations (plain attributes) are ignored.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID, populate ...string) (*model.User, error) {
	tx := r.db.WithContext(ctx)
	for _, name := range populate {
		if field, ok := relations[name]; ok {
			tx = tx.Preload(field)
		}
	}
	var user model.User
	if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEthereumAddress(ctx context.Context, address string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("ethereum_address = ?", address).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier matches on email or username.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindConflict returns another user holding username or email, if any.
func (r *userRepository) FindConflict(ctx context.Context, username, email string, exclude uuid.UUID) (*model.User, error) {
	if username == "" && email == "" {
		return nil, gorm.ErrRecordNotFound
	}
	tx := r.db.WithContext(ctx)
	switch {
	case username != "" && email != "":
		tx = tx.Where("username = ? OR email = ?", username, email)
	case username != "":
		tx = tx.Where("username = ?", username)
	default:
		tx = tx.Where("email = ?", email)
	}
	if exclude != uuid.Nil {
		tx = tx.Where("id <> ?", exclude)
	}
	var user model.User
	if err := tx.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Find lists users matching params. When fields is set only those columns are loaded.
func (r *userRepository) Find(ctx context.Context, params query.Params, fields ...string) ([]model.User, error) {
	tx := page(filter(r.db.WithContext(ctx).Model(&model.User{}), params), params)
	if len(fields) > 0 {
		tx = tx.Select(fields)
	}
	var users []model.User
	if err := tx.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Search(ctx context.Context, params query.Params) ([]model.User, error) {
	tx := page(search(filter(r.db.WithContext(ctx).Model(&model.User{}), params), params.Search), params)
	var users []model.User
	if err := tx.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context, params query.Params) (int64, error) {
	var n int64
	err := filter(r.db.WithContext(ctx).Model(&model.User{}), params).Count(&n).Error
	return n, err
}

func (r *userRepository) CountSearch(ctx context.Context, params query.Params) (int64, error) {
	var n int64
	err := search(filter(r.db.WithContext(ctx).Model(&model.User{}), params), params.Search).Count(&n).Error
	return n, err
}

// Update writes the given columns. Going through a map keeps zero values and
// lets the before-update hook see the username.
func (r *userRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{ID: id}).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *userRepository) ReplaceLinks(ctx context.Context, id uuid.UUID, links []model.Link) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("user_id = ?", id).Delete(&model.Link{}).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].ID = 0
		links[i].UserID = id
	}
	return tx.Create(&links).Error
}

// Delete removes a user with its links and returns the removed record.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var removed model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Links").Where("id = ?", id).First(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.Link{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// DeleteAll removes at most limit users among ids and returns the ids actually removed.
func (r *userRepository) DeleteAll(ctx context.Context, ids []uuid.UUID, limit int) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	var removed []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found []model.User
		if err := tx.Select("id").Where("id IN ?", ids).Limit(limit).Find(&found).Error; err != nil {
			return err
		}
		removed = make([]uuid.UUID, 0, len(found))
		for _, u := range found {
			removed = append(removed, u.ID)
		}
		if len(removed) == 0 {
			return nil
		}
		if err := tx.Where("user_id IN ?", removed).Delete(&model.Link{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", removed).Delete(&model.User{}).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// WithTransaction executes a function within a database transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &userRepository{db: tx})
	})
}

func filter(tx *gorm.DB, params query.Params) *gorm.DB {
	for col, v := range params.Where {
		tx = tx.Where(col+" = ?", v)
	}
	for col, vs := range params.In {
		tx = tx.Where(col+" IN ?", vs)
	}
	return tx
}

func search(tx *gorm.DB, term string) *gorm.DB {
	if term == "" {
		return tx
	}
	like := "%" + likeEscaper.Replace(term) + "%"
	cond := tx.Session(&gorm.Session{NewDB: true})
	for i, col := range searchColumns {
		clause := "LOWER(" + col + ") LIKE LOWER(?) ESCAPE '!'"
		if i == 0 {
			cond = cond.Where(clause, like)
			continue
		}
		cond = cond.Or(clause, like)
	}
	return tx.Where(cond)
}

func page(tx *gorm.DB, params query.Params) *gorm.DB {
	for _, s := range params.Sort {
		dir := " ASC"
		if s.Desc {
			dir = " DESC"
		}
		tx = tx.Order(s.Column + dir)
	}
	if len(params.Sort) == 0 {
		tx = tx.Order("created_at ASC")
	}
	if params.Limit != query.NoLimit {
		tx = tx.Limit(params.Limit)
	}
	if params.Start > 0 {
		tx = tx.Offset(params.Start)
	}
	return tx
}
