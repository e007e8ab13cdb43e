package model

import (
	"time"

	"github.com/google/uuid"
)

// User types.
const (
	UserTypeArtist    = "artist"
	UserTypeCollector = "collector"
)

// User roles.
const (
	RoleAuthenticated = "authenticated"
	RoleAdmin         = "admin"
)

// User is a marketplace member. Private attributes are serialized so cached
// copies stay complete; responses must go through the sanitizer.
type User struct {
	ID                 uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Username           string    `json:"username" gorm:"size:255;uniqueIndex;not null"`
	Slug               string    `json:"slug" gorm:"size:255;index"`
	Email              string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	EthereumAddress    string    `json:"ethereumAddress" gorm:"column:ethereum_address;size:42;index"`
	Nonce              int       `json:"nonce"`
	Type               string    `json:"type" gorm:"size:32;index"`
	Role               string    `json:"role" gorm:"size:50;default:authenticated"`
	Confirmed          bool      `json:"confirmed" gorm:"default:false"`
	Blocked            bool      `json:"blocked" gorm:"default:false"`
	ProfilePicture     string    `json:"profile_picture" gorm:"column:profile_picture;size:512"`
	Bio                string    `json:"bio" gorm:"type:text"`
	Password           string    `json:"password,omitempty" gorm:"size:255"`
	ResetPasswordToken string    `json:"resetPasswordToken,omitempty" gorm:"column:reset_password_token;size:255"`
	ConfirmationToken  string    `json:"confirmationToken,omitempty" gorm:"column:confirmation_token;size:255"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relations
	Links           []Link          `json:"links,omitempty" gorm:"foreignKey:UserID"`
	MintedArtworks  []Artwork       `json:"minted_artworks,omitempty" gorm:"foreignKey:MinterID"`
	OwnedArtworks   []Artwork       `json:"owned_artworks,omitempty" gorm:"foreignKey:OwnerID"`
	PlacedOrders    []Order         `json:"placed_orders,omitempty" gorm:"foreignKey:BuyerID"`
	FulfilledOrders []Order         `json:"fulfilled_orders,omitempty" gorm:"foreignKey:SellerID"`
	Stats           *CollectorStats `json:"stats,omitempty" gorm:"foreignKey:UserID"`
	Memoirs         []Memoir        `json:"memoirs,omitempty" gorm:"foreignKey:AuthorID"`
	Interviews      []Interview     `json:"interviews,omitempty" gorm:"foreignKey:AuthorID"`
}

// TableName pins the table the lifecycle callbacks match on.
func (User) TableName() string {
	return "users"
}

// IsCollector reports whether the user buys artworks.
func (u *User) IsCollector() bool {
	return u.Type == UserTypeCollector
}

// Link is an external profile link shown on a user page.
type Link struct {
	ID     uint      `json:"id" gorm:"primaryKey"`
	UserID uuid.UUID `json:"-" gorm:"type:char(36);index;not null"`
	URL    string    `json:"url" gorm:"size:512;not null"`
	Label  string    `json:"label,omitempty" gorm:"size:255"`
}
