package model

import (
	"time"

	"github.com/google/uuid"
)

// Memoir is a long-form text written by an artist.
type Memoir struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:char(36);index;not null"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Body      string    `json:"body" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// Interview is an editorial interview featuring a user.
type Interview struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	AuthorID    uuid.UUID  `json:"author_id" gorm:"type:char(36);index;not null"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	URL         string     `json:"url,omitempty" gorm:"size:512"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
