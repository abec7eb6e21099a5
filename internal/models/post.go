package models

import (
	"strings"
	"time"
)

// Post types accepted by the community feed.
const (
	PostTypeQuestion   = "question"
	PostTypeExperience = "experience"
)

// IsValidPostType reports whether t is one of the closed set of post types.
func IsValidPostType(t string) bool {
	return t == PostTypeQuestion || t == PostTypeExperience
}

// TableName maps the author projection onto the users table.
func (Author) TableName() string {
	return "users"
}

// PostImage describes a stored asset attached to a post.
type PostImage struct {
	Filename string `gorm:"size:255" json:"filename"`
	Path     string `gorm:"size:1024" json:"path"`
	PublicID string `gorm:"size:255" json:"public_id"`
}

// IsZero lets encoding/json omit an empty image.
func (i PostImage) IsZero() bool {
	return strings.TrimSpace(i.Path) == "" && strings.TrimSpace(i.PublicID) == "" && strings.TrimSpace(i.Filename) == ""
}

// Post is a community feed entry.
type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Author        *Author   `gorm:"foreignKey:UserID;-:migration" json:"author,omitempty"`
	Type          string    `gorm:"size:20;not null" json:"type"`
	Title         string    `gorm:"size:300" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Image         PostImage `gorm:"embedded;embeddedPrefix:image_" json:"image,omitzero"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
	LikesCount    int       `gorm:"->;-:migration" json:"likes_count"`
	Liked         bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PostLike records one user's like of a post. The composite key makes a like a set member.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult is the outcome of toggling a like.
type LikeResult struct {
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts []*Post `json:"posts"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}
