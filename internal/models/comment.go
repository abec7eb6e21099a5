package models

import "time"

// Comment is a reply on a post, optionally threaded under another comment.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Author          *Author   `gorm:"foreignKey:UserID;-:migration" json:"author,omitempty"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	LikesCount      int       `gorm:"->;-:migration" json:"likes_count"`
	Liked           bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CommentLike records one user's like of a comment.
type CommentLike struct {
	CommentID uint      `gorm:"primaryKey;autoIncrement:false" json:"comment_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentPage is one page of a post's thread.
type CommentPage struct {
	Comments []*Comment `json:"comments"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
