package database

import "dropview/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Users come first because posts, comments and likes reference them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.CommentLike{},
	}
}
