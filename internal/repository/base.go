package repository

import (
	"context"

	"dropview/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// toggleLike removes the caller's like row if present, otherwise inserts it, then counts the likes.
// like is the row keyed by (target, user), model its zero value and column the target key.
func toggleLike(ctx context.Context, db *gorm.DB, like, model any, column string, targetID, userID uint) (models.LikeResult, error) {
	var result models.LikeResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where(column+" = ? AND user_id = ?", targetID, userID).Delete(like)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
				return err
			}
			result.Liked = true
		}
		return tx.Model(model).Where(column+" = ?", targetID).Count(&result.Likes).Error
	})
	return result, err
}
