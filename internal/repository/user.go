// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"dropview/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	UpdateFields(ctx context.Context, user *models.User, columns ...string) error
	RecordLogin(ctx context.Context, id uint, streak int, at time.Time) error
	IncrementReferrals(ctx context.Context, code string) (int64, error)
	MarkRewardUnlocked(ctx context.Context, id uint) (bool, error)
	TopReferrers(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateUserWriteError(err)
	}
	return nil
}

// GetByID returns gorm.ErrRecordNotFound when no user has the id.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername returns (nil, nil) when the username is unknown.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByReferralCode returns (nil, nil) when no user owns the code.
func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error
	return count > 0, err
}

// UpdateFields writes only the named columns, including zero values.
func (r *userRepository) UpdateFields(ctx context.Context, user *models.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(user).Select(columns).Updates(user)
	if res.Error != nil {
		return translateUserWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) RecordLogin(ctx context.Context, id uint, streak int, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"login_streak": streak, "last_login_at": at}).Error
}

// IncrementReferrals bumps the holder's counter in a single statement and reports the rows touched.
// An unknown code touches nothing.
func (r *userRepository) IncrementReferrals(ctx context.Context, code string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("referral_code = ?", code).
		UpdateColumn("referrals_count", gorm.Expr("referrals_count + ?", 1))
	return res.RowsAffected, res.Error
}

// MarkRewardUnlocked flips the flag once. It reports true only for the call that flipped it.
func (r *userRepository) MarkRewardUnlocked(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reward_unlocked = ?", id, false).
		UpdateColumn("reward_unlocked", true)
	return res.RowsAffected == 1, res.Error
}

// TopReferrers ranks users with at least one referral, ties broken by earliest signup.
func (r *userRepository) TopReferrers(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("name, referrals_count, referral_code").
		Where("referrals_count > 0 AND referral_code IS NOT NULL").
		Order("referrals_count DESC, id ASC").
		Limit(n).
		Scan(&entries).Error
	return entries, err
}
