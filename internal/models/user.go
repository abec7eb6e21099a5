// Package models defines persisted entities, their public projections and API errors.
package models

import "time"

// Address is stored inline on the users table.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip"`
}

// User is a registered member with demographic profile, referral and engagement state.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Phone    string `gorm:"uniqueIndex;size:32;not null" json:"phone"`

	Address Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	AgeRange           string   `json:"age_range"`
	MaritalStatus      string   `json:"marital_status"`
	StylePreference    string   `json:"style_preference"`
	GenderIdentity     string   `json:"gender_identity"`
	FamilySize         string   `json:"family_size"`
	Occupation         string   `json:"occupation"`
	PurchasePriorities string   `json:"purchase_priorities"`
	ProductPreferences []string `gorm:"serializer:json" json:"product_preferences"`
	TryFrequency       string   `json:"try_frequency"`

	// ReferralCode is a pointer so the unique index only constrains non-null values.
	ReferralCode   *string `gorm:"uniqueIndex;size:8" json:"referral_code"`
	ReferralsCount int     `gorm:"not null;default:0;index" json:"referrals_count"`
	ReferredByID   *uint   `json:"referred_by_id"`

	LoginStreak           int        `gorm:"not null;default:0" json:"login_streak"`
	LastLoginAt           *time.Time `json:"last_login_at"`
	CommunityActionsCount int        `gorm:"not null;default:0" json:"community_actions_count"`
	RewardUnlocked        bool       `gorm:"not null;default:false" json:"reward_unlocked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Code returns the referral code or "" when none has been assigned.
func (u *User) Code() string {
	if u.ReferralCode == nil {
		return ""
	}
	return *u.ReferralCode
}

// Author is the projection of a user embedded in posts and comments.
type Author struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// LeaderboardEntry is the projection exposed by the referral leaderboard.
type LeaderboardEntry struct {
	Name           string `json:"name"`
	ReferralsCount int    `json:"referrals_count"`
	ReferralCode   string `json:"referral_code"`
}
