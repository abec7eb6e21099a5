package service

import (
	"context"
	"fmt"
	"log/slog"

	"dropview/internal/cache"
	"dropview/internal/models"
	"dropview/internal/observability"
	"dropview/internal/repository"
	"dropview/internal/validation"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLeaderboardSize is used when the caller does not ask for a size.
	DefaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type ReferralService struct {
	userRepo    repository.UserRepository
	rdb         *redis.Client
	frontendURL string
}

// ReferralInfo is the caller's own referral summary.
type ReferralInfo struct {
	ReferralCode   string `json:"referral_code"`
	ReferralLink   string `json:"referral_link"`
	ReferralsCount int    `json:"referrals_count"`
	UserName       string `json:"user_name"`
}

// ReferralValidation confirms a code before signup.
type ReferralValidation struct {
	Valid        bool   `json:"valid"`
	ReferrerName string `json:"referrer_name"`
	ReferralCode string `json:"referral_code"`
}

func NewReferralService(userRepo repository.UserRepository, rdb *redis.Client, frontendURL string) *ReferralService {
	return &ReferralService{userRepo: userRepo, rdb: rdb, frontendURL: frontendURL}
}

// Link builds the signup URL that carries code.
func (s *ReferralService) Link(code string) string {
	return s.frontendURL + "/signup?ref=" + code
}

func (s *ReferralService) Info(ctx context.Context, userID uint) (*ReferralInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &ReferralInfo{
		ReferralCode:   user.Code(),
		ReferralLink:   s.Link(user.Code()),
		ReferralsCount: user.ReferralsCount,
		UserName:       user.Name,
	}, nil
}

// Validate reports the holder of code, or NOT_FOUND when nobody holds it.
func (s *ReferralService) Validate(ctx context.Context, code string) (*ReferralValidation, error) {
	code = validation.NormalizeReferralCode(code)
	if validation.ValidateReferralCode(code) != nil {
		return nil, models.NewNotFoundError("Invalid referral code")
	}
	holder, err := s.userRepo.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup referral code: %w", err)
	}
	if holder == nil {
		return nil, models.NewNotFoundError("Invalid referral code")
	}
	return &ReferralValidation{Valid: true, ReferrerName: holder.Name, ReferralCode: holder.Code()}, nil
}

// IncrementCount credits one referral to the holder of code. An unknown code is a no-op.
// Errors are logged and counted before being returned so callers can ignore them.
func (s *ReferralService) IncrementCount(ctx context.Context, code string) error {
	code = validation.NormalizeReferralCode(code)
	log := serviceLogger("referral")

	rows, err := s.userRepo.IncrementReferrals(ctx, code)
	if err != nil {
		observability.ReferralIncrements.WithLabelValues("error").Inc()
		log.ErrorContext(ctx, "referral increment failed", slog.String("referral_code", code), slog.String("error", err.Error()))
		return err
	}
	if rows == 0 {
		observability.ReferralIncrements.WithLabelValues("unknown_code").Inc()
		log.InfoContext(ctx, "referral code not found, nothing to credit", slog.String("referral_code", code))
		return nil
	}
	observability.ReferralIncrements.WithLabelValues("applied").Inc()

	cache.InvalidatePattern(ctx, s.rdb, cache.LeaderboardPattern)
	if s.rdb != nil {
		if holder, err := s.userRepo.GetByReferralCode(ctx, code); err == nil && holder != nil {
			cache.Invalidate(ctx, s.rdb, cache.UserKey(holder.ID))
		}
	}
	return nil
}

// Leaderboard returns the top n referrers. n is clamped to [1, 100]; 0 means the default.
func (s *ReferralService) Leaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	n = min(n, maxLeaderboardSize)

	var entries []models.LeaderboardEntry
	err := cache.Aside(ctx, s.rdb, "leaderboard", cache.LeaderboardKey(n), &entries, cache.LeaderboardTTL, func() error {
		var err error
		entries, err = s.userRepo.TopReferrers(ctx, n)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}
