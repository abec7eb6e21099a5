package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dropview/internal/cache"
	"dropview/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenStub issues predictable tokens.
type tokenStub struct {
	issueFn func(uint) (string, error)
}

func (s tokenStub) Issue(userID uint) (string, error) {
	if s.issueFn != nil {
		return s.issueFn(userID)
	}
	return fmt.Sprintf("token-%d", userID), nil
}

// referralCounterStub records credited codes.
type referralCounterStub struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (s *referralCounterStub) IncrementCount(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
	return s.err
}

// userRepoStub is a stub for repository.UserRepository. Unset funcs panic.
type userRepoStub struct {
	createFn             func(context.Context, *models.User) error
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getByUsernameFn      func(context.Context, string) (*models.User, error)
	getByReferralCodeFn  func(context.Context, string) (*models.User, error)
	referralCodeExistsFn func(context.Context, string) (bool, error)
	updateFieldsFn       func(context.Context, *models.User, ...string) error
	recordLoginFn        func(context.Context, uint, int, time.Time) error
	incrementReferralsFn func(context.Context, string) (int64, error)
	markRewardFn         func(context.Context, uint) (bool, error)
	topReferrersFn       func(context.Context, int) ([]models.LeaderboardEntry, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.getByReferralCodeFn(ctx, code)
}
func (s *userRepoStub) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	return s.referralCodeExistsFn(ctx, code)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, user *models.User, columns ...string) error {
	return s.updateFieldsFn(ctx, user, columns...)
}
func (s *userRepoStub) RecordLogin(ctx context.Context, id uint, streak int, at time.Time) error {
	return s.recordLoginFn(ctx, id, streak, at)
}
func (s *userRepoStub) IncrementReferrals(ctx context.Context, code string) (int64, error) {
	return s.incrementReferralsFn(ctx, code)
}
func (s *userRepoStub) MarkRewardUnlocked(ctx context.Context, id uint) (bool, error) {
	return s.markRewardFn(ctx, id)
}
func (s *userRepoStub) TopReferrers(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	return s.topReferrersFn(ctx, n)
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, uint, uint) (*models.Post, error)
	listFn       func(context.Context, int, int, uint) ([]*models.Post, error)
	countFn      func(context.Context) (int64, error)
	updateFn     func(context.Context, *models.Post) error
	clearImageFn func(context.Context, uint) error
	deleteFn     func(context.Context, uint) error
	toggleLikeFn func(context.Context, uint, uint) (models.LikeResult, error)
	reconcileFn  func(context.Context) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, currentUserID)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) ClearImage(ctx context.Context, id uint) error {
	return s.clearImageFn(ctx, id)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (models.LikeResult, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) ReconcileCommentCounts(ctx context.Context) (int64, error) {
	return s.reconcileFn(ctx)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:     func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:    func(_ context.Context, _, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		listFn:       func(_ context.Context, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		countFn:      func(_ context.Context) (int64, error) { return 0, nil },
		updateFn:     func(_ context.Context, _ *models.Post) error { return nil },
		clearImageFn: func(_ context.Context, _ uint) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn: func(_ context.Context, _, _ uint) (models.LikeResult, error) { return models.LikeResult{}, nil },
		reconcileFn:  func(_ context.Context) (int64, error) { return 0, nil },
	}
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}
