// Package seed creates demo data for development databases. It is not used by the API.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dropview/internal/middleware"
	"dropview/internal/models"
	"dropview/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

var (
	ageRanges          = []string{"18-24", "25-34", "35-44", "45-54", "55+"}
	maritalStatuses    = []string{"single", "married", "divorced", "widowed"}
	stylePreferences   = []string{"casual", "classic", "sporty", "bohemian", "minimalist"}
	genderIdentities   = []string{"female", "male", "non-binary", "prefer not to say"}
	familySizes        = []string{"1", "2", "3", "4", "5+"}
	tryFrequencies     = []string{"weekly", "monthly", "quarterly", "rarely"}
	productPreferences = []string{"skincare", "haircare", "snacks", "beverages", "household", "fitness", "pet care"}
	purchasePriorities = []string{"price", "quality", "brand", "sustainability"}
)

// Options controls how much data a run creates.
type Options struct {
	Users    int
	Posts    int
	Comments int
	// Seed makes runs reproducible; zero picks a time-based seed.
	Seed int64
	// BcryptCost is used once; every seeded user shares the hash.
	BcryptCost int
	// ReferralRate is the chance in [0,1] that a new user was referred by an earlier one.
	ReferralRate float64
}

// Summary reports what a run created.
type Summary struct {
	Users     int
	Posts     int
	Comments  int
	Referrals int
}

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	faker    *gofakeit.Faker
	opts     Options
	hash     string
	now      time.Time
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		faker:    gofakeit.New(seed),
		opts:     opts,
		hash:     string(hash),
		now:      time.Now(),
	}, nil
}

// CreateUser persists a user with a plausible survey profile. Unique identity
// collisions are retried with fresh values.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	var lastErr error
	for range 5 {
		user := f.buildUser()
		for _, override := range overrides {
			override(user)
		}
		err := f.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !models.IsCode(err, models.CodeDuplicateIdentity) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *Factory) buildUser() *models.User {
	fk := f.faker
	code := fk.Password(false, true, true, false, false, 8)
	streak := fk.Number(0, 6)
	user := &models.User{
		Username: fmt.Sprintf("%s.%d@%s", emailSafe(fk.Username()), fk.Number(1000, 9999), emailSafe(fk.DomainName())),
		Password: f.hash,
		Name:     fk.Name(),
		Phone:    fmt.Sprintf("+1%03d%07d", fk.Number(200, 999), fk.Number(0, 9999999)),
		Address: models.Address{
			Street: fk.Street(),
			City:   fk.City(),
			Zip:    fk.Zip(),
		},
		AgeRange:           fk.RandomString(ageRanges),
		MaritalStatus:      fk.RandomString(maritalStatuses),
		StylePreference:    fk.RandomString(stylePreferences),
		GenderIdentity:     fk.RandomString(genderIdentities),
		FamilySize:         fk.RandomString(familySizes),
		Occupation:         fk.JobTitle(),
		PurchasePriorities: fk.RandomString(purchasePriorities),
		ProductPreferences: f.pick(productPreferences, fk.Number(1, 3)),
		TryFrequency:       fk.RandomString(tryFrequencies),
		ReferralCode:       &code,
		LoginStreak:        streak,
	}
	if streak > 0 {
		last := f.now.Add(-time.Duration(fk.Number(0, 23)) * time.Hour)
		user.LastLoginAt = &last
	}
	return user
}

// CreatePost persists a post for author. Its created_at is spread over the last 90 days.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	fk := f.faker
	post := &models.Post{
		UserID:    author.ID,
		Type:      fk.RandomString([]string{models.PostTypeQuestion, models.PostTypeExperience}),
		Title:     fk.Sentence(fk.Number(3, 8)),
		Content:   fk.Paragraph(1, fk.Number(2, 4), 12, "\n\n"),
		CreatedAt: f.now.Add(-time.Duration(fk.Number(0, 90*24*60)) * time.Minute),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment on post, optionally as a reply to parent.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, author *models.User, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   f.faker.Sentence(f.faker.Number(4, 16)),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
		comment.CreatedAt = parent.CreatedAt.Add(time.Duration(f.faker.Number(1, 600)) * time.Minute)
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Run creates the configured number of users, then posts and comments spread across them.
func (f *Factory) Run(ctx context.Context) (Summary, error) {
	var (
		sum  Summary
		opts = f.opts
	)
	log := middleware.Logger.With(slog.String("component", "seed"))

	users := make([]*models.User, 0, opts.Users)
	for range opts.Users {
		var referrer *models.User
		if len(users) > 0 && f.faker.Float64Range(0, 1) < opts.ReferralRate {
			referrer = users[f.faker.Number(0, len(users)-1)]
		}
		user, err := f.CreateUser(ctx, func(u *models.User) {
			if referrer != nil {
				u.ReferredByID = &referrer.ID
			}
		})
		if err != nil {
			return sum, fmt.Errorf("seed user: %w", err)
		}
		if referrer != nil {
			if _, err := f.users.IncrementReferrals(ctx, referrer.Code()); err != nil {
				return sum, fmt.Errorf("seed referral: %w", err)
			}
			sum.Referrals++
		}
		users = append(users, user)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	posts := make([]*models.Post, 0, opts.Posts)
	for range opts.Posts {
		post, err := f.CreatePost(ctx, users[f.faker.Number(0, len(users)-1)])
		if err != nil {
			return sum, fmt.Errorf("seed post: %w", err)
		}
		posts = append(posts, post)
	}
	sum.Posts = len(posts)

	if len(posts) > 0 {
		comments := make([]*models.Comment, 0, opts.Comments)
		for range opts.Comments {
			post := posts[f.faker.Number(0, len(posts)-1)]
			var parent *models.Comment
			// Roughly a quarter of comments reply to an earlier one on the same post.
			if len(comments) > 0 && f.faker.Number(1, 4) == 1 {
				if c := comments[f.faker.Number(0, len(comments)-1)]; c.PostID == post.ID && c.ParentCommentID == nil {
					parent = c
				}
			}
			comment, err := f.CreateComment(ctx, post, users[f.faker.Number(0, len(users)-1)], parent)
			if err != nil {
				return sum, fmt.Errorf("seed comment: %w", err)
			}
			comments = append(comments, comment)
		}
		sum.Comments = len(comments)
	}

	log.InfoContext(ctx, "seed complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("referrals", sum.Referrals),
	)
	return sum, nil
}

func (f *Factory) pick(from []string, n int) []string {
	order := make([]int, len(from))
	for i := range order {
		order[i] = i
	}
	f.faker.ShuffleInts(order)
	out := make([]string, 0, n)
	for _, i := range order[:min(n, len(order))] {
		out = append(out, from[i])
	}
	return out
}

// emailSafe lower-cases s and drops characters an address local part or domain cannot carry.
func emailSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return -1
	}, s)
}
