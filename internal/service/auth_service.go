package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"dropview/internal/cache"
	"dropview/internal/middleware"
	"dropview/internal/models"
	"dropview/internal/observability"
	"dropview/internal/repository"
	"dropview/internal/validation"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 8
	referralCodeAttempts = 10

	// RegisteredMessage is echoed to the client after a successful signup.
	RegisteredMessage = "Email has been registered"
)

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// ReferralCounter credits a referral to the holder of code.
type ReferralCounter interface {
	IncrementCount(ctx context.Context, code string) error
}

// AuthOptions tunes password hashing and streak bookkeeping.
type AuthOptions struct {
	BcryptCost     int
	StreakLocation *time.Location
	Now            func() time.Time
}

type AuthService struct {
	userRepo  repository.UserRepository
	tokens    TokenIssuer
	referrals ReferralCounter
	rdb       *redis.Client
	cost      int
	loc       *time.Location
	now       func() time.Time
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token   string       `json:"token"`
	Success string       `json:"success,omitempty"`
	User    *models.User `json:"user"`
}

// RegisterInput is the signup payload. Address may be sent nested or as flat street/city/zip fields.
type RegisterInput struct {
	Username           string          `json:"username"`
	Password           string          `json:"password"`
	Name               string          `json:"name"`
	Phone              string          `json:"phone"`
	Address            *models.Address `json:"address"`
	Street             string          `json:"street"`
	City               string          `json:"city"`
	Zip                string          `json:"zip"`
	AgeRange           string          `json:"age_range"`
	MaritalStatus      string          `json:"marital_status"`
	StylePreference    string          `json:"style_preference"`
	GenderIdentity     string          `json:"gender_identity"`
	FamilySize         string          `json:"family_size"`
	Occupation         string          `json:"occupation"`
	PurchasePriorities string          `json:"purchase_priorities"`
	ProductPreferences []string        `json:"product_preferences"`
	TryFrequency       string          `json:"try_frequency"`
	ReferralCode       string          `json:"referral_code"`
}

// AddressInput carries optional address components for a profile update.
type AddressInput struct {
	Street *string `json:"street"`
	City   *string `json:"city"`
	Zip    *string `json:"zip"`
}

// UpdateProfileInput holds the fields a user may change. Nil means "leave as is".
type UpdateProfileInput struct {
	Name               *string       `json:"name"`
	Username           *string       `json:"username"`
	Phone              *string       `json:"phone"`
	Address            *AddressInput `json:"address"`
	Street             *string       `json:"street"`
	City               *string       `json:"city"`
	Zip                *string       `json:"zip"`
	AgeRange           *string       `json:"age_range"`
	MaritalStatus      *string       `json:"marital_status"`
	StylePreference    *string       `json:"style_preference"`
	GenderIdentity     *string       `json:"gender_identity"`
	FamilySize         *string       `json:"family_size"`
	Occupation         *string       `json:"occupation"`
	PurchasePriorities *string       `json:"purchase_priorities"`
	ProductPreferences *[]string     `json:"product_preferences"`
	TryFrequency       *string       `json:"try_frequency"`
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	referrals ReferralCounter,
	rdb *redis.Client,
	opts AuthOptions,
) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.StreakLocation == nil {
		opts.StreakLocation = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		referrals: referrals,
		rdb:       rdb,
		cost:      opts.BcryptCost,
		loc:       opts.StreakLocation,
		now:       opts.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx, span := observability.StartSpan(ctx, "auth", "register")
	res, err := s.register(ctx, in)
	observability.EndSpan(span, err)
	return res, err
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, errs := buildUser(in)
	if !errs.Empty() {
		return nil, models.NewValidationError("Validation failed", errs...)
	}

	existing, err := s.userRepo.GetByUsername(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if existing != nil {
		return nil, models.NewDuplicateIdentityError("username")
	}

	refCode := validation.NormalizeReferralCode(in.ReferralCode)
	if refCode != "" {
		referrer, err := s.userRepo.GetByReferralCode(ctx, refCode)
		if err != nil {
			return nil, fmt.Errorf("lookup referral code: %w", err)
		}
		if referrer == nil {
			return nil, models.NewInvalidReferralError()
		}
		user.ReferredByID = &referrer.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hash)

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}
	user.ReferralCode = &code

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.ReferredByID != nil && s.referrals != nil {
		// Best effort: a failed credit never fails the signup.
		_ = s.referrals.IncrementCount(ctx, refCode)
	}
	observability.Registrations.WithLabelValues(observability.BoolLabel(user.ReferredByID != nil)).Inc()

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Success: RegisteredMessage, User: user}, nil
}

// buildUser trims and normalizes the signup payload and collects validation messages.
func buildUser(in RegisterInput) (*models.User, validation.Errors) {
	addr := models.Address{Street: in.Street, City: in.City, Zip: in.Zip}
	if in.Address != nil {
		addr = models.Address{
			Street: firstNonBlank(in.Address.Street, in.Street),
			City:   firstNonBlank(in.Address.City, in.City),
			Zip:    firstNonBlank(in.Address.Zip, in.Zip),
		}
	}

	user := &models.User{
		Username: validation.NormalizeUsername(in.Username),
		Name:     strings.TrimSpace(in.Name),
		Phone:    strings.TrimSpace(in.Phone),
		Address: models.Address{
			Street: strings.TrimSpace(addr.Street),
			City:   strings.TrimSpace(addr.City),
			Zip:    strings.TrimSpace(addr.Zip),
		},
		AgeRange:           strings.TrimSpace(in.AgeRange),
		MaritalStatus:      strings.TrimSpace(in.MaritalStatus),
		StylePreference:    strings.TrimSpace(in.StylePreference),
		GenderIdentity:     strings.TrimSpace(in.GenderIdentity),
		FamilySize:         strings.TrimSpace(in.FamilySize),
		Occupation:         strings.TrimSpace(in.Occupation),
		PurchasePriorities: strings.TrimSpace(in.PurchasePriorities),
		ProductPreferences: cleanList(in.ProductPreferences),
		TryFrequency:       strings.TrimSpace(in.TryFrequency),
	}

	var errs validation.Errors
	errs.Required("username", user.Username)
	if user.Username != "" {
		errs.Check("username", validation.ValidateEmail(user.Username))
	}
	errs.Required("password", in.Password)
	if in.Password != "" {
		errs.Check("password", validation.ValidatePassword(in.Password))
	}
	errs.Required("name", user.Name)
	errs.Required("phone", user.Phone)
	if user.Phone != "" {
		errs.Check("phone", validation.ValidatePhone(user.Phone))
	}
	errs.Required("street", user.Address.Street)
	errs.Required("city", user.Address.City)
	errs.Required("zip", user.Address.Zip)
	errs.Required("age_range", user.AgeRange)
	errs.Required("marital_status", user.MaritalStatus)
	errs.Required("style_preference", user.StylePreference)
	errs.Required("gender_identity", user.GenderIdentity)
	errs.Required("family_size", user.FamilySize)
	errs.Required("try_frequency", user.TryFrequency)
	if len(user.ProductPreferences) == 0 {
		errs.Add("product_preferences must contain at least one item")
	}
	return user, errs
}

func (s *AuthService) uniqueReferralCode(ctx context.Context) (string, error) {
	for range referralCodeAttempts {
		code, err := randomReferralCode()
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		taken, err := s.userRepo.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", models.NewInternalError(errors.New("referral code space exhausted"))
}

func randomReferralCode() (string, error) {
	limit := big.NewInt(int64(len(referralCodeAlphabet)))
	b := make([]byte, referralCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Authenticate verifies credentials, advances the login streak and issues a token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	ctx, span := observability.StartSpan(ctx, "auth", "authenticate")
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, validation.NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		observability.Logins.WithLabelValues("invalid").Inc()
		return nil, models.NewInvalidCredentialsError()
	}

	now := s.now()
	streak := NextStreak(user.LastLoginAt, user.LoginStreak, now, s.loc)
	if err := s.userRepo.RecordLogin(ctx, user.ID, streak, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LoginStreak = streak
	user.LastLoginAt = &now
	cache.Invalidate(ctx, s.rdb, cache.UserKey(user.ID))
	s.progressFor(ctx, user)

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	observability.Logins.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("user.id", int(user.ID)), attribute.Int("login_streak", streak))
	return &AuthResult{Token: token, User: user}, nil
}

// GetProfile returns the public projection, served from Redis when cached.
func (s *AuthService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, s.rdb, "user", cache.UserKey(userID), &user, cache.ProfileTTL, func() error {
		u, err := s.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) loadUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user, nil
}

// UpdateProfile applies the present fields. Required fields may not be blanked.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		errs    validation.Errors
		columns []string
	)
	required := func(field, column string, v *string, dst *string) {
		if v == nil {
			return
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			errs.Add(field + " must not be empty")
			return
		}
		*dst = t
		columns = append(columns, column)
	}
	optional := func(column string, v *string, dst *string) {
		if v == nil {
			return
		}
		*dst = strings.TrimSpace(*v)
		columns = append(columns, column)
	}

	if in.Username != nil {
		username := validation.NormalizeUsername(*in.Username)
		if err := validation.ValidateEmail(username); err != nil {
			errs.Check("username", err)
		} else if username != user.Username {
			holder, err := s.userRepo.GetByUsername(ctx, username)
			if err != nil {
				return nil, fmt.Errorf("lookup username: %w", err)
			}
			if holder != nil && holder.ID != user.ID {
				return nil, models.NewDuplicateIdentityError("username")
			}
			user.Username = username
			columns = append(columns, "username")
		}
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if err := validation.ValidatePhone(phone); err != nil {
			errs.Check("phone", err)
		} else {
			user.Phone = phone
			columns = append(columns, "phone")
		}
	}

	street, city, zip := in.Street, in.City, in.Zip
	if in.Address != nil {
		street = firstPresent(in.Address.Street, street)
		city = firstPresent(in.Address.City, city)
		zip = firstPresent(in.Address.Zip, zip)
	}

	required("name", "name", in.Name, &user.Name)
	required("street", "address_street", street, &user.Address.Street)
	required("city", "address_city", city, &user.Address.City)
	required("zip", "address_zip", zip, &user.Address.Zip)
	required("age_range", "age_range", in.AgeRange, &user.AgeRange)
	required("marital_status", "marital_status", in.MaritalStatus, &user.MaritalStatus)
	required("style_preference", "style_preference", in.StylePreference, &user.StylePreference)
	required("gender_identity", "gender_identity", in.GenderIdentity, &user.GenderIdentity)
	required("family_size", "family_size", in.FamilySize, &user.FamilySize)
	required("try_frequency", "try_frequency", in.TryFrequency, &user.TryFrequency)
	optional("occupation", in.Occupation, &user.Occupation)
	optional("purchase_priorities", in.PurchasePriorities, &user.PurchasePriorities)

	if in.ProductPreferences != nil {
		prefs := cleanList(*in.ProductPreferences)
		if len(prefs) == 0 {
			errs.Add("product_preferences must contain at least one item")
		} else {
			user.ProductPreferences = prefs
			columns = append(columns, "product_preferences")
		}
	}

	if !errs.Empty() {
		return nil, models.NewValidationError("Validation failed", errs...)
	}
	if len(columns) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(ctx, user, columns...); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, err
	}
	cache.Invalidate(ctx, s.rdb, cache.UserKey(user.ID))
	return user, nil
}

// Progress scores the user's engagement and persists the reward flag on first unlock.
func (s *AuthService) Progress(ctx context.Context, userID uint) (*Progress, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := s.progressFor(ctx, user)
	return &p, nil
}

func (s *AuthService) progressFor(ctx context.Context, user *models.User) Progress {
	p := ComputeProgress(user.ReferralsCount, user.LoginStreak, user.CommunityActionsCount, user.RewardUnlocked)
	if !p.RewardUnlocked || user.RewardUnlocked {
		return p
	}

	flipped, err := s.userRepo.MarkRewardUnlocked(ctx, user.ID)
	if err != nil {
		serviceLogger("auth").WarnContext(ctx, "persist reward unlock failed",
			slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		return p
	}
	user.RewardUnlocked = true
	if flipped {
		observability.RewardUnlocks.Inc()
		cache.Invalidate(ctx, s.rdb, cache.UserKey(user.ID))
	}
	return p
}

func serviceLogger(component string) *slog.Logger {
	return middleware.Logger.With(slog.String("component", component))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPresent(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// cleanList trims entries and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
