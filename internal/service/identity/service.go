package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/cache"
	"github.com/oggyb/recipebox/internal/db"
	svcErr "github.com/oggyb/recipebox/internal/errors"
	"github.com/oggyb/recipebox/internal/repository"
)

var (
	ErrDuplicateUsername = svcErr.Conflict("username already taken")
	ErrDuplicateEmail    = svcErr.Conflict("email already registered")
	ErrNotVerified       = svcErr.Conflict("account not verified")
	ErrCodeExpired       = svcErr.Expired("verification code expired, request a new one")
	ErrBadCredentials    = svcErr.Unauthenticated("invalid username or password")
	ErrProfileNotFound   = svcErr.NotFound("profile not found")
)

const codeAttempts = 5

// newAccountDefaults are the preferences a verified account starts with.
var newAccountDefaults = db.Account{
	PublicProfile:            true,
	CommentsNotification:     true,
	NewFollowersNotification: true,
}

// Service owns the pending → verified account lifecycle, logins and profiles.
type Service struct {
	appCtx   *app.AppContext
	accounts *repository.AccountRepository

	newCode func() (string, error)
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		accounts: repository.NewAccountRepository(appCtx.DB),
		newCode:  GenerateCode,
	}
}

// GenerateCode returns a random 6-digit code in [100000, 999999].
func GenerateCode() (string, error) {
	first, err := gonanoid.Generate("123456789", 1)
	if err != nil {
		return "", err
	}
	rest, err := gonanoid.Generate("0123456789", 5)
	if err != nil {
		return "", err
	}
	return first + rest, nil
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email    string `json:"email" validate:"required,email,max=128"`
	Password string `json:"password" validate:"required,max=72"`
}

// NormalizeEmail is the stored form of an address: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending account and returns its verification code.
// Delivering the code is the caller's job.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if err := s.appCtx.Validator.Validate(in); err != nil {
		return "", err
	}

	hash, err := s.appCtx.Hasher.Hash(in.Password)
	if err != nil {
		return "", svcErr.Internal("hash password", err)
	}

	now := s.appCtx.Clock.Now()
	code, err := s.freshCode(ctx, now)
	if err != nil {
		return "", err
	}

	err = s.accounts.CreatePending(ctx, &db.PendingAccount{
		Username:         in.Username,
		Email:            in.Email,
		PasswordHash:     hash,
		VerificationCode: code,
		CodeExpiresAt:    now.Add(s.appCtx.Config.Identity.CodeTTL),
		CreatedAt:        now,
	})
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return "", ErrDuplicateUsername
	case errors.Is(err, repository.ErrEmailTaken):
		return "", ErrDuplicateEmail
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "", svcErr.Conflict("username or email already registered")
	case err != nil:
		return "", svcErr.Internal("create pending account", err)
	}

	s.appCtx.Logger.Info("account registered", "username", in.Username)
	return code, nil
}

// freshCode draws until the code collides with no live pending code.
func (s *Service) freshCode(ctx context.Context, now time.Time) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", svcErr.Internal("generate code", err)
		}
		inUse, err := s.accounts.CodeInUse(ctx, code, now)
		if err != nil {
			return "", svcErr.Internal("check code", err)
		}
		if !inUse {
			return code, nil
		}
		s.appCtx.Logger.Debug("verification code collision, redrawing", "attempt", i+1)
	}
	return "", svcErr.Internal("generate code", errors.New("no free code after retries"))
}

// Verify consumes a code. Unknown, expired and already used codes all
// return false with no side effects.
func (s *Service) Verify(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if !isCode(code) {
		return false, nil
	}
	acct, err := s.accounts.ConsumeCode(ctx, code, s.appCtx.Clock.Now(), newAccountDefaults)
	if err != nil {
		return false, svcErr.Internal("verify account", err)
	}
	if acct == nil {
		return false, nil
	}
	s.appCtx.Logger.Info("account verified", "username", acct.Username, "account_id", acct.ID)
	return true, nil
}

// ResendVerification issues a new code for a pending account. It returns
// false for any email without a pending account, verified or not.
func (s *Service) ResendVerification(ctx context.Context, email string) (bool, string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, "", nil
	}
	now := s.appCtx.Clock.Now()
	code, err := s.freshCode(ctx, now)
	if err != nil {
		return false, "", err
	}
	ok, err := s.accounts.RefreshCode(ctx, email, code, now.Add(s.appCtx.Config.Identity.CodeTTL))
	if err != nil {
		return false, "", svcErr.Internal("refresh code", err)
	}
	if !ok {
		return false, "", nil
	}
	return true, code, nil
}

// SweepExpiredPending deletes pending accounts older than the retention
// window, expired code or not.
func (s *Service) SweepExpiredPending(ctx context.Context) (int64, error) {
	cutoff := s.appCtx.Clock.Now().Add(-s.appCtx.Config.Identity.PendingRetention)
	n, err := s.accounts.DeleteStalePending(ctx, cutoff)
	if err != nil {
		return 0, svcErr.Internal("sweep pending accounts", err)
	}
	return n, nil
}

// Authenticate checks credentials. A pending account with the right
// password yields ErrNotVerified, or ErrCodeExpired once its code lapsed.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*db.Account, error) {
	acct, err := s.accounts.FindAccountByUsername(ctx, username)
	if err == nil {
		if !s.appCtx.Hasher.Compare(password, acct.PasswordHash) {
			return nil, ErrBadCredentials
		}
		return acct, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, svcErr.Internal("load account", err)
	}

	p, err := s.accounts.FindPendingByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, svcErr.Internal("load pending account", err)
	}
	if !s.appCtx.Hasher.Compare(password, p.PasswordHash) {
		return nil, ErrBadCredentials
	}
	if !p.CodeExpiresAt.After(s.appCtx.Clock.Now()) {
		return nil, ErrCodeExpired
	}
	return nil, ErrNotVerified
}

// Profile is the public view of an account.
type Profile struct {
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	AvatarRef      string    `json:"avatar_ref"`
	Email          string    `json:"email,omitempty"`
	RecipeCount    int64     `json:"recipe_count"`
	TotalLikes     int64     `json:"total_likes"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	PublicProfile  bool      `json:"public_profile"`
	ShowEmail      bool      `json:"show_email"`
	MemberSince    time.Time `json:"member_since"`
}

// GetProfile returns username's profile as seen by viewer. Private profiles
// are NOT_FOUND to everyone but the owner; email shows only when the owner
// allows it or is the viewer.
func (s *Service) GetProfile(ctx context.Context, username, viewer string) (*Profile, error) {
	var p Profile
	key := cache.KeyForProfile(username)
	hit, err := s.appCtx.RedisCache.GetJSON(ctx, key, &p)
	if err != nil {
		s.appCtx.Logger.Warn("profile cache read failed", "username", username, "err", err)
	}
	if !hit {
		acct, err := s.accounts.FindAccountByUsername(ctx, username)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrProfileNotFound
		}
		if err != nil {
			return nil, svcErr.Internal("load profile", err)
		}
		p = profileOf(acct)
		if err := s.appCtx.RedisCache.SetJSON(ctx, key, p, s.appCtx.Config.Cache.ProfileTTL); err != nil {
			s.appCtx.Logger.Warn("profile cache write failed", "username", username, "err", err)
		}
	}

	owner := viewer != "" && viewer == p.Username
	if !p.PublicProfile && !owner {
		return nil, ErrProfileNotFound
	}
	if !p.ShowEmail && !owner {
		p.Email = ""
	}
	return &p, nil
}

func profileOf(a *db.Account) Profile {
	return Profile{
		Username:       a.Username,
		DisplayName:    a.DisplayName,
		Bio:            a.Bio,
		AvatarRef:      a.AvatarRef,
		Email:          a.Email,
		RecipeCount:    a.RecipeCount,
		TotalLikes:     a.TotalLikes,
		FollowersCount: a.FollowersCount,
		FollowingCount: a.FollowingCount,
		PublicProfile:  a.PublicProfile,
		ShowEmail:      a.ShowEmail,
		MemberSince:    a.CreatedAt,
	}
}

// SettingsInput is a partial update; nil fields are left unchanged.
type SettingsInput struct {
	DisplayName              *string `json:"display_name" validate:"omitnil,min=1,max=128"`
	Bio                      *string `json:"bio" validate:"omitnil,max=2000"`
	AvatarRef                *string `json:"avatar_ref" validate:"omitnil,max=512"`
	PublicProfile            *bool   `json:"public_profile"`
	ShowEmail                *bool   `json:"show_email"`
	CommentsNotification     *bool   `json:"comments_notification"`
	NewFollowersNotification *bool   `json:"new_followers_notification"`
	NewsletterNotification   *bool   `json:"newsletter_notification"`
}

func (in SettingsInput) columns() map[string]any {
	cols := map[string]any{}
	if in.DisplayName != nil {
		cols["display_name"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		cols["bio"] = *in.Bio
	}
	if in.AvatarRef != nil {
		cols["avatar_ref"] = *in.AvatarRef
	}
	for col, v := range map[string]*bool{
		"public_profile":             in.PublicProfile,
		"show_email":                 in.ShowEmail,
		"comments_notification":      in.CommentsNotification,
		"new_followers_notification": in.NewFollowersNotification,
		"newsletter_notification":    in.NewsletterNotification,
	} {
		if v != nil {
			cols[col] = *v
		}
	}
	return cols
}

// UpdateSettings applies a partial settings change. When the avatar is
// replaced the previous reference is returned so the caller can delete it.
func (s *Service) UpdateSettings(ctx context.Context, username string, in SettingsInput) (string, error) {
	if err := s.appCtx.Validator.Validate(in); err != nil {
		return "", err
	}
	acct, err := s.accounts.FindAccountByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", svcErr.NotFound("user not found")
	}
	if err != nil {
		return "", svcErr.Internal("load account", err)
	}

	cols := in.columns()
	if len(cols) == 0 {
		return "", nil
	}
	if err := s.accounts.UpdateSettings(ctx, acct.ID, cols); err != nil {
		return "", svcErr.Internal("update settings", err)
	}
	if err := s.appCtx.RedisCache.InvalidateProfiles(ctx, username); err != nil {
		s.appCtx.Logger.Warn("profile cache invalidation failed", "username", username, "err", err)
	}

	if in.AvatarRef != nil && *in.AvatarRef != acct.AvatarRef {
		return acct.AvatarRef, nil
	}
	return "", nil
}

func isCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
