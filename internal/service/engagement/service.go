package engagement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/db"
	svcErr "github.com/oggyb/recipebox/internal/errors"
	"github.com/oggyb/recipebox/internal/repository"
	"github.com/oggyb/recipebox/internal/utils/pagination"
)

var (
	ErrUserNotFound    = svcErr.NotFound("user not found")
	ErrRecipeNotFound  = svcErr.NotFound("recipe not found")
	ErrAmbiguousRecipe = svcErr.Conflict("slug matches recipes of several authors, name the author")
	ErrSelfLike        = svcErr.Conflict("cannot like your own recipe")
	ErrSelfFollow      = svcErr.Conflict("cannot follow yourself")
	ErrSelfReview      = svcErr.Conflict("cannot review your own recipe")
	ErrDuplicateReview = svcErr.Conflict("recipe already reviewed")
	ErrInvalidToken    = svcErr.Invalid("invalid pagination token")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RecipeRef addresses a recipe. Author may be empty when the slug is unique.
type RecipeRef struct {
	Author string `json:"author"`
	Slug   string `json:"slug" validate:"required"`
}

// Service is the engagement ledger: likes, follows and reviews.
type Service struct {
	appCtx     *app.AppContext
	accounts   *repository.AccountRepository
	recipes    *repository.RecipeRepository
	engagement *repository.EngagementRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		accounts:   repository.NewAccountRepository(appCtx.DB),
		recipes:    repository.NewRecipeRepository(appCtx.DB),
		engagement: repository.NewEngagementRepository(appCtx.DB),
	}
}

type LikeResult struct {
	Likes             int64 `json:"likes"`
	CreatorTotalLikes int64 `json:"creator_total_likes"`
}

// ToggleLike drives the like of username on ref to liked. Repeating a call
// is a no-op that returns the same counts.
func (s *Service) ToggleLike(ctx context.Context, username string, ref RecipeRef, liked bool) (LikeResult, error) {
	user, err := s.account(ctx, username)
	if err != nil {
		return LikeResult{}, err
	}
	rec, err := s.recipe(ctx, ref)
	if err != nil {
		return LikeResult{}, err
	}
	if rec.CreatorID == user.ID {
		return LikeResult{}, ErrSelfLike
	}

	counts, err := s.engagement.SetLike(ctx, user.ID, rec.ID, rec.CreatorID, liked)
	if err != nil {
		return LikeResult{}, svcErr.Internal("toggle like", err)
	}
	s.appCtx.Logger.Debug("like set", "username", username, "recipe_id", rec.ID, "liked", liked)
	s.invalidate(ctx, rec.AuthorUsername)
	return LikeResult{Likes: counts.RecipeLikes, CreatorTotalLikes: counts.CreatorTotalLikes}, nil
}

// HasLiked is false for unknown users and recipes.
func (s *Service) HasLiked(ctx context.Context, username string, ref RecipeRef) (bool, error) {
	user, err := s.account(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rec, err := s.recipe(ctx, ref)
	if errors.Is(err, ErrRecipeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, err := s.engagement.HasLiked(ctx, user.ID, rec.ID)
	if err != nil {
		return false, svcErr.Internal("check like", err)
	}
	return ok, nil
}

type FollowResult struct {
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// ToggleFollow drives follower → followee to follow. FollowersCount is the
// followee's, FollowingCount the follower's.
func (s *Service) ToggleFollow(ctx context.Context, follower, followee string, follow bool) (FollowResult, error) {
	from, err := s.account(ctx, follower)
	if err != nil {
		return FollowResult{}, err
	}
	to, err := s.account(ctx, followee)
	if err != nil {
		return FollowResult{}, err
	}
	if from.ID == to.ID {
		return FollowResult{}, ErrSelfFollow
	}

	counts, err := s.engagement.SetFollow(ctx, from.ID, to.ID, follow)
	if err != nil {
		return FollowResult{}, svcErr.Internal("toggle follow", err)
	}
	s.invalidate(ctx, from.Username, to.Username)
	return FollowResult{FollowersCount: counts.FolloweeFollowers, FollowingCount: counts.FollowerFollowing}, nil
}

// IsFollowing is false when either account is unknown.
func (s *Service) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	from, err := s.account(ctx, follower)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	to, err := s.account(ctx, followee)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, err := s.engagement.IsFollowing(ctx, from.ID, to.ID)
	if err != nil {
		return false, svcErr.Internal("check follow", err)
	}
	return ok, nil
}

type ReviewInput struct {
	Username string    `json:"username" validate:"required"`
	Recipe   RecipeRef `json:"recipe"`
	Rating   int       `json:"rating" validate:"min=1,max=5"`
	Comment  string    `json:"comment" validate:"max=5000"`
}

// SubmitReview records one review per user and recipe and returns the
// recipe's new average rating.
func (s *Service) SubmitReview(ctx context.Context, in ReviewInput) (float64, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := s.appCtx.Validator.Validate(in); err != nil {
		return 0, err
	}
	user, err := s.account(ctx, in.Username)
	if err != nil {
		return 0, err
	}
	rec, err := s.recipe(ctx, in.Recipe)
	if err != nil {
		return 0, err
	}
	if rec.CreatorID == user.ID {
		return 0, ErrSelfReview
	}

	avg, err := s.engagement.AddReview(ctx, &db.Review{
		UserID:    user.ID,
		RecipeID:  rec.ID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.appCtx.Clock.Now(),
	})
	if errors.Is(err, repository.ErrDuplicateReview) {
		return 0, ErrDuplicateReview
	}
	if err != nil {
		return 0, svcErr.Internal("submit review", err)
	}
	s.appCtx.Logger.Info("review submitted", "username", in.Username, "recipe_id", rec.ID, "rating", in.Rating)
	return avg, nil
}

type Review struct {
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListReviews pages through a recipe's reviews newest first.
func (s *Service) ListReviews(ctx context.Context, ref RecipeRef, token *string, limit int) ([]Review, *string, error) {
	rec, err := s.recipe(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	rows, next, err := s.engagement.ListReviews(ctx, rec.ID, token, pagination.ClampLimit(limit, defaultPageSize, maxPageSize))
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, svcErr.Internal("list reviews", err)
	}
	out := make([]Review, len(rows))
	for i, rv := range rows {
		out[i] = Review{Username: rv.ReviewerUsername, Rating: rv.Rating, Comment: rv.Comment, CreatedAt: rv.CreatedAt}
	}
	return out, next, nil
}

type Follower struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	FollowedAt  time.Time `json:"followed_at"`
}

// ListFollowers pages through the accounts following username, newest first.
func (s *Service) ListFollowers(ctx context.Context, username string, token *string, limit int) ([]Follower, *string, error) {
	user, err := s.account(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	rows, next, err := s.engagement.ListFollowers(ctx, user.ID, token, pagination.ClampLimit(limit, defaultPageSize, maxPageSize))
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, svcErr.Internal("list followers", err)
	}
	out := make([]Follower, len(rows))
	for i, f := range rows {
		out[i] = Follower{Username: f.Username, DisplayName: f.DisplayName, FollowedAt: f.FollowedAt}
	}
	return out, next, nil
}

func (s *Service) account(ctx context.Context, username string) (*db.Account, error) {
	a, err := s.accounts.FindAccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, svcErr.Internal("load account", err)
	}
	return a, nil
}

func (s *Service) recipe(ctx context.Context, ref RecipeRef) (*db.Recipe, error) {
	if strings.TrimSpace(ref.Slug) == "" {
		return nil, ErrRecipeNotFound
	}
	r, err := s.recipes.ResolveRecipe(ctx, strings.TrimSpace(ref.Author), strings.TrimSpace(ref.Slug))
	switch {
	case errors.Is(err, repository.ErrRecipeNotFound):
		return nil, ErrRecipeNotFound
	case errors.Is(err, repository.ErrAmbiguousRecipe):
		return nil, ErrAmbiguousRecipe
	case err != nil:
		return nil, svcErr.Internal("resolve recipe", err)
	}
	return r, nil
}

func (s *Service) invalidate(ctx context.Context, usernames ...string) {
	if err := s.appCtx.RedisCache.InvalidateProfiles(ctx, usernames...); err != nil {
		s.appCtx.Logger.Warn("profile cache invalidation failed", "usernames", usernames, "err", err)
	}
}
