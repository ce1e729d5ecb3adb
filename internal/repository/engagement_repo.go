package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/utils/pagination"
)

// EngagementRepository records like, follow and review facts and keeps the
// counters derived from them current.
type EngagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(database *gorm.DB) *EngagementRepository {
	return &EngagementRepository{db: database}
}

// LikeCounts are the counters affected by a like toggle, read after commit.
type LikeCounts struct {
	RecipeLikes       int64
	CreatorTotalLikes int64
}

// FollowCounts are read after a follow toggle.
type FollowCounts struct {
	FolloweeFollowers int64
	FollowerFollowing int64
}

// Follower is one row of a follower listing.
type Follower struct {
	AccountID   uint64
	Username    string
	DisplayName string
	FollowedAt  time.Time
}

// SetLike drives the like fact for (userID, recipeID) to liked.
//
// Behavior:
//   - Insert uses ON CONFLICT DO NOTHING and delete is unconditional, so
//     repeating a call with the same state changes nothing.
//   - The fact write, the recipe's like count and the creator's total likes
//     are committed together.
//
// Example:
//
//	counts, err := repo.SetLike(ctx, 7, 42, 3, true)
func (r *EngagementRepository) SetLike(ctx context.Context, userID, recipeID, creatorID uint64, liked bool) (LikeCounts, error) {
	var out LikeCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if liked {
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
				DoNothing: true,
			}).Create(&db.Like{UserID: userID, RecipeID: recipeID}).Error
		} else {
			err = tx.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&db.Like{}).Error
		}
		if err != nil {
			return err
		}

		if err := recomputeRecipeLikes(tx, recipeID); err != nil {
			return err
		}
		if err := recomputeAuthorTotals(tx, creatorID); err != nil {
			return err
		}

		if err := tx.Model(&db.Recipe{}).Select("likes").Where("id = ?", recipeID).Scan(&out.RecipeLikes).Error; err != nil {
			return err
		}
		return tx.Model(&db.Account{}).Select("total_likes").Where("id = ?", creatorID).Scan(&out.CreatorTotalLikes).Error
	})
	return out, err
}

// HasLiked is a point-in-time existence check on the like fact.
func (r *EngagementRepository) HasLiked(ctx context.Context, userID, recipeID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&n).Error
	return n > 0, err
}

// SetFollow drives the follow fact to follow and recomputes the followee's
// followers_count and the follower's following_count in the same transaction.
func (r *EngagementRepository) SetFollow(ctx context.Context, followerID, followeeID uint64, follow bool) (FollowCounts, error) {
	var out FollowCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if follow {
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}},
				DoNothing: true,
			}).Create(&db.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
		} else {
			err = tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&db.Follow{}).Error
		}
		if err != nil {
			return err
		}

		if err := recomputeFollowCounts(tx, followerID, followeeID); err != nil {
			return err
		}

		if err := tx.Model(&db.Account{}).Select("followers_count").Where("id = ?", followeeID).Scan(&out.FolloweeFollowers).Error; err != nil {
			return err
		}
		return tx.Model(&db.Account{}).Select("following_count").Where("id = ?", followerID).Scan(&out.FollowerFollowing).Error
	})
	return out, err
}

// IsFollowing is a point-in-time existence check on the follow fact.
func (r *EngagementRepository) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	return n > 0, err
}

// AddReview inserts a review and recomputes the recipe's average rating in
// one transaction. Returns ErrDuplicateReview when the user already reviewed
// the recipe, and the fresh average otherwise.
func (r *EngagementRepository) AddReview(ctx context.Context, rv *db.Review) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReview
			}
			return err
		}
		if err := recomputeRecipeRating(tx, rv.RecipeID); err != nil {
			return err
		}
		return tx.Model(&db.Recipe{}).Select("average_rating").Where("id = ?", rv.RecipeID).Scan(&avg).Error
	})
	return avg, err
}

// ListReviews returns a recipe's reviews newest first.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Keyset pagination: the token encodes the last row's (created_at, id).
func (r *EngagementRepository) ListReviews(
	ctx context.Context,
	recipeID uint64,
	paginationToken *string,
	limit int,
) ([]db.Review, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.Review{}).
		Select("recipe_reviews.*, users.username AS reviewer_username").
		Joins("JOIN users ON users.id = recipe_reviews.user_id").
		Where("recipe_reviews.recipe_id = ?", recipeID).
		Order("recipe_reviews.created_at DESC, recipe_reviews.id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(recipe_reviews.created_at < ? OR (recipe_reviews.created_at = ? AND recipe_reviews.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var reviews []db.Review
	if err := query.Find(&reviews).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(reviews) > limit {
		last := reviews[limit-1]
		token, _ := pagination.Encode(pagination.At(last.ID, last.CreatedAt))
		nextToken = &token
		reviews = reviews[:limit]
	}
	return reviews, nextToken, nil
}

// ListFollowers returns the accounts following followeeID, most recent first,
// with the same keyset pagination as ListReviews.
func (r *EngagementRepository) ListFollowers(
	ctx context.Context,
	followeeID uint64,
	paginationToken *string,
	limit int,
) ([]Follower, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("user_follows f").
		Select("u.id AS account_id, u.username, u.display_name, f.created_at AS followed_at").
		Joins("JOIN users u ON u.id = f.follower_id").
		Where("f.followee_id = ?", followeeID).
		Order("f.created_at DESC, f.follower_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(f.created_at < ? OR (f.created_at = ? AND f.follower_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var followers []Follower
	if err := query.Scan(&followers).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(followers) > limit {
		last := followers[limit-1]
		token, _ := pagination.Encode(pagination.At(last.AccountID, last.FollowedAt))
		nextToken = &token
		followers = followers[:limit]
	}
	return followers, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
