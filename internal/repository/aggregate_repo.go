package repository

import (
	"context"

	"gorm.io/gorm"
)

// AggregateRepository recomputes every denormalized counter from the fact tables.
type AggregateRepository struct {
	db *gorm.DB
}

func NewAggregateRepository(database *gorm.DB) *AggregateRepository {
	return &AggregateRepository{db: database}
}

// ReconcileStats reports how many rows each pass touched.
type ReconcileStats struct {
	Recipes  int64
	Accounts int64
}

// ReconcileAll rewrites recipe likes and average ratings, then account
// recipe, like, follower and following counts. It is a handful of set-based
// UPDATEs in one transaction, recipes first because total_likes sums them.
// Running it twice in a row is a no-op the second time.
func (r *AggregateRepository) ReconcileAll(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(sqlRecipeLikes)
		if res.Error != nil {
			return res.Error
		}
		stats.Recipes = res.RowsAffected

		if err := tx.Exec(sqlRecipeRating).Error; err != nil {
			return err
		}

		res = tx.Exec(sqlAuthorTotals)
		if res.Error != nil {
			return res.Error
		}
		stats.Accounts = res.RowsAffected

		return tx.Exec(sqlFollowCounts).Error
	})
	return stats, err
}
