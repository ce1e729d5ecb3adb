package repository

import (
	"gorm.io/gorm"
)

// Set-based recompute statements shared by the ledger, authoring and the
// reconciler. Each is a single UPDATE with correlated subqueries so it runs
// unchanged on MySQL, Postgres and SQLite. A trailing filter narrows them to
// specific rows; the reconciler runs them unfiltered.
const (
	sqlRecipeLikes = `UPDATE recipes SET likes = (
		SELECT COUNT(*) FROM recipe_likes l WHERE l.recipe_id = recipes.id)`

	sqlRecipeRating = `UPDATE recipes SET average_rating = (
		SELECT COALESCE(ROUND(AVG(rv.rating), 2), 0) FROM recipe_reviews rv WHERE rv.recipe_id = recipes.id)`

	// reads recipes.likes, so it must run after sqlRecipeLikes
	sqlAuthorTotals = `UPDATE users SET
		recipe_count = (SELECT COUNT(*) FROM recipes r WHERE r.creator_id = users.id),
		total_likes = (SELECT COALESCE(SUM(r.likes), 0) FROM recipes r WHERE r.creator_id = users.id)`

	sqlFollowCounts = `UPDATE users SET
		followers_count = (SELECT COUNT(*) FROM user_follows f WHERE f.followee_id = users.id),
		following_count = (SELECT COUNT(*) FROM user_follows f WHERE f.follower_id = users.id)`
)

func recomputeRecipeLikes(tx *gorm.DB, recipeID uint64) error {
	return tx.Exec(sqlRecipeLikes+" WHERE id = ?", recipeID).Error
}

func recomputeRecipeRating(tx *gorm.DB, recipeID uint64) error {
	return tx.Exec(sqlRecipeRating+" WHERE id = ?", recipeID).Error
}

func recomputeAuthorTotals(tx *gorm.DB, accountID uint64) error {
	return tx.Exec(sqlAuthorTotals+" WHERE id = ?", accountID).Error
}

func recomputeFollowCounts(tx *gorm.DB, accountIDs ...uint64) error {
	return tx.Exec(sqlFollowCounts+" WHERE id IN ?", accountIDs).Error
}
