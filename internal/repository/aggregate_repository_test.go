package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/db/dbtest"
	"github.com/oggyb/recipebox/internal/repository"
)

// assertConverged compares every stored counter with a fresh aggregate.
func assertConverged(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	var recipes []db.Recipe
	require.NoError(t, gdb.Find(&recipes).Error)
	for _, r := range recipes {
		var likes int64
		gdb.Model(&db.Like{}).Where("recipe_id = ?", r.ID).Count(&likes)
		assert.Equal(t, likes, r.Likes, "likes of recipe %d", r.ID)

		var avg float64
		gdb.Model(&db.Review{}).Select("COALESCE(ROUND(AVG(rating), 2), 0)").Where("recipe_id = ?", r.ID).Scan(&avg)
		assert.InDelta(t, avg, r.AverageRating, 0.001, "rating of recipe %d", r.ID)
	}

	var accounts []db.Account
	require.NoError(t, gdb.Find(&accounts).Error)
	for _, a := range accounts {
		var recipeCount, followers, following int64
		var totalLikes int64
		gdb.Model(&db.Recipe{}).Where("creator_id = ?", a.ID).Count(&recipeCount)
		gdb.Model(&db.Recipe{}).Select("COALESCE(SUM(likes), 0)").Where("creator_id = ?", a.ID).Scan(&totalLikes)
		gdb.Model(&db.Follow{}).Where("followee_id = ?", a.ID).Count(&followers)
		gdb.Model(&db.Follow{}).Where("follower_id = ?", a.ID).Count(&following)

		assert.Equal(t, recipeCount, a.RecipeCount, "recipe_count of %s", a.Username)
		assert.Equal(t, totalLikes, a.TotalLikes, "total_likes of %s", a.Username)
		assert.Equal(t, followers, a.FollowersCount, "followers of %s", a.Username)
		assert.Equal(t, following, a.FollowingCount, "following of %s", a.Username)
	}
}

func TestReconcileAll_ConvergesFromDrift(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	recipes := repository.NewRecipeRepository(gdb)
	engagement := repository.NewEngagementRepository(gdb)
	agg := repository.NewAggregateRepository(gdb)
	bob := dbtest.Account(t, gdb, "bob")
	alice := dbtest.Account(t, gdb, "alice")
	carol := dbtest.Account(t, gdb, "carol")

	soup, err := recipes.CreateRecipe(ctx, "bob", draft("Soup", 1, 1))
	require.NoError(t, err)
	_, err = recipes.CreateRecipe(ctx, "alice", draft("Stew", 1, 1))
	require.NoError(t, err)

	_, err = engagement.SetLike(ctx, alice.ID, soup, bob.ID, true)
	require.NoError(t, err)
	_, err = engagement.AddReview(ctx, &db.Review{UserID: alice.ID, RecipeID: soup, Rating: 3})
	require.NoError(t, err)
	_, err = engagement.SetFollow(ctx, alice.ID, bob.ID, true)
	require.NoError(t, err)

	// facts written behind the ledger's back, counters corrupted
	require.NoError(t, gdb.Create(&db.Like{UserID: carol.ID, RecipeID: soup}).Error)
	require.NoError(t, gdb.Create(&db.Review{UserID: carol.ID, RecipeID: soup, Rating: 4}).Error)
	require.NoError(t, gdb.Create(&db.Follow{FollowerID: carol.ID, FolloweeID: alice.ID}).Error)
	require.NoError(t, gdb.Model(&db.Account{}).Where("id = ?", bob.ID).
		Updates(map[string]any{"recipe_count": 42, "total_likes": -3}).Error)

	stats, err := agg.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Recipes)
	assert.Equal(t, int64(3), stats.Accounts)

	assertConverged(t, gdb)

	var got db.Recipe
	require.NoError(t, gdb.First(&got, soup).Error)
	assert.Equal(t, int64(2), got.Likes)
	assert.InDelta(t, 3.5, got.AverageRating, 0.001)

	// second pass changes nothing
	_, err = agg.ReconcileAll(ctx)
	require.NoError(t, err)
	assertConverged(t, gdb)
}

func TestReconcileAll_EmptyIsZeroNotNull(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	recipes := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")

	id, err := recipes.CreateRecipe(ctx, "bob", draft("Soup", 1, 1))
	require.NoError(t, err)

	_, err = repository.NewAggregateRepository(gdb).ReconcileAll(ctx)
	require.NoError(t, err)

	var got db.Recipe
	require.NoError(t, gdb.First(&got, id).Error)
	assert.Zero(t, got.Likes)
	assert.Zero(t, got.AverageRating)
}
