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

func draft(title string, prep, cook int, tags ...string) *db.Recipe {
	return &db.Recipe{
		Title:      title,
		Difficulty: "easy",
		PrepTime:   prep,
		CookTime:   cook,
		Ingredients: []db.Ingredient{
			{Name: "water", Quantity: "1", Unit: "l"},
			{Name: "salt", Quantity: "1", Unit: "tsp"},
		},
		Instructions: []db.Instruction{{Text: "Boil."}, {Text: "Season."}},
		Tags:         tags,
	}
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestCreateRecipe_WritesAllChildren(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")

	id, err := repo.CreateRecipe(ctx, "bob", draft("Tomato  Soup", 10, 20, "Vegan", "quick", "not-a-tag", "vegan"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	rec, err := repo.GetRecipeBySlug(ctx, "bob", "tomato_soup")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "bob", rec.AuthorUsername)
	assert.Equal(t, []string{"quick", "vegan"}, rec.Tags)
	require.Len(t, rec.Ingredients, 2)
	assert.Equal(t, "water", rec.Ingredients[0].Name)
	require.Len(t, rec.Instructions, 2)
	assert.Equal(t, 1, rec.Instructions[0].StepNumber)
	assert.Equal(t, "Season.", rec.Instructions[1].Text)

	var bob db.Account
	require.NoError(t, gdb.Where("username = ?", "bob").First(&bob).Error)
	assert.Equal(t, int64(1), bob.RecipeCount)
}

func TestCreateRecipe_DuplicateTitleAndUnknownAuthor(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")
	dbtest.Account(t, gdb, "alice")

	_, err := repo.CreateRecipe(ctx, "bob", draft("Soup", 5, 5))
	require.NoError(t, err)

	_, err = repo.CreateRecipe(ctx, "bob", draft("Soup", 5, 5))
	assert.ErrorIs(t, err, repository.ErrDuplicateTitle)

	// another author may reuse the title
	_, err = repo.CreateRecipe(ctx, "alice", draft("Soup", 5, 5))
	assert.NoError(t, err)

	_, err = repo.CreateRecipe(ctx, "ghost", draft("Stew", 5, 5))
	assert.ErrorIs(t, err, repository.ErrAuthorNotFound)

	var n int64
	gdb.Model(&db.Recipe{}).Where("title = ?", "Soup").
		Joins("JOIN users ON users.id = recipes.creator_id").
		Where("users.username = ?", "bob").Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestCreateRecipe_FailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")

	d := draft("Broken", 5, 5, "vegan")
	d.Instructions = []db.Instruction{
		{StepNumber: 1, Text: "one"},
		{StepNumber: 1, Text: "also one"},
	}
	_, err := repo.CreateRecipe(ctx, "bob", d)
	require.Error(t, err)

	assert.Zero(t, countRows(t, gdb, &db.Recipe{}))
	assert.Zero(t, countRows(t, gdb, &db.Ingredient{}))
	assert.Zero(t, countRows(t, gdb, &db.Instruction{}))
	assert.Zero(t, countRows(t, gdb, &db.RecipeTag{}))
}

func TestUpdateRecipe_ReplacesChildren(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")

	id, err := repo.CreateRecipe(ctx, "bob", draft("Soup", 5, 5, "vegan"))
	require.NoError(t, err)
	_, err = repo.CreateRecipe(ctx, "bob", draft("Stew", 5, 5))
	require.NoError(t, err)

	upd := draft("Better Soup", 1, 2, "quick")
	upd.Ingredients = upd.Ingredients[:1]
	upd.Instructions = []db.Instruction{{Text: "Just heat."}}
	gotID, err := repo.UpdateRecipe(ctx, "bob", "soup", upd)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	rec, err := repo.GetRecipeBySlug(ctx, "bob", "better_soup")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"quick"}, rec.Tags)
	assert.Len(t, rec.Ingredients, 1)
	assert.Len(t, rec.Instructions, 1)
	assert.Equal(t, int64(1), countRows(t, gdb, &db.RecipeTag{}))

	_, err = repo.UpdateRecipe(ctx, "bob", "better_soup", draft("Stew", 1, 1))
	assert.ErrorIs(t, err, repository.ErrDuplicateTitle)

	_, err = repo.UpdateRecipe(ctx, "bob", "soup", draft("Soup", 1, 1))
	assert.ErrorIs(t, err, repository.ErrRecipeNotFound)
}

func TestDeleteRecipe_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	recipes := repository.NewRecipeRepository(gdb)
	engagement := repository.NewEngagementRepository(gdb)
	bob := dbtest.Account(t, gdb, "bob")
	alice := dbtest.Account(t, gdb, "alice")

	id, err := recipes.CreateRecipe(ctx, "bob", draft("Soup", 5, 5, "vegan"))
	require.NoError(t, err)
	_, err = engagement.SetLike(ctx, alice.ID, id, bob.ID, true)
	require.NoError(t, err)
	_, err = engagement.AddReview(ctx, &db.Review{UserID: alice.ID, RecipeID: id, Rating: 4})
	require.NoError(t, err)

	require.NoError(t, recipes.DeleteRecipe(ctx, "bob", "soup"))
	assert.ErrorIs(t, recipes.DeleteRecipe(ctx, "bob", "soup"), repository.ErrRecipeNotFound)

	for _, m := range []any{&db.Recipe{}, &db.Ingredient{}, &db.Instruction{}, &db.RecipeTag{}, &db.Like{}, &db.Review{}} {
		assert.Zero(t, countRows(t, gdb, m))
	}
	var got db.Account
	require.NoError(t, gdb.First(&got, bob.ID).Error)
	assert.Zero(t, got.RecipeCount)
	assert.Zero(t, got.TotalLikes)
}

func TestQueryRecipes_TagIntersection(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")

	_, err := repo.CreateRecipe(ctx, "bob", draft("Both", 5, 5, "vegan", "quick"))
	require.NoError(t, err)
	_, err = repo.CreateRecipe(ctx, "bob", draft("Vegan Only", 5, 5, "vegan"))
	require.NoError(t, err)
	_, err = repo.CreateRecipe(ctx, "bob", draft("Quick Only", 5, 5, "quick"))
	require.NoError(t, err)

	got, err := repo.QueryRecipes(ctx, repository.RecipeFilter{Tags: []string{"vegan", "quick"}}, "", 0, repository.Enrich{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Both", got[0].Title)
	assert.Equal(t, []string{"quick", "vegan"}, got[0].Tags)
	assert.Nil(t, got[0].Ingredients)

	got, err = repo.QueryRecipes(ctx, repository.RecipeFilter{Tags: []string{"vegan"}}, "", 0, repository.Enrich{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQueryRecipes_FiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")
	dbtest.Account(t, gdb, "alice")

	_, err := repo.CreateRecipe(ctx, "bob", draft("Slow Stew", 30, 120))
	require.NoError(t, err)
	_, err = repo.CreateRecipe(ctx, "bob", draft("Quick Soup", 5, 10))
	require.NoError(t, err)
	_, err = repo.CreateRecipe(ctx, "alice", draft("Soup Deluxe", 10, 20))
	require.NoError(t, err)
	require.NoError(t, gdb.Model(&db.Recipe{}).Where("title = ?", "Soup Deluxe").Update("average_rating", 4.5).Error)
	require.NoError(t, gdb.Model(&db.Recipe{}).Where("title = ?", "Slow Stew").Update("average_rating", 3.0).Error)

	titles := func(rs []db.Recipe) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Title
		}
		return out
	}

	got, err := repo.QueryRecipes(ctx, repository.RecipeFilter{Title: "SOUP"}, repository.SortTime, 0, repository.Enrich{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quick Soup", "Soup Deluxe"}, titles(got))

	got, err = repo.QueryRecipes(ctx, repository.RecipeFilter{}, repository.SortRating, 2, repository.Enrich{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Soup Deluxe", "Slow Stew"}, titles(got))

	got, err = repo.QueryRecipes(ctx, repository.RecipeFilter{Author: "bob", MaxTotalTime: 30}, "", 0, repository.Enrich{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quick Soup"}, titles(got))

	got, err = repo.QueryRecipes(ctx, repository.RecipeFilter{MinRating: 4}, "", 0, repository.EnrichAll)
	require.NoError(t, err)
	require.Equal(t, []string{"Soup Deluxe"}, titles(got))
	assert.Len(t, got[0].Ingredients, 2)
	assert.Len(t, got[0].Instructions, 2)

	got, err = repo.QueryRecipes(ctx, repository.RecipeFilter{}, repository.SortNewest, 0, repository.Enrich{})
	require.NoError(t, err)
	assert.Equal(t, "Soup Deluxe", got[0].Title)

	got, err = repo.QueryRecipes(ctx, repository.RecipeFilter{Difficulty: "hard"}, "", 0, repository.Enrich{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetRecipeBySlug_MissIsNil(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")

	rec, err := repo.GetRecipeBySlug(ctx, "bob", "nothing")
	assert.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = repo.GetRecipeBySlug(ctx, "ghost", "nothing")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestResolveRecipe_Ambiguity(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)
	dbtest.Account(t, gdb, "bob")
	dbtest.Account(t, gdb, "alice")

	_, err := repo.CreateRecipe(ctx, "bob", draft("Soup", 1, 1))
	require.NoError(t, err)

	rec, err := repo.ResolveRecipe(ctx, "", "soup")
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.AuthorUsername)

	_, err = repo.CreateRecipe(ctx, "alice", draft("Soup", 1, 1))
	require.NoError(t, err)

	_, err = repo.ResolveRecipe(ctx, "", "soup")
	assert.ErrorIs(t, err, repository.ErrAmbiguousRecipe)

	rec, err = repo.ResolveRecipe(ctx, "alice", "soup")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.AuthorUsername)

	_, err = repo.ResolveRecipe(ctx, "", "stew")
	assert.ErrorIs(t, err, repository.ErrRecipeNotFound)
}

func TestListTags_Sorted(t *testing.T) {
	gdb := dbtest.Open(t)
	repo := repository.NewRecipeRepository(gdb)

	tags, err := repo.ListTags(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, len(db.DefaultTags))
	assert.IsNonDecreasing(t, tags)
}
