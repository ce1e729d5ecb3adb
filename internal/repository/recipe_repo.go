package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/utils/slug"
)

// RecipeRepository handles authoring writes and recipe reads.
type RecipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(database *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: database}
}

// RecipeFilter fields are optional and combined with AND.
type RecipeFilter struct {
	Author       string   // exact username
	Title        string   // case-insensitive substring
	MaxTotalTime int      // prep + cook, minutes
	MinRating    float64  // average_rating >=
	Difficulty   string   // exact
	Tags         []string // recipe must carry every label
}

type RecipeSort string

const (
	SortRating RecipeSort = "rating" // average_rating DESC
	SortTime   RecipeSort = "time"   // prep + cook ASC
	SortNewest RecipeSort = "newest" // created_at DESC, id DESC
)

// Enrich selects which child collections a read loads. Tags are always loaded.
type Enrich struct {
	Ingredients  bool
	Instructions bool
	Reviews      bool
}

// EnrichAll loads every child collection.
var EnrichAll = Enrich{Ingredients: true, Instructions: true, Reviews: true}

// CreateRecipe inserts a recipe for authorUsername together with its
// ingredients, instructions and tag links.
//
// Behavior:
//   - One transaction; any failure leaves no trace of the attempt.
//   - ErrAuthorNotFound when the username has no verified account.
//   - ErrDuplicateTitle when the author already owns the title, or a title
//     with the same slug.
//   - Instructions keep caller step numbers; zero means position (1-based).
//   - Unknown tag labels are skipped; the vocabulary is never extended.
//   - The author's recipe_count is recomputed before commit.
//
// Example:
//
//	id, err := repo.CreateRecipe(ctx, "bob", &db.Recipe{Title: "Soup", Tags: []string{"vegan"}})
func (r *RecipeRepository) CreateRecipe(ctx context.Context, authorUsername string, rec *db.Recipe) (uint64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authorID, err := accountID(tx, authorUsername, ErrAuthorNotFound)
		if err != nil {
			return err
		}
		rec.ID = 0
		rec.CreatorID = authorID
		rec.Slug = slug.FromTitle(rec.Title)
		rec.Likes, rec.AverageRating = 0, 0

		if err := ensureTitleFree(tx, authorID, rec.Title, rec.Slug, 0); err != nil {
			return err
		}
		if err := tx.Create(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTitle
			}
			return err
		}
		if err := insertChildren(tx, rec); err != nil {
			return err
		}
		return recomputeAuthorTotals(tx, authorID)
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// UpdateRecipe rewrites the recipe at (authorUsername, currentSlug) and
// replaces all of its ingredients, instructions and tag links. The same
// atomicity and duplicate-title rules as CreateRecipe apply, excluding the
// recipe itself.
func (r *RecipeRepository) UpdateRecipe(ctx context.Context, authorUsername, currentSlug string, rec *db.Recipe) (uint64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authorID, err := accountID(tx, authorUsername, ErrAuthorNotFound)
		if err != nil {
			return err
		}
		var existing db.Recipe
		err = tx.Where("creator_id = ? AND slug = ?", authorID, currentSlug).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		if err != nil {
			return err
		}

		rec.ID = existing.ID
		rec.CreatorID = authorID
		rec.Slug = slug.FromTitle(rec.Title)
		if err := ensureTitleFree(tx, authorID, rec.Title, rec.Slug, existing.ID); err != nil {
			return err
		}

		err = tx.Model(&db.Recipe{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"title":         rec.Title,
			"slug":          rec.Slug,
			"description":   rec.Description,
			"image_ref":     rec.ImageRef,
			"difficulty":    rec.Difficulty,
			"prep_time":     rec.PrepTime,
			"cook_time":     rec.CookTime,
			"servings":      rec.Servings,
			"calorie_count": rec.CalorieCount,
			"is_spinoff":    rec.IsSpinoff,
		}).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTitle
			}
			return err
		}

		if err := deleteChildren(tx, existing.ID, false); err != nil {
			return err
		}
		return insertChildren(tx, rec)
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// DeleteRecipe removes a recipe with its children, tag links, likes and
// reviews, then recomputes the author's recipe_count and total_likes.
func (r *RecipeRepository) DeleteRecipe(ctx context.Context, authorUsername, recipeSlug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authorID, err := accountID(tx, authorUsername, ErrAuthorNotFound)
		if err != nil {
			return err
		}
		var existing db.Recipe
		err = tx.Select("id").Where("creator_id = ? AND slug = ?", authorID, recipeSlug).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		if err != nil {
			return err
		}
		if err := deleteChildren(tx, existing.ID, true); err != nil {
			return err
		}
		if err := tx.Delete(&db.Recipe{}, existing.ID).Error; err != nil {
			return err
		}
		return recomputeAuthorTotals(tx, authorID)
	})
}

// QueryRecipes runs a filtered, sorted read. limit <= 0 returns every match.
// An unknown sort keeps id order.
//
// Tag filtering is an intersection: recipes are grouped over their matching
// labels and kept only when the distinct match count equals the number of
// requested labels.
func (r *RecipeRepository) QueryRecipes(ctx context.Context, f RecipeFilter, sort RecipeSort, limit int, enrich Enrich) ([]db.Recipe, error) {
	q := r.baseQuery(ctx)

	if f.Author != "" {
		q = q.Where("users.username = ?", f.Author)
	}
	if t := strings.TrimSpace(f.Title); t != "" {
		q = q.Where("LOWER(recipes.title) LIKE ?", "%"+strings.ToLower(t)+"%")
	}
	if f.MaxTotalTime > 0 {
		q = q.Where("(recipes.prep_time + recipes.cook_time) <= ?", f.MaxTotalTime)
	}
	if f.MinRating > 0 {
		q = q.Where("recipes.average_rating >= ?", f.MinRating)
	}
	if f.Difficulty != "" {
		q = q.Where("recipes.difficulty = ?", f.Difficulty)
	}
	if labels := NormalizeTags(f.Tags); len(labels) > 0 {
		sub := r.db.
			Table("recipe_tags rt").
			Select("rt.recipe_id").
			Joins("JOIN tags t ON t.id = rt.tag_id").
			Where("t.label IN ?", labels).
			Group("rt.recipe_id").
			Having("COUNT(DISTINCT t.label) = ?", len(labels))
		q = q.Where("recipes.id IN (?)", sub)
	}

	switch sort {
	case SortRating:
		q = q.Order("recipes.average_rating DESC, recipes.id ASC")
	case SortTime:
		q = q.Order("(recipes.prep_time + recipes.cook_time) ASC, recipes.id ASC")
	case SortNewest:
		q = q.Order("recipes.created_at DESC, recipes.id DESC")
	default:
		q = q.Order("recipes.id ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recipes []db.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, err
	}
	if err := r.enrich(ctx, recipes, enrich); err != nil {
		return nil, err
	}
	return recipes, nil
}

// GetRecipeBySlug returns the fully enriched recipe, or (nil, nil) when the
// author or the slug does not resolve.
func (r *RecipeRepository) GetRecipeBySlug(ctx context.Context, authorUsername, recipeSlug string) (*db.Recipe, error) {
	var recipes []db.Recipe
	err := r.baseQuery(ctx).
		Where("users.username = ? AND recipes.slug = ?", authorUsername, recipeSlug).
		Order("recipes.id ASC").
		Limit(1).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, nil
	}
	if err := r.enrich(ctx, recipes, EnrichAll); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

// ResolveRecipe finds the recipe addressed by (author, slug). With an empty
// author the slug must be unique across authors, otherwise
// ErrAmbiguousRecipe is returned.
func (r *RecipeRepository) ResolveRecipe(ctx context.Context, authorUsername, recipeSlug string) (*db.Recipe, error) {
	q := r.baseQuery(ctx).Where("recipes.slug = ?", recipeSlug)
	if authorUsername != "" {
		q = q.Where("users.username = ?", authorUsername)
	}
	var recipes []db.Recipe
	if err := q.Order("recipes.id ASC").Limit(2).Find(&recipes).Error; err != nil {
		return nil, err
	}
	switch len(recipes) {
	case 0:
		return nil, ErrRecipeNotFound
	case 1:
		return &recipes[0], nil
	default:
		return nil, ErrAmbiguousRecipe
	}
}

// ListTags returns the vocabulary in label order.
func (r *RecipeRepository) ListTags(ctx context.Context) ([]string, error) {
	var labels []string
	err := r.db.WithContext(ctx).Model(&db.Tag{}).Order("label ASC").Pluck("label", &labels).Error
	return labels, err
}

func (r *RecipeRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&db.Recipe{}).
		Select("recipes.*, users.username AS author_username").
		Joins("JOIN users ON users.id = recipes.creator_id")
}

// enrich loads child collections for a result set with one query per
// collection, keyed by recipe id.
func (r *RecipeRepository) enrich(ctx context.Context, recipes []db.Recipe, e Enrich) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]uint64, len(recipes))
	byID := make(map[uint64]*db.Recipe, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
		byID[recipes[i].ID] = &recipes[i]
		recipes[i].Tags = []string{}
	}
	conn := r.db.WithContext(ctx)

	var tagRows []struct {
		RecipeID uint64
		Label    string
	}
	err := conn.Table("recipe_tags rt").
		Select("rt.recipe_id, t.label").
		Joins("JOIN tags t ON t.id = rt.tag_id").
		Where("rt.recipe_id IN ?", ids).
		Order("t.label ASC").
		Scan(&tagRows).Error
	if err != nil {
		return err
	}
	for _, row := range tagRows {
		byID[row.RecipeID].Tags = append(byID[row.RecipeID].Tags, row.Label)
	}

	if e.Ingredients {
		var rows []db.Ingredient
		if err := conn.Where("recipe_id IN ?", ids).Order("recipe_id, position").Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			byID[row.RecipeID].Ingredients = append(byID[row.RecipeID].Ingredients, row)
		}
	}

	if e.Instructions {
		var rows []db.Instruction
		if err := conn.Where("recipe_id IN ?", ids).Order("recipe_id, step_number").Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			byID[row.RecipeID].Instructions = append(byID[row.RecipeID].Instructions, row)
		}
	}

	if e.Reviews {
		var rows []db.Review
		err := conn.Model(&db.Review{}).
			Select("recipe_reviews.*, users.username AS reviewer_username").
			Joins("JOIN users ON users.id = recipe_reviews.user_id").
			Where("recipe_reviews.recipe_id IN ?", ids).
			Order("recipe_reviews.created_at DESC, recipe_reviews.id DESC").
			Find(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			byID[row.RecipeID].Reviews = append(byID[row.RecipeID].Reviews, row)
		}
	}
	return nil
}

// NormalizeTags lowercases, trims and de-duplicates labels, keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func accountID(tx *gorm.DB, username string, notFound error) (uint64, error) {
	var a db.Account
	err := tx.Select("id").Where("username = ?", username).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, notFound
	}
	return a.ID, err
}

func ensureTitleFree(tx *gorm.DB, authorID uint64, title, recipeSlug string, exceptID uint64) error {
	var n int64
	q := tx.Model(&db.Recipe{}).
		Where("creator_id = ? AND (title = ? OR slug = ?)", authorID, title, recipeSlug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateTitle
	}
	return nil
}

func insertChildren(tx *gorm.DB, rec *db.Recipe) error {
	if len(rec.Ingredients) > 0 {
		for i := range rec.Ingredients {
			rec.Ingredients[i].ID = 0
			rec.Ingredients[i].RecipeID = rec.ID
			rec.Ingredients[i].Position = i + 1
		}
		if err := tx.Create(&rec.Ingredients).Error; err != nil {
			return err
		}
	}

	if len(rec.Instructions) > 0 {
		for i := range rec.Instructions {
			rec.Instructions[i].ID = 0
			rec.Instructions[i].RecipeID = rec.ID
			if rec.Instructions[i].StepNumber == 0 {
				rec.Instructions[i].StepNumber = i + 1
			}
		}
		if err := tx.Create(&rec.Instructions).Error; err != nil {
			return err
		}
	}

	labels := NormalizeTags(rec.Tags)
	if len(labels) == 0 {
		rec.Tags = []string{}
		return nil
	}
	var tags []db.Tag
	if err := tx.Where("label IN ?", labels).Order("label ASC").Find(&tags).Error; err != nil {
		return err
	}
	rec.Tags = make([]string, 0, len(tags))
	if len(tags) == 0 {
		return nil
	}
	links := make([]db.RecipeTag, 0, len(tags))
	for _, t := range tags {
		links = append(links, db.RecipeTag{RecipeID: rec.ID, TagID: t.ID})
		rec.Tags = append(rec.Tags, t.Label)
	}
	return tx.Create(&links).Error
}

func deleteChildren(tx *gorm.DB, recipeID uint64, withEngagement bool) error {
	models := []any{&db.Ingredient{}, &db.Instruction{}, &db.RecipeTag{}}
	if withEngagement {
		models = append(models, &db.Like{}, &db.Review{})
	}
	for _, m := range models {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
