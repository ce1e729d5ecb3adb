package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/db"
	svcErr "github.com/oggyb/recipebox/internal/errors"
	"github.com/oggyb/recipebox/internal/repository"
)

var (
	ErrAuthorNotFound = svcErr.NotFound("author not found")
	ErrRecipeNotFound = svcErr.NotFound("recipe not found")
	ErrDuplicateTitle = svcErr.Conflict("author already has a recipe with this title")
)

// Service is the authoring and read side of recipes.
type Service struct {
	appCtx  *app.AppContext
	recipes *repository.RecipeRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		recipes: repository.NewRecipeRepository(appCtx.DB),
	}
}

type IngredientInput struct {
	Name     string `json:"name" validate:"required,max=128"`
	Quantity string `json:"quantity" validate:"max=32"`
	Unit     string `json:"unit" validate:"max=32"`
}

// InstructionInput.Step zero means "my position in the list".
type InstructionInput struct {
	Step int    `json:"step" validate:"gte=0"`
	Text string `json:"text" validate:"required,max=4000"`
}

// RecipeInput is a full recipe draft. Updates replace every field and child.
type RecipeInput struct {
	Title        string             `json:"title" validate:"required,max=191"`
	Description  string             `json:"description" validate:"max=10000"`
	ImageRef     string             `json:"image_ref" validate:"max=512"`
	Difficulty   string             `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	PrepTime     int                `json:"prep_time" validate:"gte=0,lte=10080"`
	CookTime     int                `json:"cook_time" validate:"gte=0,lte=10080"`
	Servings     int                `json:"servings" validate:"gte=0,lte=1000"`
	CalorieCount int                `json:"calorie_count" validate:"gte=0"`
	IsSpinoff    bool               `json:"is_spinoff"`
	Ingredients  []IngredientInput  `json:"ingredients" validate:"max=200,dive"`
	Instructions []InstructionInput `json:"instructions" validate:"max=200,dive"`
	Tags         []string           `json:"tags" validate:"max=30"`
}

func (in *RecipeInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))
	for i := range in.Ingredients {
		in.Ingredients[i].Name = strings.TrimSpace(in.Ingredients[i].Name)
	}
}

func (s *Service) check(in *RecipeInput) error {
	in.normalize()
	if err := s.appCtx.Validator.Validate(in); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(in.Instructions))
	for i, step := range in.Instructions {
		n := step.Step
		if n == 0 {
			n = i + 1
		}
		if _, dup := seen[n]; dup {
			return svcErr.InvalidWithDetails("validation failed", map[string]string{
				fmt.Sprintf("instructions[%d].step", i): fmt.Sprintf("step %d appears more than once", n),
			})
		}
		seen[n] = struct{}{}
	}
	return nil
}

func (in RecipeInput) model() *db.Recipe {
	rec := &db.Recipe{
		Title:        in.Title,
		Description:  in.Description,
		ImageRef:     in.ImageRef,
		Difficulty:   in.Difficulty,
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     in.Servings,
		CalorieCount: in.CalorieCount,
		IsSpinoff:    in.IsSpinoff,
		Tags:         in.Tags,
	}
	for _, ing := range in.Ingredients {
		rec.Ingredients = append(rec.Ingredients, db.Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit})
	}
	for _, st := range in.Instructions {
		rec.Instructions = append(rec.Instructions, db.Instruction{StepNumber: st.Step, Text: st.Text})
	}
	return rec
}

// CreateRecipe stores a new recipe for author and returns its id.
func (s *Service) CreateRecipe(ctx context.Context, author string, in RecipeInput) (uint64, error) {
	if err := s.check(&in); err != nil {
		return 0, err
	}
	id, err := s.recipes.CreateRecipe(ctx, author, in.model())
	if err != nil {
		return 0, s.mapErr("create recipe", err)
	}
	s.appCtx.Logger.Info("recipe created", "author", author, "recipe_id", id)
	s.invalidate(ctx, author)
	return id, nil
}

// UpdateRecipe replaces the recipe at (author, slug). It also returns the
// image reference the update dropped, if any, for the caller to delete.
func (s *Service) UpdateRecipe(ctx context.Context, author, slug string, in RecipeInput) (uint64, string, error) {
	if err := s.check(&in); err != nil {
		return 0, "", err
	}
	before, err := s.recipes.GetRecipeBySlug(ctx, author, slug)
	if err != nil {
		return 0, "", svcErr.Internal("load recipe", err)
	}
	id, err := s.recipes.UpdateRecipe(ctx, author, slug, in.model())
	if err != nil {
		return 0, "", s.mapErr("update recipe", err)
	}
	s.appCtx.Logger.Info("recipe updated", "author", author, "recipe_id", id)

	var stale string
	if before != nil && before.ImageRef != in.ImageRef {
		stale = before.ImageRef
	}
	return id, stale, nil
}

// DeleteRecipe removes the recipe at (author, slug) with all of its
// engagement and returns its image reference.
func (s *Service) DeleteRecipe(ctx context.Context, author, slug string) (string, error) {
	before, err := s.recipes.GetRecipeBySlug(ctx, author, slug)
	if err != nil {
		return "", svcErr.Internal("load recipe", err)
	}
	if err := s.recipes.DeleteRecipe(ctx, author, slug); err != nil {
		return "", s.mapErr("delete recipe", err)
	}
	s.appCtx.Logger.Info("recipe deleted", "author", author, "slug", slug)
	s.invalidate(ctx, author)
	if before == nil {
		return "", nil
	}
	return before.ImageRef, nil
}

// Query selects recipes. Zero values mean "no constraint"; Limit <= 0
// returns every match. An unrecognized Sort keeps id order.
type Query struct {
	Author       string   `json:"author"`
	Title        string   `json:"title"`
	MaxTotalTime int      `json:"max_total_time" validate:"gte=0"`
	MinRating    float64  `json:"min_rating" validate:"gte=0,lte=5"`
	Difficulty   string   `json:"difficulty"`
	Tags         []string `json:"tags"`
	Sort         string   `json:"sort"`
	Limit        int      `json:"limit" validate:"gte=0"`

	WithIngredients  bool `json:"with_ingredients"`
	WithInstructions bool `json:"with_instructions"`
	WithReviews      bool `json:"with_reviews"`
}

func (s *Service) QueryRecipes(ctx context.Context, q Query) ([]Recipe, error) {
	if err := s.appCtx.Validator.Validate(q); err != nil {
		return nil, err
	}
	filter := repository.RecipeFilter{
		Author:       strings.TrimSpace(q.Author),
		Title:        q.Title,
		MaxTotalTime: q.MaxTotalTime,
		MinRating:    q.MinRating,
		Difficulty:   strings.ToLower(strings.TrimSpace(q.Difficulty)),
		Tags:         q.Tags,
	}
	enrich := repository.Enrich{
		Ingredients:  q.WithIngredients,
		Instructions: q.WithInstructions,
		Reviews:      q.WithReviews,
	}
	rows, err := s.recipes.QueryRecipes(ctx, filter, repository.RecipeSort(strings.ToLower(q.Sort)), q.Limit, enrich)
	if err != nil {
		return nil, svcErr.Internal("query recipes", err)
	}
	out := make([]Recipe, len(rows))
	for i := range rows {
		out[i] = recipeOf(&rows[i])
	}
	return out, nil
}

// GetRecipe returns the fully enriched recipe, or nil when nothing matches.
func (s *Service) GetRecipe(ctx context.Context, author, slug string) (*Recipe, error) {
	row, err := s.recipes.GetRecipeBySlug(ctx, author, slug)
	if err != nil {
		return nil, svcErr.Internal("load recipe", err)
	}
	if row == nil {
		return nil, nil
	}
	r := recipeOf(row)
	return &r, nil
}

func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	tags, err := s.recipes.ListTags(ctx)
	if err != nil {
		return nil, svcErr.Internal("list tags", err)
	}
	return tags, nil
}

func (s *Service) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrAuthorNotFound):
		return ErrAuthorNotFound
	case errors.Is(err, repository.ErrRecipeNotFound):
		return ErrRecipeNotFound
	case errors.Is(err, repository.ErrDuplicateTitle):
		return ErrDuplicateTitle
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return svcErr.Conflict("recipe conflicts with existing data").WithCause(err)
	default:
		return svcErr.Internal(op, err)
	}
}

// invalidate drops the author's cached profile; its counters just moved.
func (s *Service) invalidate(ctx context.Context, author string) {
	if err := s.appCtx.RedisCache.InvalidateProfiles(ctx, author); err != nil {
		s.appCtx.Logger.Warn("profile cache invalidation failed", "username", author, "err", err)
	}
}

type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

type Instruction struct {
	Step int    `json:"step"`
	Text string `json:"text"`
}

type Review struct {
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recipe is the read model. Child slices are nil unless requested.
type Recipe struct {
	ID            uint64        `json:"id"`
	Author        string        `json:"author"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Description   string        `json:"description,omitempty"`
	ImageRef      string        `json:"image_ref,omitempty"`
	Difficulty    string        `json:"difficulty,omitempty"`
	PrepTime      int           `json:"prep_time"`
	CookTime      int           `json:"cook_time"`
	Servings      int           `json:"servings"`
	CalorieCount  int           `json:"calorie_count"`
	IsSpinoff     bool          `json:"is_spinoff"`
	Likes         int64         `json:"likes"`
	AverageRating float64       `json:"average_rating"`
	CreatedAt     time.Time     `json:"created_at"`
	Tags          []string      `json:"tags"`
	Ingredients   []Ingredient  `json:"ingredients,omitempty"`
	Instructions  []Instruction `json:"instructions,omitempty"`
	Reviews       []Review      `json:"reviews,omitempty"`
}

func recipeOf(r *db.Recipe) Recipe {
	out := Recipe{
		ID:            r.ID,
		Author:        r.AuthorUsername,
		Title:         r.Title,
		Slug:          r.Slug,
		Description:   r.Description,
		ImageRef:      r.ImageRef,
		Difficulty:    r.Difficulty,
		PrepTime:      r.PrepTime,
		CookTime:      r.CookTime,
		Servings:      r.Servings,
		CalorieCount:  r.CalorieCount,
		IsSpinoff:     r.IsSpinoff,
		Likes:         r.Likes,
		AverageRating: r.AverageRating,
		CreatedAt:     r.CreatedAt,
		Tags:          r.Tags,
	}
	for _, ing := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit})
	}
	for _, st := range r.Instructions {
		out.Instructions = append(out.Instructions, Instruction{Step: st.StepNumber, Text: st.Text})
	}
	for _, rv := range r.Reviews {
		out.Reviews = append(out.Reviews, Review{Username: rv.ReviewerUsername, Rating: rv.Rating, Comment: rv.Comment, CreatedAt: rv.CreatedAt})
	}
	return out
}
