package db

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "github.com/oggyb/recipebox/internal/logger"
)

// DefaultTags is the label vocabulary installed on every migrate.
var DefaultTags = []string{
	// meal types
	"breakfast", "lunch", "dinner", "dessert", "snack", "appetizer", "drink",
	// dietary
	"vegetarian", "vegan", "gluten-free", "dairy-free", "keto", "paleo",
	"low-carb", "low-fat", "low-sodium", "sugar-free",
	// cuisines
	"italian", "mexican", "thai", "chinese", "indian", "japanese", "french",
	"mediterranean", "middle eastern", "greek", "korean", "vietnamese", "spanish", "fusion",
	// misc
	"quick", "healthy", "comfort food", "meal prep", "bowl",
}

// SeedTags inserts missing labels. Existing rows are left untouched.
func SeedTags(db *gorm.DB) error {
	tags := make([]Tag, 0, len(DefaultTags))
	for _, l := range DefaultTags {
		tags = append(tags, Tag{Label: l})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "label"}},
		DoNothing: true,
	}).Create(&tags).Error
}

type demoRecipe struct {
	title       string
	difficulty  string
	prep, cook  int
	tags        []string
	ingredients []Ingredient
	steps       []string
}

var demoRecipes = []demoRecipe{
	{
		title: "Tomato Soup", difficulty: "easy", prep: 10, cook: 25,
		tags: []string{"vegan", "quick", "lunch"},
		ingredients: []Ingredient{
			{Name: "tomatoes", Quantity: "800", Unit: "g"},
			{Name: "onion", Quantity: "1", Unit: "pc"},
			{Name: "vegetable stock", Quantity: "500", Unit: "ml"},
		},
		steps: []string{"Sweat the onion.", "Add tomatoes and stock, simmer.", "Blend until smooth."},
	},
	{
		title: "Chickpea Curry", difficulty: "medium", prep: 15, cook: 35,
		tags: []string{"vegan", "indian", "dinner"},
		ingredients: []Ingredient{
			{Name: "chickpeas", Quantity: "2", Unit: "can"},
			{Name: "coconut milk", Quantity: "400", Unit: "ml"},
			{Name: "curry paste", Quantity: "3", Unit: "tbsp"},
		},
		steps: []string{"Fry the paste.", "Add chickpeas and coconut milk.", "Simmer and season."},
	},
	{
		title: "Pancakes", difficulty: "easy", prep: 5, cook: 15,
		tags: []string{"breakfast", "vegetarian", "quick"},
		ingredients: []Ingredient{
			{Name: "flour", Quantity: "200", Unit: "g"},
			{Name: "milk", Quantity: "300", Unit: "ml"},
			{Name: "egg", Quantity: "2", Unit: "pc"},
		},
		steps: []string{"Whisk everything.", "Rest the batter.", "Cook in a hot pan."},
	},
	{
		title: "Beef Ragu", difficulty: "hard", prep: 30, cook: 180,
		tags: []string{"italian", "dinner", "comfort food"},
		ingredients: []Ingredient{
			{Name: "beef shin", Quantity: "1", Unit: "kg"},
			{Name: "passata", Quantity: "700", Unit: "ml"},
			{Name: "red wine", Quantity: "250", Unit: "ml"},
		},
		steps: []string{"Brown the beef.", "Deglaze with wine.", "Braise low and slow.", "Shred and toss with pasta."},
	},
}

// SeedDemoData resets the domain tables and populates demo accounts,
// recipes and engagement facts. Counters are left at zero on purpose so
// the caller can exercise reconciliation afterwards.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	log := applog.With("op", "seed")

	// --- Fresh start (children first) ---
	for _, table := range []string{
		"recipe_likes", "user_follows", "recipe_reviews", "recipe_tags",
		"recipe_instructions", "recipe_ingredients", "recipes", "users", "unverified_users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	accounts := make([]Account, 0, 8)
	for i := 1; i <= 8; i++ {
		username := fmt.Sprintf("cook%d", i)
		accounts = append(accounts, Account{
			Username:             username,
			Email:                username + "@example.com",
			PasswordHash:         string(hash),
			DisplayName:          username,
			PublicProfile:        true,
			CommentsNotification: true,
		})
	}
	if err := db.Create(&accounts).Error; err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}

	var tags []Tag
	if err := db.Find(&tags).Error; err != nil {
		return err
	}
	tagIDs := make(map[string]uint64, len(tags))
	for _, t := range tags {
		tagIDs[t.Label] = t.ID
	}

	var recipes []Recipe
	for i, a := range accounts {
		d := demoRecipes[i%len(demoRecipes)]
		title := d.title
		if i >= len(demoRecipes) {
			title = fmt.Sprintf("%s by %s", d.title, a.Username)
		}
		rec := Recipe{
			CreatorID:  a.ID,
			Title:      title,
			Slug:       strings.ReplaceAll(strings.ToLower(title), " ", "_"),
			Difficulty: d.difficulty,
			PrepTime:   d.prep,
			CookTime:   d.cook,
			Servings:   2 + r.Intn(4),
		}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to seed recipe: %w", err)
		}
		for j, ing := range d.ingredients {
			ing.RecipeID, ing.Position = rec.ID, j+1
			if err := db.Create(&ing).Error; err != nil {
				return err
			}
		}
		for j, s := range d.steps {
			if err := db.Create(&Instruction{RecipeID: rec.ID, StepNumber: j + 1, Text: s}).Error; err != nil {
				return err
			}
		}
		for _, l := range d.tags {
			if id, ok := tagIDs[l]; ok {
				if err := db.Create(&RecipeTag{RecipeID: rec.ID, TagID: id}).Error; err != nil {
					return err
				}
			}
		}
		recipes = append(recipes, rec)
	}
	log.Info("seeded accounts and recipes", "accounts", len(accounts), "recipes", len(recipes))

	// --- Engagement facts (~50% likes, ~40% follows, some reviews) ---
	facts := 0
	for _, a := range accounts {
		for _, rec := range recipes {
			if rec.CreatorID == a.ID {
				continue
			}
			if r.Intn(100) < 50 {
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&Like{UserID: a.ID, RecipeID: rec.ID}).Error; err != nil {
					return fmt.Errorf("failed to seed like: %w", err)
				}
				facts++
			}
			if r.Intn(100) < 30 {
				rv := Review{UserID: a.ID, RecipeID: rec.ID, Rating: 1 + r.Intn(5), Comment: "Tasty."}
				if err := db.Create(&rv).Error; err != nil {
					return fmt.Errorf("failed to seed review: %w", err)
				}
				facts++
			}
		}
		for _, b := range accounts {
			if a.ID != b.ID && r.Intn(100) < 40 {
				if err := db.Create(&Follow{FollowerID: a.ID, FolloweeID: b.ID}).Error; err != nil {
					return fmt.Errorf("failed to seed follow: %w", err)
				}
				facts++
			}
		}
	}
	log.Info("seeded engagement facts", "rows", facts)

	return nil
}
