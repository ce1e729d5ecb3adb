package db

import (
	"time"
)

// PendingAccount is a signup awaiting email verification.
//
// Rows are consumed by verification or removed by the retention sweep.
// Username and email must also be unique against Account; that rule spans
// two tables and is checked in the repository.
//
// Indexes:
//   - idx_pending_code(verification_code): exact-match lookup on verify.
//   - idx_pending_created(created_at): retention sweep.
type PendingAccount struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement"`
	Username         string    `gorm:"uniqueIndex;size:64;not null"`
	Email            string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash     string    `gorm:"size:255;not null"`
	VerificationCode string    `gorm:"size:6;not null;index:idx_pending_code"`
	CodeExpiresAt    time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index:idx_pending_created"`
}

func (PendingAccount) TableName() string { return "unverified_users" }

// Account is a verified user. The four counters are denormalized from
// recipes, recipe_likes and user_follows.
type Account struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:128;not null"`
	Bio          string `gorm:"type:text"`
	AvatarRef    string `gorm:"size:512"`

	RecipeCount    int64 `gorm:"not null;default:0"`
	TotalLikes     int64 `gorm:"not null;default:0"`
	FollowersCount int64 `gorm:"not null;default:0"`
	FollowingCount int64 `gorm:"not null;default:0"`

	PublicProfile            bool `gorm:"not null"`
	ShowEmail                bool `gorm:"not null"`
	CommentsNotification     bool `gorm:"not null"`
	NewFollowersNotification bool `gorm:"not null"`
	NewsletterNotification   bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Account) TableName() string { return "users" }

// Recipe is owned by one Account.
//
// Indexes:
//   - idx_recipe_creator_title(creator_id, title) UNIQUE: one title per author.
//   - idx_recipe_creator_slug(creator_id, slug): detail lookups.
//   - idx_recipe_created(created_at): newest-first listing.
type Recipe struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	CreatorID    uint64 `gorm:"not null;uniqueIndex:idx_recipe_creator_title,priority:1;index:idx_recipe_creator_slug,priority:1"`
	Title        string `gorm:"size:191;not null;uniqueIndex:idx_recipe_creator_title,priority:2"`
	Slug         string `gorm:"size:191;not null;index:idx_recipe_creator_slug,priority:2;index:idx_recipe_slug"`
	Description  string `gorm:"type:text"`
	ImageRef     string `gorm:"size:512"`
	Difficulty   string `gorm:"size:16"`
	PrepTime     int    `gorm:"not null;default:0"`
	CookTime     int    `gorm:"not null;default:0"`
	Servings     int    `gorm:"not null;default:0"`
	CalorieCount int    `gorm:"not null;default:0"`
	IsSpinoff    bool   `gorm:"not null"`

	Likes         int64   `gorm:"not null;default:0"`
	AverageRating float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_recipe_created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// populated by queries, never written
	AuthorUsername string        `gorm:"->;-:migration"`
	Ingredients    []Ingredient  `gorm:"-"`
	Instructions   []Instruction `gorm:"-"`
	Tags           []string      `gorm:"-"`
	Reviews        []Review      `gorm:"-"`
}

type Ingredient struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	RecipeID uint64 `gorm:"not null;index"`
	Position int    `gorm:"not null"`
	Name     string `gorm:"size:128;not null"`
	Quantity string `gorm:"size:32"`
	Unit     string `gorm:"size:32"`
}

func (Ingredient) TableName() string { return "recipe_ingredients" }

type Instruction struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	RecipeID   uint64 `gorm:"not null;uniqueIndex:idx_instruction_step,priority:1"`
	StepNumber int    `gorm:"not null;uniqueIndex:idx_instruction_step,priority:2"`
	Text       string `gorm:"type:text;not null"`
}

func (Instruction) TableName() string { return "recipe_instructions" }

// Tag is the closed label vocabulary. Authoring never creates tags.
type Tag struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	Label string `gorm:"uniqueIndex;size:64;not null"`
}

type RecipeTag struct {
	RecipeID uint64 `gorm:"primaryKey"`
	TagID    uint64 `gorm:"primaryKey;index"`
}

// Review is unique per (user, recipe).
type Review struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_review_user_recipe,priority:1"`
	RecipeID  uint64    `gorm:"not null;uniqueIndex:idx_review_user_recipe,priority:2;index:idx_review_recipe_created,priority:1"`
	Rating    int       `gorm:"not null"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_review_recipe_created,priority:2"`

	ReviewerUsername string `gorm:"->;-:migration"`
}

func (Review) TableName() string { return "recipe_reviews" }

// Like is a fact row; presence means liked.
type Like struct {
	UserID    uint64    `gorm:"primaryKey"`
	RecipeID  uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Like) TableName() string { return "recipe_likes" }

// Follow is a fact row; presence means FollowerID follows FolloweeID.
//
// Indexes:
//   - idx_follow_followee_created(followee_id, created_at): follower lists.
type Follow struct {
	FollowerID uint64    `gorm:"primaryKey"`
	FolloweeID uint64    `gorm:"primaryKey;index:idx_follow_followee_created,priority:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_follow_followee_created,priority:2"`
}

func (Follow) TableName() string { return "user_follows" }

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&PendingAccount{}, &Account{}, &Recipe{}, &Ingredient{}, &Instruction{},
		&Tag{}, &RecipeTag{}, &Review{}, &Like{}, &Follow{},
	}
}
