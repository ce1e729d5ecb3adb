package repository

import "errors"

var (
	ErrUsernameTaken   = errors.New("username already in use")
	ErrEmailTaken      = errors.New("email already in use")
	ErrUserNotFound    = errors.New("user not found")
	ErrAuthorNotFound  = errors.New("author not found")
	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrAmbiguousRecipe = errors.New("slug matches recipes of several authors")
	ErrDuplicateTitle  = errors.New("author already has a recipe with this title")
	ErrDuplicateReview = errors.New("user already reviewed this recipe")
)
