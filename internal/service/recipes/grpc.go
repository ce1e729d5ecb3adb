package recipes

import (
	"context"
	"log/slog"

	svcErr "github.com/oggyb/recipebox/internal/errors"
	"github.com/oggyb/recipebox/internal/storage"
)

type CreateRecipeRequest struct {
	Author string      `json:"author"`
	Recipe RecipeInput `json:"recipe"`
}

type UpdateRecipeRequest struct {
	Author string      `json:"author"`
	Slug   string      `json:"slug"`
	Recipe RecipeInput `json:"recipe"`
}

type RecipeRef struct {
	Author string `json:"author"`
	Slug   string `json:"slug"`
}

type RecipeIDResponse struct {
	ID uint64 `json:"id"`
}

type DeleteRecipeResponse struct{}

type QueryRecipesResponse struct {
	Recipes []Recipe `json:"recipes"`
}

type ListTagsRequest struct{}

type ListTagsResponse struct {
	Tags []string `json:"tags"`
}

// RecipeServer is the recipebox.v1.RecipeService API.
type RecipeServer interface {
	CreateRecipe(context.Context, *CreateRecipeRequest) (*RecipeIDResponse, error)
	UpdateRecipe(context.Context, *UpdateRecipeRequest) (*RecipeIDResponse, error)
	DeleteRecipe(context.Context, *RecipeRef) (*DeleteRecipeResponse, error)
	QueryRecipes(context.Context, *Query) (*QueryRecipesResponse, error)
	GetRecipe(context.Context, *RecipeRef) (*Recipe, error)
	ListTags(context.Context, *ListTagsRequest) (*ListTagsResponse, error)
}

type Handler struct {
	svc   *Service
	store storage.ObjectStore
	log   *slog.Logger
}

func NewHandler(svc *Service, store storage.ObjectStore) *Handler {
	return &Handler{svc: svc, store: store, log: svc.appCtx.Logger}
}

func (h *Handler) CreateRecipe(ctx context.Context, req *CreateRecipeRequest) (*RecipeIDResponse, error) {
	id, err := h.svc.CreateRecipe(ctx, req.Author, req.Recipe)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &RecipeIDResponse{ID: id}, nil
}

func (h *Handler) UpdateRecipe(ctx context.Context, req *UpdateRecipeRequest) (*RecipeIDResponse, error) {
	id, stale, err := h.svc.UpdateRecipe(ctx, req.Author, req.Slug, req.Recipe)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	h.dropImage(ctx, stale)
	return &RecipeIDResponse{ID: id}, nil
}

func (h *Handler) DeleteRecipe(ctx context.Context, req *RecipeRef) (*DeleteRecipeResponse, error) {
	image, err := h.svc.DeleteRecipe(ctx, req.Author, req.Slug)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	h.dropImage(ctx, image)
	return &DeleteRecipeResponse{}, nil
}

func (h *Handler) QueryRecipes(ctx context.Context, req *Query) (*QueryRecipesResponse, error) {
	rows, err := h.svc.QueryRecipes(ctx, *req)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &QueryRecipesResponse{Recipes: rows}, nil
}

func (h *Handler) GetRecipe(ctx context.Context, req *RecipeRef) (*Recipe, error) {
	r, err := h.svc.GetRecipe(ctx, req.Author, req.Slug)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if r == nil {
		return nil, svcErr.Map(ErrRecipeNotFound)
	}
	return r, nil
}

func (h *Handler) ListTags(ctx context.Context, _ *ListTagsRequest) (*ListTagsResponse, error) {
	tags, err := h.svc.ListTags(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ListTagsResponse{Tags: tags}, nil
}

func (h *Handler) dropImage(ctx context.Context, ref string) {
	if ref == "" || h.store == nil {
		return
	}
	if err := h.store.Delete(ctx, ref); err != nil {
		h.log.Warn("recipe image not deleted", "ref", ref, "err", err)
	}
}
