package engagement

import (
	"context"

	svcErr "github.com/oggyb/recipebox/internal/errors"
)

type ToggleLikeRequest struct {
	Username string    `json:"username"`
	Recipe   RecipeRef `json:"recipe"`
	Liked    bool      `json:"liked"`
}

type HasLikedRequest struct {
	Username string    `json:"username"`
	Recipe   RecipeRef `json:"recipe"`
}

type ToggleFollowRequest struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
	Follow   bool   `json:"follow"`
}

type IsFollowingRequest struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
}

type BoolResponse struct {
	Value bool `json:"value"`
}

type SubmitReviewResponse struct {
	AverageRating float64 `json:"average_rating"`
}

type ListReviewsRequest struct {
	Recipe    RecipeRef `json:"recipe"`
	PageToken *string   `json:"page_token,omitempty"`
	Limit     int       `json:"limit"`
}

type ListReviewsResponse struct {
	Reviews       []Review `json:"reviews"`
	NextPageToken *string  `json:"next_page_token,omitempty"`
}

type ListFollowersRequest struct {
	Username  string  `json:"username"`
	PageToken *string `json:"page_token,omitempty"`
	Limit     int     `json:"limit"`
}

type ListFollowersResponse struct {
	Followers     []Follower `json:"followers"`
	NextPageToken *string    `json:"next_page_token,omitempty"`
}

// EngagementServer is the recipebox.v1.EngagementService API.
type EngagementServer interface {
	ToggleLike(context.Context, *ToggleLikeRequest) (*LikeResult, error)
	HasLiked(context.Context, *HasLikedRequest) (*BoolResponse, error)
	ToggleFollow(context.Context, *ToggleFollowRequest) (*FollowResult, error)
	IsFollowing(context.Context, *IsFollowingRequest) (*BoolResponse, error)
	SubmitReview(context.Context, *ReviewInput) (*SubmitReviewResponse, error)
	ListReviews(context.Context, *ListReviewsRequest) (*ListReviewsResponse, error)
	ListFollowers(context.Context, *ListFollowersRequest) (*ListFollowersResponse, error)
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ToggleLike(ctx context.Context, req *ToggleLikeRequest) (*LikeResult, error) {
	res, err := h.svc.ToggleLike(ctx, req.Username, req.Recipe, req.Liked)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &res, nil
}

func (h *Handler) HasLiked(ctx context.Context, req *HasLikedRequest) (*BoolResponse, error) {
	ok, err := h.svc.HasLiked(ctx, req.Username, req.Recipe)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &BoolResponse{Value: ok}, nil
}

func (h *Handler) ToggleFollow(ctx context.Context, req *ToggleFollowRequest) (*FollowResult, error) {
	res, err := h.svc.ToggleFollow(ctx, req.Follower, req.Followee, req.Follow)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &res, nil
}

func (h *Handler) IsFollowing(ctx context.Context, req *IsFollowingRequest) (*BoolResponse, error) {
	ok, err := h.svc.IsFollowing(ctx, req.Follower, req.Followee)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &BoolResponse{Value: ok}, nil
}

func (h *Handler) SubmitReview(ctx context.Context, req *ReviewInput) (*SubmitReviewResponse, error) {
	avg, err := h.svc.SubmitReview(ctx, *req)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &SubmitReviewResponse{AverageRating: avg}, nil
}

func (h *Handler) ListReviews(ctx context.Context, req *ListReviewsRequest) (*ListReviewsResponse, error) {
	rows, next, err := h.svc.ListReviews(ctx, req.Recipe, req.PageToken, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ListReviewsResponse{Reviews: rows, NextPageToken: next}, nil
}

func (h *Handler) ListFollowers(ctx context.Context, req *ListFollowersRequest) (*ListFollowersResponse, error) {
	rows, next, err := h.svc.ListFollowers(ctx, req.Username, req.PageToken, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ListFollowersResponse{Followers: rows, NextPageToken: next}, nil
}
