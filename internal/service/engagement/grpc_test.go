package engagement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/recipebox/internal/server/servertest"
	"github.com/oggyb/recipebox/internal/service/engagement"
)

func method(name string) string { return "/" + engagement.ServiceName + "/" + name }

func TestEngagementService_OverGRPC(t *testing.T) {
	ctx := context.Background()
	_, env := setup(t)
	conn := servertest.Dial(t, env.App.Config, engagement.NewRegistrar(env.App))

	like := &engagement.ToggleLikeRequest{Username: "alice", Recipe: bobSoup, Liked: true}
	first, err := servertest.Call[engagement.LikeResult](ctx, conn, method("ToggleLike"), like)
	require.NoError(t, err)
	second, err := servertest.Call[engagement.LikeResult](ctx, conn, method("ToggleLike"), like)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), second.Likes)

	has, err := servertest.Call[engagement.BoolResponse](ctx, conn, method("HasLiked"),
		&engagement.HasLikedRequest{Username: "alice", Recipe: bobSoup})
	require.NoError(t, err)
	assert.True(t, has.Value)

	_, err = servertest.Call[engagement.FollowResult](ctx, conn, method("ToggleFollow"),
		&engagement.ToggleFollowRequest{Follower: "bob", Followee: "bob", Follow: true})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	fol, err := servertest.Call[engagement.FollowResult](ctx, conn, method("ToggleFollow"),
		&engagement.ToggleFollowRequest{Follower: "alice", Followee: "bob", Follow: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), fol.FollowersCount)

	isf, err := servertest.Call[engagement.BoolResponse](ctx, conn, method("IsFollowing"),
		&engagement.IsFollowingRequest{Follower: "alice", Followee: "bob"})
	require.NoError(t, err)
	assert.True(t, isf.Value)

	avg, err := servertest.Call[engagement.SubmitReviewResponse](ctx, conn, method("SubmitReview"),
		&engagement.ReviewInput{Username: "alice", Recipe: bobSoup, Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg.AverageRating)

	_, err = servertest.Call[engagement.SubmitReviewResponse](ctx, conn, method("SubmitReview"),
		&engagement.ReviewInput{Username: "carol", Recipe: bobSoup, Rating: 9})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	reviews, err := servertest.Call[engagement.ListReviewsResponse](ctx, conn, method("ListReviews"),
		&engagement.ListReviewsRequest{Recipe: bobSoup})
	require.NoError(t, err)
	assert.Len(t, reviews.Reviews, 1)
	assert.Nil(t, reviews.NextPageToken)

	followers, err := servertest.Call[engagement.ListFollowersResponse](ctx, conn, method("ListFollowers"),
		&engagement.ListFollowersRequest{Username: "bob"})
	require.NoError(t, err)
	require.Len(t, followers.Followers, 1)
	assert.Equal(t, "alice", followers.Followers[0].Username)
}
