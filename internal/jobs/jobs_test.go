package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/recipebox/internal/app/apptest"
	"github.com/oggyb/recipebox/internal/cache"
	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/db/dbtest"
	"github.com/oggyb/recipebox/internal/jobs"
)

func TestReconcileJob(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	bob := dbtest.Account(t, env.App.DB, "bob")
	alice := dbtest.Account(t, env.App.DB, "alice")

	r := db.Recipe{CreatorID: bob.ID, Title: "Soup", Slug: "soup", Likes: 7}
	require.NoError(t, env.App.DB.Create(&r).Error)
	require.NoError(t, env.App.DB.Create(&db.Like{UserID: alice.ID, RecipeID: r.ID}).Error)
	require.NoError(t, env.Redis.Set(cache.KeyForProfile("bob"), "{}"))
	require.NoError(t, env.Redis.Set(cache.KeyForProfile("alice"), "{}"))

	require.NoError(t, jobs.Reconcile(env.App)(ctx))

	var got db.Recipe
	require.NoError(t, env.App.DB.First(&got, r.ID).Error)
	assert.Equal(t, int64(1), got.Likes)
	var acct db.Account
	require.NoError(t, env.App.DB.First(&acct, bob.ID).Error)
	assert.Equal(t, int64(1), acct.RecipeCount)
	assert.Equal(t, int64(1), acct.TotalLikes)
	assert.False(t, env.Redis.Exists(cache.KeyForProfile("bob")))
	assert.False(t, env.Redis.Exists(cache.KeyForProfile("alice")))
}

func TestSweepJob(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)

	old := db.PendingAccount{Username: "old", Email: "o@x.com", PasswordHash: "x", VerificationCode: "111111",
		CodeExpiresAt: apptest.Start.Add(-8 * 24 * time.Hour), CreatedAt: apptest.Start.Add(-8 * 24 * time.Hour)}
	fresh := db.PendingAccount{Username: "new", Email: "n@x.com", PasswordHash: "x", VerificationCode: "222222",
		CodeExpiresAt: apptest.Start.Add(-time.Hour), CreatedAt: apptest.Start.Add(-2 * time.Hour)}
	require.NoError(t, env.App.DB.Create(&old).Error)
	require.NoError(t, env.App.DB.Create(&fresh).Error)

	require.NoError(t, jobs.Sweep(env.App)(ctx))

	var left []db.PendingAccount
	require.NoError(t, env.App.DB.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Username)
}

func TestRegister_StartsReconcileImmediately(t *testing.T) {
	env := apptest.New(t)
	bob := dbtest.Account(t, env.App.DB, "bob")
	require.NoError(t, env.App.DB.Model(&db.Account{}).Where("id = ?", bob.ID).Update("recipe_count", 5).Error)

	s := jobs.NewScheduler(env.Clock, env.App.Logger, env.App.RedisCache, env.App.Config.Jobs.LeaseTTL)
	jobs.Register(s, env.App)
	s.Start(context.Background())
	defer s.Stop()

	assert.Equal(t, 2, env.Clock.Tickers())
	require.Eventually(t, func() bool {
		var a db.Account
		return env.App.DB.First(&a, bob.ID).Error == nil && a.RecipeCount == 0
	}, 2*time.Second, 10*time.Millisecond)
}
