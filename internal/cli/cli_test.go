package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/app/apptest"
	"github.com/oggyb/recipebox/internal/cli"
	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/db/dbtest"
)

func run(t *testing.T, env *apptest.Env, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*app.AppContext, func(), error) {
		return env.App, func() {}, nil
	}
	cmd := cli.NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReconcileCommand(t *testing.T) {
	env := apptest.New(t)
	bob := dbtest.Account(t, env.App.DB, "bob")
	require.NoError(t, env.App.DB.Model(&db.Account{}).Where("id = ?", bob.ID).Update("followers_count", 9).Error)

	out, err := run(t, env, "reconcile")
	require.NoError(t, err)
	assert.Equal(t, "reconciled 0 recipes and 1 accounts\n", out)

	var got db.Account
	require.NoError(t, env.App.DB.First(&got, bob.ID).Error)
	assert.Zero(t, got.FollowersCount)

	out, err = run(t, env, "reconcile", "--format", "json")
	require.NoError(t, err)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(1), stats["Accounts"])
}

func TestSweepCommand(t *testing.T) {
	env := apptest.New(t)
	stale := apptest.Start.Add(-30 * 24 * time.Hour)
	require.NoError(t, env.App.DB.Create(&db.PendingAccount{
		Username: "old", Email: "o@x.com", PasswordHash: "x", VerificationCode: "123456",
		CodeExpiresAt: stale, CreatedAt: stale,
	}).Error)

	out, err := run(t, env, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 pending accounts\n", out)
}

func TestTagsCommand(t *testing.T) {
	env := apptest.New(t)

	out, err := run(t, env, "tags", "--format", "json")
	require.NoError(t, err)
	var tags []string
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	assert.ElementsMatch(t, db.DefaultTags, tags)

	_, err = run(t, env, "tags", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}
