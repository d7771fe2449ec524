package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
)

// newPostgresDB starts a throwaway Postgres container. It is skipped under
// -short and on machines without a working Docker provider.
func newPostgresDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "recipebox",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/recipebox?sslmode=disable", host, port.Port())
	db, err := NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgres_Lifecycle(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	err := db.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "x"})
	require.True(t, errors.Is(err, apperror.ErrConflict), "duplicate username: %v", err)

	r := createTestRecipe(t, db, alice, "Goulash")

	require.NoError(t, db.AddFavorite(ctx, &model.Favorite{UserID: bob.ID, RecipeID: r.ID}))
	err = db.AddFavorite(ctx, &model.Favorite{UserID: bob.ID, RecipeID: r.ID})
	require.True(t, errors.Is(err, apperror.ErrConflict), "duplicate favorite: %v", err)

	err = db.AddComment(ctx, &model.Comment{Text: "hi", UserID: bob.ID, RecipeID: "missing"})
	require.True(t, errors.Is(err, apperror.ErrNotFound), "comment on missing recipe: %v", err)

	require.NoError(t, db.AddComment(ctx, &model.Comment{Text: "great", UserID: bob.ID, RecipeID: r.ID}))
	comments, err := db.ListComments(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "bob", comments[0].Author)

	r.Title = "Better Goulash"
	require.NoError(t, db.UpdateRecipe(ctx, r))

	require.NoError(t, db.DeleteRecipe(ctx, r.ID))
	favs, err := db.ListFavoriteRecipes(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, favs)

	_, err = db.GetRecipe(ctx, r.ID)
	require.True(t, errors.Is(err, apperror.ErrNotFound))
}
