package weaviate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpress/publisher/features/searchsync"
	"devpress/publisher/internal/adapter/weaviate"
	"devpress/publisher/internal/testutils"
)

func TestWeaviateStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t, testutils.WithWeaviate())
	s.Setup()
	defer s.Teardown()

	store := weaviate.NewStore(s.Weaviate)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	// Second call finds the class and adds nothing.
	require.NoError(t, store.EnsureSchema(ctx))

	record := searchsync.Record{
		ObjectID:     "10",
		Title:        "Postgres is a database",
		Content:      "Postgres is a database",
		Slug:         "postgres",
		URL:          "http://example.com/articles/postgres",
		Category:     "Databases",
		CategoryPath: []string{"Databases"},
		Tags:         []string{"sql"},
		Author:       "Anonymous",
		PublishedAt:  1700000000,
		Status:       "published",
	}
	require.NoError(t, store.SaveObjects(ctx, []searchsync.Record{record}))

	record.Title = "Postgres, updated"
	require.NoError(t, store.SaveObjects(ctx, []searchsync.Record{record}))

	props, err := store.Get(ctx, "10")
	require.NoError(t, err)
	require.NotNil(t, props)
	assert.Equal(t, "Postgres, updated", props["title"])
	assert.Equal(t, "10", props["objectID"])
}
