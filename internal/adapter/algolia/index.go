// Package algolia writes search records to a hosted Algolia index.
package algolia

import (
	"context"
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	"devpress/publisher/features/searchsync"
)

// objectSaver is the subset of *search.Index used by Index.
type objectSaver interface {
	SaveObjects(objects interface{}, opts ...interface{}) (search.GroupBatchRes, error)
}

type Index struct {
	name  string
	index objectSaver
	wait  bool
}

// NewIndex targets the named index. When wait is set, SaveObjects blocks
// until Algolia reports the indexing tasks as published.
func NewIndex(appID, apiKey, name string, wait bool) *Index {
	client := search.NewClient(appID, apiKey)
	return newIndex(name, client.InitIndex(name), wait)
}

func newIndex(name string, saver objectSaver, wait bool) *Index {
	return &Index{name: name, index: saver, wait: wait}
}

func (i *Index) Name() string {
	return "algolia:" + i.name
}

// SaveObjects upserts records by objectID. The client splits large slices
// into several batch requests.
func (i *Index) SaveObjects(ctx context.Context, records []searchsync.Record) error {
	if len(records) == 0 {
		return nil
	}

	res, err := i.index.SaveObjects(records, ctx)
	if err != nil {
		return fmt.Errorf("algolia save objects: %w", err)
	}
	if !i.wait {
		return nil
	}
	if err := res.Wait(ctx); err != nil {
		return fmt.Errorf("algolia wait for task: %w", err)
	}
	return nil
}
