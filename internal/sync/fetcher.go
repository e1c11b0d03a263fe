package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/remote"
	"github.com/conexio/contactsync/internal/wire"
)

// PageFunc consumes one page of deserialized rows plus the bucket of related
// records they produced. Returning an error stops the walk.
type PageFunc func(recs []*wire.Record, bucket wire.Bucket) error

// Fetcher walks remote collections page by page. Continuation is opaque: the
// next page is whatever URL the service put under _links.next.href, with no
// assumptions about page sizes or cursor shape.
type Fetcher struct {
	client *remote.Client
	log    *zap.Logger
}

func NewFetcher(client *remote.Client, log *zap.Logger) *Fetcher {
	return &Fetcher{client: client, log: log}
}

// Pages fetches the entity's own collection endpoint.
func (f *Fetcher) Pages(ctx context.Context, entity string, fn PageFunc) error {
	ent, err := wire.Lookup(entity)
	if err != nil {
		return err
	}
	if ent.Endpoint == "" {
		return fmt.Errorf("%s has no collection endpoint", entity)
	}
	url := f.client.URL(ent.Endpoint, "", "")
	if ent.IncludeQuery != "" {
		url += "?include=" + ent.IncludeQuery
	}
	return f.PagesFrom(ctx, entity, url, fn)
}

// PagesFrom fetches starting from an explicit URL, for collections that live
// on a different endpoint than the entity's own (report summaries).
func (f *Fetcher) PagesFrom(ctx context.Context, entity string, url string, fn PageFunc) error {
	for page := 1; url != ""; page++ {
		raw, err := f.client.Get(ctx, url)
		if err != nil {
			return fmt.Errorf("fetching %s page %d: %w", entity, page, err)
		}

		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("decoding %s page %d: %w", entity, page, err)
		}

		next := nextLink(body)
		delete(body, "_links")

		rows, err := collectionRows(entity, body)
		if err != nil {
			return err
		}

		recs := make([]*wire.Record, 0, len(rows))
		bucket := wire.Bucket{}
		for _, row := range rows {
			data, ok := row.(map[string]any)
			if !ok {
				return fmt.Errorf("%s page %d: expected object rows", entity, page)
			}
			rec, rowBucket, err := wire.Deserialize(entity, data, 0)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			bucket.Merge(rowBucket)
		}

		f.log.Debug("fetched page",
			zap.String("entity", entity),
			zap.Int("page", page),
			zap.Int("rows", len(recs)),
		)

		if err := fn(recs, bucket); err != nil {
			return err
		}
		url = next
	}
	return nil
}

// FetchAll accumulates every page. Import paths should prefer Pages to keep
// memory and transaction scope per page.
func (f *Fetcher) FetchAll(ctx context.Context, entity string) ([]*wire.Record, wire.Bucket, error) {
	var all []*wire.Record
	bucket := wire.Bucket{}
	err := f.Pages(ctx, entity, func(recs []*wire.Record, b wire.Bucket) error {
		all = append(all, recs...)
		bucket.Merge(b)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return all, bucket, nil
}

func nextLink(body map[string]any) string {
	links, ok := body["_links"].(map[string]any)
	if !ok {
		return ""
	}
	next, ok := links["next"].(map[string]any)
	if !ok {
		return ""
	}
	href, _ := next["href"].(string)
	return href
}

// collectionRows finds the rows array: the schema's collection key when the
// body carries it, otherwise the body's sole list value (report endpoints use
// their own key).
func collectionRows(entity string, body map[string]any) ([]any, error) {
	ent, err := wire.Lookup(entity)
	if err != nil {
		return nil, err
	}
	if ent.CollectionKey != "" {
		if rows, ok := body[ent.CollectionKey].([]any); ok {
			return rows, nil
		}
	}
	var found []any
	for _, v := range body {
		if rows, ok := v.([]any); ok {
			if found != nil {
				return nil, fmt.Errorf("%s page has multiple list keys and none is %q", entity, ent.CollectionKey)
			}
			found = rows
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s page has no rows array", entity)
	}
	return found, nil
}
