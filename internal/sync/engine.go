package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/remote"
	"github.com/conexio/contactsync/internal/wire"
)

// Store is the engine's port onto local storage. Upserts are keyed on the
// remote id; a record that already carries a local id updates that row
// instead. Only columns present in a record's scalars are written, so a
// partial record (counter refresh) leaves the rest of the row untouched.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	// RemoteIDs lists every non-empty remote id stored for an entity.
	RemoteIDs(ctx context.Context, entity string) ([]string, error)
}

// Tx scopes one unit of work, one page during imports.
type Tx interface {
	// BulkUpsert inserts or updates by remote id and fills in the local ids
	// of the given records.
	BulkUpsert(ctx context.Context, entity string, recs []*wire.Record) error
	// ReplaceLinks swaps association sets wholesale for identity-less rows.
	// Rows whose references did not resolve locally are skipped.
	ReplaceLinks(ctx context.Context, entity string, recs []*wire.Record) error
	RemoteToLocalIDs(ctx context.Context, entity string, remoteIDs []string) (map[string]int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Engine moves individual records and whole collections between the local
// store and the remote service.
type Engine struct {
	client    *remote.Client
	fetcher   *Fetcher
	store     Store
	batchSize int
	log       *zap.Logger
}

func NewEngine(client *remote.Client, fetcher *Fetcher, store Store, membershipBatchSize int, log *zap.Logger) *Engine {
	return &Engine{
		client:    client,
		fetcher:   fetcher,
		store:     store,
		batchSize: membershipBatchSize,
		log:       log,
	}
}

// Create pushes a locally-saved record to the remote service for the first
// time, then reconciles the server-assigned fields back onto the local row.
// Related objects embedded in the response are stored as plain new rows.
func (e *Engine) Create(ctx context.Context, rec *wire.Record) error {
	if !rec.Persisted() {
		return precondition("create", "%s is not saved locally", rec.Entity)
	}
	ent, err := wire.Lookup(rec.Entity)
	if err != nil {
		return err
	}

	body, err := wire.Serialize(rec, wire.SelectEditable)
	if err != nil {
		return err
	}
	raw, err := e.client.Post(ctx, e.client.URL(ent.Endpoint, "", ""), body)
	if err != nil {
		return err
	}
	return e.reconcile(ctx, rec.Entity, raw, rec.LocalID)
}

// Update replaces the remote record with the full local editable state.
func (e *Engine) Update(ctx context.Context, rec *wire.Record) error {
	if !rec.Persisted() {
		return precondition("update", "%s is not saved locally", rec.Entity)
	}
	if rec.RemoteID == "" {
		return precondition("update", "%s was never created remotely", rec.Entity)
	}
	ent, err := wire.Lookup(rec.Entity)
	if err != nil {
		return err
	}

	body, err := wire.Serialize(rec, wire.SelectEditable)
	if err != nil {
		return err
	}
	raw, err := e.client.Put(ctx, e.client.URL(ent.Endpoint, rec.RemoteID, ""), body)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	return e.reconcile(ctx, rec.Entity, raw, rec.LocalID)
}

// Delete removes the remote record. A 404 means the record is already gone
// and counts as success. The local row is the caller's to keep or drop.
func (e *Engine) Delete(ctx context.Context, rec *wire.Record, suffix string) error {
	if rec.RemoteID == "" {
		return precondition("delete", "%s was never created remotely", rec.Entity)
	}
	ent, err := wire.Lookup(rec.Entity)
	if err != nil {
		return err
	}
	_, err = e.client.Delete(ctx, e.client.URL(ent.Endpoint, rec.RemoteID, suffix))
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}

// UpsertByEmail creates or revives a contact through the natural-key upsert
// endpoint. Unlike Create it succeeds against soft-deleted remote contacts,
// at the price of a flattened body shape.
func (e *Engine) UpsertByEmail(ctx context.Context, rec *wire.Record) error {
	if rec.Entity != wire.TypeContact {
		return precondition("upsert", "only contacts support the sign-up upsert, got %s", rec.Entity)
	}
	if !rec.Persisted() {
		return precondition("upsert", "contact is not saved locally")
	}
	ent, _ := wire.Lookup(rec.Entity)

	body, err := wire.Serialize(rec, wire.SelectEditable)
	if err != nil {
		return err
	}
	// The sign-up endpoint takes the address as a plain string where the
	// regular endpoints take a nested object.
	if nested, ok := body["email_address"].(map[string]any); ok {
		body["email_address"] = nested["address"]
	}

	raw, err := e.client.Post(ctx, e.client.URL(ent.Endpoint, "", "/sign_up_form"), body)
	if err != nil {
		return err
	}

	var resp struct {
		ContactID string `json:"contact_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decoding sign-up response: %w", err)
	}
	if resp.ContactID == "" {
		return fmt.Errorf("sign-up response has no contact id")
	}
	rec.RemoteID = resp.ContactID

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := tx.BulkUpsert(ctx, rec.Entity, []*wire.Record{rec}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AddListMemberships adds every contact to every list in bulk, batching
// contact ids to the remote cap per call.
func (e *Engine) AddListMemberships(ctx context.Context, listRemoteIDs, contactRemoteIDs []string) error {
	if len(listRemoteIDs) == 0 || len(contactRemoteIDs) == 0 {
		return nil
	}
	url := e.client.URL("/activities/add_list_memberships", "", "")
	for start := 0; start < len(contactRemoteIDs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(contactRemoteIDs) {
			end = len(contactRemoteIDs)
		}
		body := map[string]any{
			"source":   map[string]any{"contact_ids": contactRemoteIDs[start:end]},
			"list_ids": listRemoteIDs,
		}
		if _, err := e.client.Post(ctx, url, body); err != nil {
			return err
		}
	}
	return nil
}

// PushContact sends a contact's local state out. The remote service refuses
// contacts without list memberships, so a memberless contact that exists
// remotely is deleted there instead of updated.
func (e *Engine) PushContact(ctx context.Context, rec *wire.Record) error {
	if len(rec.Multi["list_memberships"]) == 0 {
		if rec.RemoteID == "" {
			return nil
		}
		return e.Delete(ctx, rec, "")
	}
	if rec.RemoteID == "" {
		return e.Create(ctx, rec)
	}
	return e.Update(ctx, rec)
}

// Import pulls one entity's full remote collection, committing one
// transaction per page. Duplicate remote ids keep the first occurrence.
// Collection children are upserted alongside and association sets replaced
// wholesale, so re-running an import converges instead of accumulating.
func (e *Engine) Import(ctx context.Context, entity string) error {
	seen := map[string]struct{}{}
	return e.fetcher.Pages(ctx, entity, func(recs []*wire.Record, bucket wire.Bucket) error {
		page := make([]*wire.Record, 0, len(recs))
		for _, rec := range recs {
			if rec.RemoteID != "" {
				if _, dup := seen[rec.RemoteID]; dup {
					continue
				}
				seen[rec.RemoteID] = struct{}{}
			}
			page = append(page, rec)
		}
		if len(page) == 0 && len(bucket) == 0 {
			return nil
		}
		return e.storePage(ctx, entity, page, bucket)
	})
}

// storePage commits parents, remapped bucket children and association sets
// in one transaction.
func (e *Engine) storePage(ctx context.Context, entity string, page []*wire.Record, bucket wire.Bucket) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(page) > 0 {
		if err := tx.BulkUpsert(ctx, entity, page); err != nil {
			return fmt.Errorf("upserting %s: %w", entity, err)
		}
	}

	// Identity-bearing children go first so link rows can resolve against
	// their freshly assigned local ids.
	children := wire.Bucket{}
	links := wire.Bucket{}
	for related, recs := range bucket {
		ent, err := wire.Lookup(related)
		if err != nil {
			return err
		}
		if ent.WireID != "" {
			children.Add(related, recs...)
		} else {
			links.Add(related, recs...)
		}
	}

	if err := wire.Remap(ctx, page, children, tx.RemoteToLocalIDs); err != nil {
		return err
	}
	seeds := page
	for related, recs := range children {
		if err := tx.BulkUpsert(ctx, related, recs); err != nil {
			return fmt.Errorf("storing %s rows: %w", related, err)
		}
		seeds = append(seeds, recs...)
	}

	if err := wire.Remap(ctx, seeds, links, tx.RemoteToLocalIDs); err != nil {
		return err
	}
	for related, recs := range links {
		if err := tx.ReplaceLinks(ctx, related, recs); err != nil {
			return fmt.Errorf("storing %s rows: %w", related, err)
		}
	}
	return tx.Commit(ctx)
}

// importOrder satisfies references: lists and custom fields before contacts,
// campaigns before their activities.
var importOrder = []string{
	wire.TypeContactList,
	wire.TypeCustomField,
	wire.TypeContact,
	wire.TypeEmailCampaign,
}

// ImportAll imports every entity in dependency order. A failing entity is
// logged and skipped; the rest still run. The combined error reports every
// failure.
func (e *Engine) ImportAll(ctx context.Context) error {
	var errs []error
	for _, entity := range importOrder {
		if err := e.Import(ctx, entity); err != nil {
			e.log.Error("import failed", zap.String("entity", entity), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", entity, err))
			continue
		}
		e.log.Info("import finished", zap.String("entity", entity))
	}
	if err := e.ImportCampaignActivities(ctx); err != nil {
		e.log.Error("import failed", zap.String("entity", wire.TypeCampaignActivity), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", wire.TypeCampaignActivity, err))
	}
	return errors.Join(errs...)
}

// ImportCampaignActivities fills in sendable content for known campaigns.
// There is no bulk activity endpoint: each campaign detail names its
// activities, and each primary activity needs its own detail fetch to carry
// html content.
func (e *Engine) ImportCampaignActivities(ctx context.Context) error {
	campaignIDs, err := e.store.RemoteIDs(ctx, wire.TypeEmailCampaign)
	if err != nil {
		return err
	}
	campaignEnt, _ := wire.Lookup(wire.TypeEmailCampaign)
	activityEnt, _ := wire.Lookup(wire.TypeCampaignActivity)

	for _, campaignID := range campaignIDs {
		detail, err := e.fetchObject(ctx, e.client.URL(campaignEnt.Endpoint, campaignID, ""))
		if err != nil {
			return fmt.Errorf("campaign %s: %w", campaignID, err)
		}
		rec, bucket, err := wire.Deserialize(wire.TypeEmailCampaign, detail, 0)
		if err != nil {
			return err
		}

		for _, stub := range bucket[wire.TypeCampaignActivity] {
			if stub.String("role") != "primary_email" {
				continue
			}
			url := e.client.URL(activityEnt.Endpoint, stub.RemoteID, "")
			if activityEnt.IncludeQuery != "" {
				url += "?include=" + activityEnt.IncludeQuery
			}
			full, err := e.fetchObject(ctx, url)
			if err != nil {
				return fmt.Errorf("activity %s: %w", stub.RemoteID, err)
			}
			activity, actBucket, err := wire.Deserialize(wire.TypeCampaignActivity, full, 0)
			if err != nil {
				return err
			}
			activity.Refs["campaign"] = wire.Ref{RemoteID: rec.RemoteID}
			actBucket.Add(wire.TypeCampaignActivity, activity)
			if err := e.storePage(ctx, wire.TypeCampaignActivity, nil, actBucket); err != nil {
				return err
			}
		}
	}
	return nil
}

// ImportCampaignStats refreshes analytics counters from the summary-report
// endpoint. Campaigns reported there have been sent, so their status moves
// to DONE as part of the same upsert.
func (e *Engine) ImportCampaignStats(ctx context.Context) error {
	url := e.client.URL("/reports/summary_reports/email_campaign_summaries", "", "")
	seen := map[string]struct{}{}
	return e.fetcher.PagesFrom(ctx, wire.TypeEmailCampaign, url, func(recs []*wire.Record, _ wire.Bucket) error {
		page := make([]*wire.Record, 0, len(recs))
		for _, rec := range recs {
			if _, dup := seen[rec.RemoteID]; dup {
				continue
			}
			seen[rec.RemoteID] = struct{}{}
			page = append(page, rec)
		}
		return e.storePage(ctx, wire.TypeEmailCampaign, page, nil)
	})
}

// reconcile overwrites local state with a remote response body, keeping the
// local id, and stores any embedded related rows.
func (e *Engine) reconcile(ctx context.Context, entity string, raw json.RawMessage, localID int64) error {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding %s response: %w", entity, err)
	}
	rec, bucket, err := wire.Deserialize(entity, data, localID)
	if err != nil {
		return err
	}
	return e.storePage(ctx, entity, []*wire.Record{rec}, bucket)
}

func (e *Engine) fetchObject(ctx context.Context, url string) (map[string]any, error) {
	raw, err := e.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
