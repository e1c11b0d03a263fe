package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/sync"
	"github.com/conexio/contactsync/internal/wire"
)

// tableSpec maps one entity onto its table. Scalar record fields share their
// column names; reference fields map onto foreign-key columns. Identity-less
// entities name a parent reference whose rows are replaced wholesale.
type tableSpec struct {
	table   string
	scalars []string
	refs    map[string]string
	parent  string // identity-less rows only: ref field scoping replacement
}

var tableSpecs = map[string]tableSpec{
	wire.TypeContactList: {
		table:   "contact_lists",
		scalars: []string{"name", "description", "favorite", "created_at", "updated_at"},
	},
	wire.TypeCustomField: {
		table:   "custom_fields",
		scalars: []string{"label", "name", "type", "created_at", "updated_at"},
	},
	wire.TypeContact: {
		table: "contacts",
		scalars: []string{
			"email", "first_name", "last_name", "job_title", "company_name",
			"permission_to_send", "create_source", "update_source",
			"created_at", "updated_at",
			"opt_out_source", "opt_out_date", "opt_out_reason",
		},
	},
	wire.TypeContactNote: {
		table:   "contact_notes",
		scalars: []string{"content", "created_at"},
		refs:    map[string]string{"contact": "contact_id"},
	},
	wire.TypeContactPhoneNumber: {
		table:   "contact_phone_numbers",
		scalars: []string{"kind", "phone_number"},
		refs:    map[string]string{"contact": "contact_id"},
	},
	wire.TypeContactStreetAddress: {
		table:   "contact_street_addresses",
		scalars: []string{"kind", "street", "city", "state", "postal_code", "country"},
		refs:    map[string]string{"contact": "contact_id"},
	},
	wire.TypeContactCustomField: {
		table:   "contact_custom_fields",
		scalars: []string{"value"},
		refs:    map[string]string{"contact": "contact_id", "custom_field": "custom_field_id"},
		parent:  "contact",
	},
	wire.TypeListMembership: {
		table:  "contact_list_memberships",
		refs:   map[string]string{"contact": "contact_id", "contact_list": "list_id"},
		parent: "contact",
	},
	wire.TypeEmailCampaign: {
		table: "email_campaigns",
		scalars: []string{
			"name", "current_status", "scheduled_datetime",
			"created_at", "updated_at",
			"sends", "opens", "clicks", "forwards", "optouts", "abuse", "bounces", "not_opened",
		},
	},
	wire.TypeCampaignActivity: {
		table: "campaign_activities",
		scalars: []string{
			"role", "from_name", "from_email", "reply_to_email",
			"subject", "preheader", "html_content", "format_type",
		},
		refs: map[string]string{"campaign": "campaign_id"},
	},
	wire.TypeActivityContactList: {
		table:  "activity_contact_lists",
		refs:   map[string]string{"campaign_activity": "activity_id", "contact_list": "list_id"},
		parent: "campaign_activity",
	},
}

// Store is the pgx-backed record store behind the sync engine.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewStore(pool *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{pool: pool, log: log}
}

var _ sync.Store = (*Store)(nil)

func (s *Store) Begin(ctx context.Context) (sync.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &StoreTx{tx: tx}, nil
}

func (s *Store) RemoteIDs(ctx context.Context, entity string) ([]string, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT api_id::text FROM %s WHERE api_id IS NOT NULL ORDER BY id", spec.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StoreTx scopes one unit of work, one page during imports.
type StoreTx struct {
	tx pgx.Tx
}

func (t *StoreTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *StoreTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// BulkUpsert writes records keyed on the remote id, filling local ids back
// in. Records already carrying a local id update that row instead. Only
// columns present on a record are touched, so partial records leave the rest
// of the row alone. Child records whose parent reference never resolved
// locally are skipped.
func (t *StoreTx) BulkUpsert(ctx context.Context, entity string, recs []*wire.Record) error {
	spec, err := specFor(entity)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	queued := make([]*wire.Record, 0, len(recs))
	for _, rec := range recs {
		sql, args, ok, err := upsertSQL(spec, rec)
		if err != nil {
			return fmt.Errorf("%s: %w", entity, err)
		}
		if !ok {
			continue
		}
		batch.Queue(sql, args...)
		queued = append(queued, rec)
	}
	if len(queued) == 0 {
		return nil
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for _, rec := range queued {
		if err := br.QueryRow().Scan(&rec.LocalID); err != nil {
			return fmt.Errorf("upserting %s: %w", entity, err)
		}
	}
	return br.Close()
}

// ReplaceLinks swaps identity-less rows wholesale: every row belonging to a
// parent seen in the batch is deleted, then the batch's resolved rows are
// inserted. Rows with an unresolved reference are dropped.
func (t *StoreTx) ReplaceLinks(ctx context.Context, entity string, recs []*wire.Record) error {
	spec, err := specFor(entity)
	if err != nil {
		return err
	}
	if spec.parent == "" {
		return fmt.Errorf("%s rows are not replaceable links", entity)
	}

	parentCol := spec.refs[spec.parent]
	parents := make([]int64, 0, len(recs))
	seen := map[int64]struct{}{}
	for _, rec := range recs {
		id := rec.Refs[spec.parent].LocalID
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			parents = append(parents, id)
		}
	}
	if len(parents) == 0 {
		return nil
	}

	if _, err := t.tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)", spec.table, parentCol),
		parents,
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		cols, args, ok := linkRow(spec, rec)
		if !ok {
			continue
		}
		placeholders := make([]string, len(args))
		for i := range args {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		batch.Queue(fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
			spec.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		), args...)
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *StoreTx) RemoteToLocalIDs(ctx context.Context, entity string, remoteIDs []string) (map[string]int64, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}

	apiIDs := make([]uuid.UUID, 0, len(remoteIDs))
	for _, s := range remoteIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		apiIDs = append(apiIDs, id)
	}
	if len(apiIDs) == 0 {
		return map[string]int64{}, nil
	}

	rows, err := t.tx.Query(ctx,
		fmt.Sprintf("SELECT api_id::text, id FROM %s WHERE api_id = ANY($1)", spec.table),
		apiIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64, len(apiIDs))
	for rows.Next() {
		var remoteID string
		var localID int64
		if err := rows.Scan(&remoteID, &localID); err != nil {
			return nil, err
		}
		out[remoteID] = localID
	}
	return out, rows.Err()
}

// upsertSQL builds one per-record statement returning the row id. The third
// return is false when the record cannot be stored (unresolved parent).
func upsertSQL(spec tableSpec, rec *wire.Record) (string, []any, bool, error) {
	var cols []string
	var args []any

	for _, name := range spec.scalars {
		v, ok := rec.Scalars[name]
		if !ok {
			continue
		}
		cols = append(cols, name)
		args = append(args, v)
	}
	for field, col := range spec.refs {
		ref, ok := rec.Refs[field]
		if !ok || ref.LocalID == 0 {
			// Children always belong to a resolved parent.
			return "", nil, false, nil
		}
		cols = append(cols, col)
		args = append(args, ref.LocalID)
	}

	if rec.LocalID != 0 {
		sets := make([]string, len(cols))
		for i, col := range cols {
			sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
		}
		if rec.RemoteID != "" {
			apiID, err := uuid.Parse(rec.RemoteID)
			if err != nil {
				return "", nil, false, fmt.Errorf("remote id %q: %w", rec.RemoteID, err)
			}
			sets = append(sets, fmt.Sprintf("api_id = $%d", len(args)+1))
			args = append(args, apiID)
		}
		args = append(args, rec.LocalID)
		return fmt.Sprintf(
			"UPDATE %s SET %s WHERE id = $%d RETURNING id",
			spec.table, strings.Join(sets, ", "), len(args),
		), args, true, nil
	}

	if rec.RemoteID == "" {
		placeholders := make([]string, len(args))
		for i := range args {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		return fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			spec.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		), args, true, nil
	}

	apiID, err := uuid.Parse(rec.RemoteID)
	if err != nil {
		return "", nil, false, fmt.Errorf("remote id %q: %w", rec.RemoteID, err)
	}
	cols = append(cols, "api_id")
	args = append(args, apiID)

	placeholders := make([]string, len(args))
	sets := make([]string, 0, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (api_id) DO UPDATE SET %s RETURNING id",
		spec.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(sets, ", "),
	), args, true, nil
}

func linkRow(spec tableSpec, rec *wire.Record) ([]string, []any, bool) {
	var cols []string
	var args []any
	for field, col := range spec.refs {
		ref := rec.Refs[field]
		if ref.LocalID == 0 {
			return nil, nil, false
		}
		cols = append(cols, col)
		args = append(args, ref.LocalID)
	}
	for _, name := range spec.scalars {
		if v, ok := rec.Scalars[name]; ok {
			cols = append(cols, name)
			args = append(args, v)
		}
	}
	return cols, args, true
}

func specFor(entity string) (tableSpec, error) {
	spec, ok := tableSpecs[entity]
	if !ok {
		return tableSpec{}, fmt.Errorf("no table for entity %q", entity)
	}
	return spec, nil
}
