package wire

import (
	"context"
	"fmt"
)

// Resolver looks up local identifiers for remote ids of one entity type.
// Missing ids are simply absent from the result map.
type Resolver func(ctx context.Context, entity string, remoteIDs []string) (map[string]int64, error)

// Remap fills the local side of every reference in the bucket after the
// parent batch has been committed. Parents that carry both identifiers seed
// the lookup; anything still unresolved is fetched in one resolver call per
// referenced entity type. References whose target is unknown locally keep a
// zero LocalID so the storage layer can skip them.
func Remap(ctx context.Context, parents []*Record, bucket Bucket, resolve Resolver) error {
	known := map[string]map[string]int64{}
	for _, p := range parents {
		if p.RemoteID == "" || p.LocalID == 0 {
			continue
		}
		m := known[p.Entity]
		if m == nil {
			m = map[string]int64{}
			known[p.Entity] = m
		}
		m[p.RemoteID] = p.LocalID
	}

	// First pass: resolve from the parent batch, collect the rest.
	pending := map[string]map[string]struct{}{}
	for entity, recs := range bucket {
		ent, err := Lookup(entity)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			for _, f := range ent.Fields(SelectAll) {
				if f.Kind != Reference {
					continue
				}
				ref, ok := rec.Refs[f.Name]
				if !ok || ref.LocalID != 0 || ref.RemoteID == "" {
					continue
				}
				if id, ok := known[f.Related][ref.RemoteID]; ok {
					ref.LocalID = id
					rec.Refs[f.Name] = ref
					continue
				}
				ids := pending[f.Related]
				if ids == nil {
					ids = map[string]struct{}{}
					pending[f.Related] = ids
				}
				ids[ref.RemoteID] = struct{}{}
			}
		}
	}

	for related, ids := range pending {
		remoteIDs := make([]string, 0, len(ids))
		for id := range ids {
			remoteIDs = append(remoteIDs, id)
		}
		resolved, err := resolve(ctx, related, remoteIDs)
		if err != nil {
			return fmt.Errorf("resolving %s ids: %w", related, err)
		}
		m := known[related]
		if m == nil {
			m = map[string]int64{}
			known[related] = m
		}
		for remoteID, localID := range resolved {
			m[remoteID] = localID
		}
	}

	// Second pass: fill from the combined lookup.
	for entity, recs := range bucket {
		ent, _ := Lookup(entity)
		for _, rec := range recs {
			for _, f := range ent.Fields(SelectAll) {
				if f.Kind != Reference {
					continue
				}
				ref, ok := rec.Refs[f.Name]
				if !ok || ref.LocalID != 0 || ref.RemoteID == "" {
					continue
				}
				if id, ok := known[f.Related][ref.RemoteID]; ok {
					ref.LocalID = id
					rec.Refs[f.Name] = ref
				}
			}
		}
	}
	return nil
}
