package wire

import "fmt"

// Deserialize converts a wire object into a record plus a bucket of related
// records whose parent-side foreign keys cannot be resolved yet.
//
// Single references are folded into the record directly (the parent side
// already knows the identifier). Multi-reference values become identity-less
// join prototypes in the bucket, collection values become child records in
// the bucket carrying the parent's remote id; both wait for the identifier
// remap after the parent batch commits. Everything not declared in the
// schema is dropped.
//
// knownLocalID preserves an existing local identifier; zero leaves assignment
// to the storage layer.
func Deserialize(entity string, raw map[string]any, knownLocalID int64) (*Record, Bucket, error) {
	ent, err := Lookup(entity)
	if err != nil {
		return nil, nil, err
	}

	data := make(map[string]any, len(raw))
	for k, v := range raw {
		data[k] = v
	}

	rec := NewRecord(entity)
	rec.LocalID = knownLocalID
	bucket := Bucket{}

	// Rename the entity-specific remote-identifier key to the canonical
	// field. Pure value types have no independent identity and skip this.
	if ent.WireID != "" {
		v, ok := data[ent.WireID]
		if !ok {
			return nil, nil, fmt.Errorf("%s row is missing %q", entity, ent.WireID)
		}
		rec.RemoteID = fmt.Sprint(v)
		delete(data, ent.WireID)
	}

	// Cleaning hooks run before field restriction so they may read wire keys
	// that are not declared fields.
	for name, clean := range ent.Cleaners {
		if v, ok := clean(data); ok {
			data[name] = v
		}
	}

	for _, f := range ent.Fields(SelectAll) {
		v, ok := fieldValue(data, f)
		if !ok {
			continue
		}

		switch f.Kind {
		case Scalar:
			if f.Time {
				if s, ok := v.(string); ok {
					t, err := ParseTime(s)
					if err != nil {
						return nil, nil, fmt.Errorf("%s.%s: %w", entity, f.Name, err)
					}
					v = t
				}
			}
			rec.Scalars[f.Name] = v

		case Reference:
			if s, ok := v.(string); ok && s != "" {
				rec.Refs[f.Name] = Ref{RemoteID: s}
			}

		case MultiReference:
			joins, err := joinPrototypes(ent, f, rec.RemoteID, v)
			if err != nil {
				return nil, nil, err
			}
			bucket.Add(f.Join, joins...)

		case Collection:
			rows, ok := v.([]any)
			if !ok {
				continue
			}
			for _, row := range rows {
				childData, ok := row.(map[string]any)
				if !ok {
					return nil, nil, fmt.Errorf("%s.%s: expected object rows", entity, f.Name)
				}
				child, childBucket, err := Deserialize(f.Related, childData, 0)
				if err != nil {
					return nil, nil, err
				}
				child.Refs[f.ParentRef] = Ref{RemoteID: rec.RemoteID}
				bucket.Add(f.Related, child)
				bucket.Merge(childBucket)
			}
		}
	}

	return rec, bucket, nil
}

// joinPrototypes builds identity-less association records from a list of
// remote ids. Both sides are remote ids at this point; the remap resolves
// them to local identifiers once the parent batch is committed.
func joinPrototypes(parent *Entity, f Field, parentRemoteID string, v any) ([]*Record, error) {
	joinEnt, err := Lookup(f.Join)
	if err != nil {
		return nil, err
	}
	selfField, ok := joinEnt.refFieldFor(parent.Type)
	if !ok {
		return nil, fmt.Errorf("join %s has no side for %s", f.Join, parent.Type)
	}
	otherField, ok := joinEnt.refFieldFor(f.Related)
	if !ok {
		return nil, fmt.Errorf("join %s has no side for %s", f.Join, f.Related)
	}

	ids, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s.%s: expected a list of ids", parent.Type, f.Name)
	}

	joins := make([]*Record, 0, len(ids))
	for _, id := range ids {
		s, ok := id.(string)
		if !ok || s == "" {
			continue
		}
		join := NewRecord(f.Join)
		join.Refs[selfField] = Ref{RemoteID: parentRemoteID}
		join.Refs[otherField] = Ref{RemoteID: s}
		joins = append(joins, join)
	}
	return joins, nil
}

// fieldValue prefers the canonical name (set by cleaners) over the wire key.
func fieldValue(data map[string]any, f Field) (any, bool) {
	if v, ok := data[f.Name]; ok {
		return v, true
	}
	if f.Wire != "" {
		if v, ok := data[f.Wire]; ok {
			return v, true
		}
	}
	return nil, false
}
