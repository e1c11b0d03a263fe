package wire

import "time"

// Serialize converts a record into a wire object. The selection picks
// editable fields (request bodies), readonly fields, or both. Multi-reference
// and collection fields are computed only when the record is persisted
// locally; unsaved records serialize them as empty lists. The entity's hook
// runs last. Serialize is a pure function of the record and its persistence
// state.
func Serialize(rec *Record, sel Selection) (map[string]any, error) {
	ent, err := Lookup(rec.Entity)
	if err != nil {
		return nil, err
	}

	data := map[string]any{}
	for _, f := range ent.Fields(sel) {
		switch f.Kind {
		case Scalar:
			v := rec.Scalars[f.Name]
			if f.Time {
				switch t := v.(type) {
				case time.Time:
					v = FormatTime(t)
				case *time.Time:
					if t != nil {
						v = FormatTime(*t)
					} else {
						v = nil
					}
				}
			}
			data[f.wireKey()] = v

		case Reference:
			if ref, ok := rec.Refs[f.Name]; ok && ref.RemoteID != "" {
				data[f.wireKey()] = ref.RemoteID
			} else {
				data[f.wireKey()] = nil
			}

		case MultiReference:
			ids := []string{}
			if rec.Persisted() {
				for _, ref := range rec.Multi[f.Name] {
					if ref.RemoteID != "" {
						ids = append(ids, ref.RemoteID)
					}
				}
			}
			data[f.wireKey()] = ids

		case Collection:
			rows := []map[string]any{}
			if rec.Persisted() {
				for _, child := range rec.Children[f.Name] {
					row, err := Serialize(child, sel)
					if err != nil {
						return nil, err
					}
					rows = append(rows, row)
				}
			}
			data[f.wireKey()] = rows
		}
	}

	if sel != SelectEditable && ent.WireID != "" && rec.RemoteID != "" {
		data[ent.WireID] = rec.RemoteID
	}

	if ent.Hook != nil {
		data = ent.Hook(rec, data)
	}
	return data, nil
}
