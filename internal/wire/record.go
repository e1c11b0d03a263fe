package wire

import "time"

// TimeFormat is the wire timestamp format used by the remote service.
const TimeFormat = "2006-01-02T15:04:05Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime accepts the canonical wire format plus the fractional-second
// variants some endpoints emit.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Ref points at a related record in one or both identifier spaces. LocalID is
// zero until the target is known locally, RemoteID is empty until the target
// exists remotely.
type Ref struct {
	LocalID  int64
	RemoteID string
}

// Record is the generic in-flight representation of one entity row moving
// between the local store and the wire. The two identifier spaces stay
// separate: LocalID is assigned by local storage and never sent upstream,
// RemoteID is assigned by the remote service and never reassigned.
type Record struct {
	Entity   string
	LocalID  int64
	RemoteID string
	Scalars  map[string]any
	Refs     map[string]Ref
	Multi    map[string][]Ref
	Children map[string][]*Record
}

func NewRecord(entity string) *Record {
	return &Record{
		Entity:  entity,
		Scalars: map[string]any{},
		Refs:    map[string]Ref{},
	}
}

// Persisted reports whether local storage has assigned an identifier.
func (r *Record) Persisted() bool {
	return r.LocalID != 0
}

// Scalar returns a scalar value, nil when absent.
func (r *Record) Scalar(name string) any {
	return r.Scalars[name]
}

// String returns a scalar coerced to string, "" when absent or non-string.
func (r *Record) String(name string) string {
	s, _ := r.Scalars[name].(string)
	return s
}

// Time returns a scalar time value if present.
func (r *Record) Time(name string) (time.Time, bool) {
	t, ok := r.Scalars[name].(time.Time)
	return t, ok
}

// AddChild appends to a reverse-collection field.
func (r *Record) AddChild(field string, child *Record) {
	if r.Children == nil {
		r.Children = map[string][]*Record{}
	}
	r.Children[field] = append(r.Children[field], child)
}

// AddMulti appends to a multi-reference field.
func (r *Record) AddMulti(field string, ref Ref) {
	if r.Multi == nil {
		r.Multi = map[string][]Ref{}
	}
	r.Multi[field] = append(r.Multi[field], ref)
}

// Bucket groups partially-built related records by entity type. It is
// produced during deserialization and consumed by the identifier remapper
// once the parent batch has been committed.
type Bucket map[string][]*Record

func (b Bucket) Add(entity string, recs ...*Record) {
	b[entity] = append(b[entity], recs...)
}

// Merge concatenates another bucket's lists into this one.
func (b Bucket) Merge(other Bucket) {
	for entity, recs := range other {
		b[entity] = append(b[entity], recs...)
	}
}
