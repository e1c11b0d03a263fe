package wire

import "fmt"

// Kind classifies how a field crosses the wire.
type Kind int

const (
	// Scalar is a plain value (timestamps use the wire timestamp format).
	Scalar Kind = iota
	// Reference is a single related entity, serialized as its remote id.
	Reference
	// MultiReference is an unordered set of related entities, serialized as a
	// list of remote ids. The association rows carry no identity of their own.
	MultiReference
	// Collection is a set of dependent entities owned by this one, serialized
	// as recursively serialized records.
	Collection
)

// Selection picks which schema fields an operation touches.
type Selection int

const (
	SelectEditable Selection = iota
	SelectReadonly
	SelectAll
)

// CleanFunc derives a cleaned field value from a raw wire object. It runs
// before field restriction, so it may read keys that are not declared fields.
// The second return reports whether a value was produced.
type CleanFunc func(data map[string]any) (any, bool)

// SerializeHook lets an entity post-process the generic serialization. It
// always runs last.
type SerializeHook func(rec *Record, data map[string]any) map[string]any

// Field describes one declared field of an entity.
type Field struct {
	Name string // canonical local field name
	Wire string // wire key, defaults to Name
	Kind Kind
	Time bool // scalar carried as a wire timestamp

	Related   string // relation kinds: target entity type
	Join      string // MultiReference: association entity type
	ParentRef string // Collection: the child's reference field back to this entity
}

func (f Field) wireKey() string {
	if f.Wire != "" {
		return f.Wire
	}
	return f.Name
}

// Entity is the declarative schema entry for one synchronizable type.
type Entity struct {
	Type          string
	Endpoint      string
	WireID        string // remote-identifier wire key; "" for identity-less value types
	CollectionKey string // key of the rows array in list responses
	IncludeQuery  string // value of the ?include= GET parameter

	Editable []Field
	Readonly []Field

	Cleaners map[string]CleanFunc
	Hook     SerializeHook
}

// Fields returns the declared fields for a selection, editable first.
func (e *Entity) Fields(sel Selection) []Field {
	switch sel {
	case SelectEditable:
		return e.Editable
	case SelectReadonly:
		return e.Readonly
	default:
		all := make([]Field, 0, len(e.Editable)+len(e.Readonly))
		all = append(all, e.Editable...)
		all = append(all, e.Readonly...)
		return all
	}
}

// FieldByName looks a declared field up across both selections.
func (e *Entity) FieldByName(name string) (Field, bool) {
	for _, f := range e.Fields(SelectAll) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// refFieldFor returns the name of this entity's reference field pointing at
// the given entity type. Used to orient the two sides of a join row.
func (e *Entity) refFieldFor(target string) (string, bool) {
	for _, f := range e.Fields(SelectAll) {
		if f.Kind == Reference && f.Related == target {
			return f.Name, true
		}
	}
	return "", false
}

// Lookup resolves an entity type against the registry.
func Lookup(entityType string) (*Entity, error) {
	ent, ok := Registry[entityType]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	return ent, nil
}
