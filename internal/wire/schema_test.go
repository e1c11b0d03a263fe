package wire

import "testing"

// The registry is hand-maintained; these checks keep its cross-references
// consistent.
func TestRegistryIntegrity(t *testing.T) {
	for name, ent := range Registry {
		if ent.Type != name {
			t.Errorf("%s: Type field says %q", name, ent.Type)
		}
		for _, f := range ent.Fields(SelectAll) {
			switch f.Kind {
			case Reference:
				if _, err := Lookup(f.Related); err != nil {
					t.Errorf("%s.%s: %v", name, f.Name, err)
				}
			case MultiReference:
				if _, err := Lookup(f.Related); err != nil {
					t.Errorf("%s.%s: %v", name, f.Name, err)
				}
				join, err := Lookup(f.Join)
				if err != nil {
					t.Errorf("%s.%s: %v", name, f.Name, err)
					continue
				}
				if _, ok := join.refFieldFor(name); !ok {
					t.Errorf("join %s has no reference back to %s", f.Join, name)
				}
				if _, ok := join.refFieldFor(f.Related); !ok {
					t.Errorf("join %s has no reference to %s", f.Join, f.Related)
				}
			case Collection:
				child, err := Lookup(f.Related)
				if err != nil {
					t.Errorf("%s.%s: %v", name, f.Name, err)
					continue
				}
				if f.ParentRef == "" {
					t.Errorf("%s.%s: collection without a parent ref", name, f.Name)
					continue
				}
				pf, ok := child.FieldByName(f.ParentRef)
				if !ok {
					t.Errorf("%s.%s: child %s has no field %q", name, f.Name, f.Related, f.ParentRef)
					continue
				}
				if pf.Kind != Reference || pf.Related != name {
					t.Errorf("%s.%s: parent ref %s.%s does not point back", name, f.Name, f.Related, f.ParentRef)
				}
			}
		}
	}
}

func TestCollectionEntitiesHaveEndpoints(t *testing.T) {
	for name, ent := range Registry {
		if ent.CollectionKey != "" && ent.Endpoint == "" {
			t.Errorf("%s declares a collection key but no endpoint", name)
		}
	}
}
