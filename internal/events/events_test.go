package events

import (
	"encoding/json"
	"testing"
)

func TestSyncRequestWireShape(t *testing.T) {
	data, err := json.Marshal(SyncRequest{
		Entity:   "contact",
		Op:       OpDelete,
		LocalID:  7,
		RemoteID: "22222222-2222-2222-2222-222222222222",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["entity"] != "contact" || got["op"] != "delete" || got["local_id"] != float64(7) {
		t.Fatalf("payload = %s", data)
	}

	// Remote id is optional: create/update requests omit it.
	data, _ = json.Marshal(SyncRequest{Entity: "contact_list", Op: OpCreate, LocalID: 1})
	var slim map[string]any
	json.Unmarshal(data, &slim)
	if _, has := slim["remote_id"]; has {
		t.Fatalf("payload = %s", data)
	}
}
