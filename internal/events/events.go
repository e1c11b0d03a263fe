package events

import "context"

// Sync operations a worker can be asked to perform. The schedule, unschedule
// and rename operations apply to campaigns only.
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpMemberships = "add_list_memberships"
	OpSchedule    = "schedule"
	OpUnschedule  = "unschedule"
	OpRename      = "rename"
)

// SyncRequest asks the worker to push one local record's state out. Enqueue
// is explicit at the call sites that mutate records; delivery order across
// requests for the same record is not guaranteed.
type SyncRequest struct {
	Entity   string `json:"entity"`
	Op       string `json:"op"`
	LocalID  int64  `json:"local_id"`
	RemoteID string `json:"remote_id,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, req SyncRequest) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(SyncRequest)) error
}
