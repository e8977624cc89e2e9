package mq

import "time"

// Change types
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// ChangeEvent 行级变更通知。只作为客户端重新拉取的触发信号，不携带完整行。
type ChangeEvent struct {
	TraceID         string            `json:"trace_id,omitempty"`
	Table           string            `json:"table"`
	Type            string            `json:"type"`
	Keys            map[string]string `json:"keys"`
	CommitTimestamp time.Time         `json:"commit_timestamp"`
}
