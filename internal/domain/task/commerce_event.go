package task

import "ugc/exporter/internal/domain"

// CommerceEventTask carries one storefront event through the queue to
// the forwarding workers.
type CommerceEventTask struct {
	Event      domain.CommerceEvent `json:"event"`
	RetryCount int                  `json:"retry_count"`
	Error      string               `json:"error,omitempty"` // Error message from the last failed attempt
}

func (t *CommerceEventTask) TaskType() string {
	return "CommerceEventTask"
}

func (t *CommerceEventTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
