package task

// FeedChunkRetryTask requeues one feed page whose upload failed.
type FeedChunkRetryTask struct {
	Page       int    `json:"page"`        // Failed page number
	RetryCount int    `json:"retry_count"` // Number of attempts so far
	Error      string `json:"error"`       // Error message from the original failure
}

func (t *FeedChunkRetryTask) TaskType() string {
	return "FeedChunkRetryTask"
}

func (t *FeedChunkRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
