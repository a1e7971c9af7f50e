package domain

const (
	// VideoTranslationQueue is the durable queue consumed by the translation worker
	VideoTranslationQueue = "video_translation"

	// JobStatusProcessingStarted is returned to the caller once a job is queued
	JobStatusProcessingStarted = "Processing started"
)

// JobRequest is the caller-supplied part of a job.
type JobRequest struct {
	UserID      any
	StartMinute int
	EndMinute   int
	VideoURL    string
}

// Job is the message published to the translation queue. RequestID is the
// correlation id a caller later uses to poll the status service.
type Job struct {
	RequestID   string `json:"request_id"`
	UserID      any    `json:"user_id"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	VideoURL    string `json:"video_url"`
}
