package domain

import "time"

// JobStatus represents the lifecycle state of an extraction job.
// A job starts as JobStatusProcessing and ends in exactly one of
// JobStatusCompleted or JobStatusFailed; terminal states never transition.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Progress checkpoints published while a job is processing. Progress is
// monotonically non-decreasing for a given job.
const (
	ProgressCreated   = 0
	ProgressSampled   = 30
	ProgressDetected  = 60
	ProgressDeduped   = 80
	ProgressCompleted = 100
)

// Frame is one sampled still image from the source video.
// Immutable once produced.
type Frame struct {
	ID        string  `json:"frame_id"`
	Timestamp float64 `json:"timestamp"`
	Image     []byte  `json:"-"`
	ImageB64  string  `json:"frame_data,omitempty"`
}

// Detection is one candidate item observed in one frame, before
// deduplication. Produced only by the item detector.
type Detection struct {
	FrameID        string  `json:"frame_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Confidence     float64 `json:"confidence"`
	Condition      string  `json:"condition"`
	EstimatedValue float64 `json:"estimated_value"`
	Description    string  `json:"description"`
	Timestamp      float64 `json:"timestamp"`
}

// Item is a deduplicated, user-facing sellable entity. Items become mutable
// through manual corrections once the owning job completes.
type Item struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	EstimatedPrice float64 `json:"estimated_price"`
	Condition      string  `json:"condition"`
	Description    string  `json:"description"`
	FrameID        string  `json:"frame_id"`
	Timestamp      float64 `json:"timestamp"`
	Confidence     float64 `json:"confidence"`
	ImageURL       string  `json:"image_url,omitempty"`
}

// Job is the unit of work tracked end to end for one uploaded video.
type Job struct {
	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	SourceName string    `json:"filename"`
	Frames     []Frame   `json:"frames"`
	Items      []Item    `json:"items"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
