package domain

import "time"

// ItemRecord is the persisted form of a finalized item. Persistence is
// best-effort: a job keeps its in-memory items even when their records
// fail to write.
type ItemRecord struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	JobID          string    `gorm:"type:text;not null;index:idx_items_job" json:"job_id"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	Category       string    `gorm:"type:text;index:idx_items_category" json:"category"`
	Condition      string    `gorm:"type:text" json:"condition"`
	Description    string    `gorm:"type:text" json:"description"`
	EstimatedPrice float64   `json:"estimated_price"`
	Confidence     float64   `json:"confidence"`
	FrameTimestamp float64   `json:"frame_timestamp"`
	ImageURL       string    `gorm:"type:text" json:"image_url,omitempty"`
	ImageWidth     int       `json:"image_width,omitempty"`
	ImageHeight    int       `json:"image_height,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for ItemRecord.
func (ItemRecord) TableName() string {
	return "extracted_items"
}
