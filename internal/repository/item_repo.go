package repository

import (
	"context"

	"github.com/marcus/declutter/internal/domain"
	"gorm.io/gorm"
)

// ItemRepository handles persisted item records.
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates an ItemRepository bound to db.
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item record.
func (r *ItemRepository) Create(ctx context.Context, record *domain.ItemRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByJob returns all records persisted for a job, oldest first.
func (r *ItemRepository) ListByJob(ctx context.Context, jobID string) ([]domain.ItemRecord, error) {
	var records []domain.ItemRecord
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteByJob removes all records persisted for a job.
func (r *ItemRepository) DeleteByJob(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&domain.ItemRecord{}).Error
}
