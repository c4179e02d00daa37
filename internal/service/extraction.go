package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/declutter/internal/domain"
	"github.com/marcus/declutter/internal/logger"
	"github.com/marcus/declutter/internal/store"
	"github.com/marcus/declutter/internal/storage"
	_ "golang.org/x/image/webp"
)

// FrameSource produces frames from raw video bytes.
type FrameSource interface {
	SampleFrames(ctx context.Context, video []byte) ([]domain.Frame, error)
}

// Detector returns detection candidates for one frame.
type Detector interface {
	DetectItems(ctx context.Context, frame domain.Frame) ([]domain.Detection, error)
}

// ItemWriter persists finalized item records.
type ItemWriter interface {
	Create(ctx context.Context, record *domain.ItemRecord) error
}

// ExtractionService owns the extraction job lifecycle: it creates jobs,
// drives the sample-detect-dedup pipeline in the background, publishes
// progress checkpoints, and exposes the manual correction operations.
type ExtractionService struct {
	store    *store.Store
	sampler  FrameSource
	detector Detector
	storage  storage.ObjectStorage
	items    ItemWriter
	logger   *logger.Logger
	workers  int
	timeout  time.Duration
}

// ExtractionConfig holds configuration for the extraction service.
type ExtractionConfig struct {
	Workers    int           // bounded intra-job detection concurrency
	JobTimeout time.Duration // hard deadline for one job's pipeline
}

// NewExtractionService creates the extraction service. objectStorage and
// items may be nil, in which case finalized items are kept in memory only.
func NewExtractionService(
	jobs *store.Store,
	sampler FrameSource,
	detector Detector,
	objectStorage storage.ObjectStorage,
	items ItemWriter,
	log *logger.Logger,
	cfg *ExtractionConfig,
) *ExtractionService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ExtractionService{
		store:    jobs,
		sampler:  sampler,
		detector: detector,
		storage:  objectStorage,
		items:    items,
		logger:   log,
		workers:  workers,
		timeout:  timeout,
	}
}

// Submit registers a new job for the uploaded video and starts its pipeline
// in the background. It returns the job ID as soon as the job record exists;
// callers poll GetStatus until the job reaches a terminal state.
func (s *ExtractionService) Submit(ctx context.Context, video []byte, filename string) (string, error) {
	job := s.store.Create(filename)

	s.logger.WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		"filename":        filename,
		logger.FieldSize:  len(video),
	}).Info("Video accepted, starting extraction")

	go s.process(job.ID, video)

	return job.ID, nil
}

// process runs the pipeline for one job. It is detached from the submitting
// request: cancellation comes only from the per-job timeout.
func (s *ExtractionService) process(jobID string, video []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = logger.SetJobID(ctx, jobID)
	ctx = logger.SetComponent(ctx, "pipeline")

	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, jobID, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	start := time.Now()

	frames, err := s.sampler.SampleFrames(ctx, video)
	if err != nil {
		s.fail(ctx, jobID, err)
		return
	}
	if err := s.store.Update(jobID, func(job *domain.Job) error {
		job.Frames = frames
		job.Progress = domain.ProgressSampled
		return nil
	}); err != nil {
		logger.CtxWarn(ctx, "Job vanished during sampling: %v", err)
		return
	}
	logger.CtxInfo(ctx, "Sampled %d frames", len(frames))

	detections, err := s.detectAll(ctx, frames)
	if err != nil {
		s.fail(ctx, jobID, err)
		return
	}
	if err := s.store.Update(jobID, func(job *domain.Job) error {
		job.Progress = domain.ProgressDetected
		return nil
	}); err != nil {
		return
	}
	logger.CtxInfo(ctx, "Detected %d candidate items across %d frames", len(detections), len(frames))

	items := DeduplicateDetections(detections)
	if err := s.store.Update(jobID, func(job *domain.Job) error {
		job.Items = items
		job.Progress = domain.ProgressDeduped
		return nil
	}); err != nil {
		return
	}

	imageURLs := s.persistItems(ctx, jobID, frames, items)

	if err := s.store.Update(jobID, func(job *domain.Job) error {
		for i := range job.Items {
			if url, ok := imageURLs[job.Items[i].ID]; ok {
				job.Items[i].ImageURL = url
			}
		}
		job.Progress = domain.ProgressCompleted
		job.Status = domain.JobStatusCompleted
		return nil
	}); err != nil {
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(items),
	}).Info(ctx, "Extraction completed")
}

// detectAll fans frames out to the detector through a bounded worker pool.
// Results are written into an index-keyed slice so the flattened output is
// in frame order regardless of scheduling; dedup tie-breaking depends on it.
// Per-frame failures are absorbed; the job fails only when every frame hit
// a transport error.
func (s *ExtractionService) detectAll(ctx context.Context, frames []domain.Frame) ([]domain.Detection, error) {
	results := make([][]domain.Detection, len(frames))
	var transportFailures int64

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range frames {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				atomic.AddInt64(&transportFailures, 1)
				return
			}

			dets, err := s.detector.DetectItems(ctx, frames[i])
			if err != nil {
				var transportErr *InferenceTransportError
				if errors.As(err, &transportErr) {
					atomic.AddInt64(&transportFailures, 1)
				}
				logger.CtxWarn(ctx, "Detection failed for %s, skipping frame: %v", frames[i].ID, err)
				return
			}
			results[i] = dets
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection aborted: %w", err)
	}
	if int(transportFailures) == len(frames) && len(frames) > 0 {
		return nil, fmt.Errorf("inference service unreachable: all %d frames failed", len(frames))
	}

	var detections []domain.Detection
	for _, dets := range results {
		detections = append(detections, dets...)
	}
	return detections, nil
}

// persistItems uploads each item's representative frame and writes its
// record. Best-effort: a failed item is logged and kept in memory without a
// persisted reference. Returns the image URL per item ID for the successes.
func (s *ExtractionService) persistItems(ctx context.Context, jobID string, frames []domain.Frame, items []domain.Item) map[string]string {
	urls := make(map[string]string, len(items))
	if s.storage == nil || len(items) == 0 {
		return urls
	}

	frameByID := make(map[string]domain.Frame, len(frames))
	for _, f := range frames {
		frameByID[f.ID] = f
	}

	for _, item := range items {
		frame, ok := frameByID[item.FrameID]
		if !ok {
			continue
		}

		key := fmt.Sprintf("jobs/%s/items/%s.jpg", jobID, item.ID)
		if err := s.storage.Upload(ctx, key, bytes.NewReader(frame.Image), int64(len(frame.Image)), "image/jpeg"); err != nil {
			logger.CtxWarn(ctx, "Image upload failed for %s, item kept unpersisted: %v", item.ID, err)
			continue
		}
		url := s.storage.GetURL(key)
		urls[item.ID] = url

		if s.items == nil {
			continue
		}

		record := &domain.ItemRecord{
			ID:             uuid.New().String(),
			JobID:          jobID,
			Name:           item.Name,
			Category:       item.Category,
			Condition:      item.Condition,
			Description:    item.Description,
			EstimatedPrice: item.EstimatedPrice,
			Confidence:     item.Confidence,
			FrameTimestamp: item.Timestamp,
			ImageURL:       url,
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(frame.Image)); err == nil {
			record.ImageWidth = cfg.Width
			record.ImageHeight = cfg.Height
		}

		if err := s.items.Create(ctx, record); err != nil {
			logger.CtxWarn(ctx, "Record write failed for %s, item kept unpersisted: %v", item.ID, err)
			continue
		}
	}
	return urls
}

func (s *ExtractionService) fail(ctx context.Context, jobID string, cause error) {
	logger.FromContext(ctx).WithError(cause).Error("Extraction failed")
	if err := s.store.Update(jobID, func(job *domain.Job) error {
		job.Status = domain.JobStatusFailed
		job.Error = cause.Error()
		return nil
	}); err != nil {
		logger.CtxWarn(ctx, "Could not mark job failed: %v", err)
	}
}

// GetStatus returns a snapshot of the job.
func (s *ExtractionService) GetStatus(jobID string) (*domain.Job, error) {
	return s.store.Snapshot(jobID)
}

// AddItem appends a manually identified item, bypassing detection and
// deduplication entirely. Succeeds whenever the job exists.
func (s *ExtractionService) AddItem(jobID, frameID, name, category string, price float64, condition string) (*domain.Item, error) {
	if condition == "" {
		condition = "good"
	}

	var added domain.Item
	err := s.store.Update(jobID, func(job *domain.Job) error {
		timestamp := 0.0
		for _, f := range job.Frames {
			if f.ID == frameID {
				timestamp = f.Timestamp
				break
			}
		}
		added = domain.Item{
			ID:             fmt.Sprintf("manual_item_%d", len(job.Items)),
			Name:           name,
			Category:       domain.NormalizeCategory(category),
			EstimatedPrice: price,
			Condition:      condition,
			Description:    fmt.Sprintf("A %s in %s condition", name, condition),
			FrameID:        frameID,
			Timestamp:      timestamp,
		}
		job.Items = append(job.Items, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateItem overwrites the name and/or price of the item at the given
// zero-based position. Nil fields are left unchanged.
func (s *ExtractionService) UpdateItem(jobID string, index int, name *string, price *float64) (*domain.Item, error) {
	var updated domain.Item
	err := s.store.Update(jobID, func(job *domain.Job) error {
		if index < 0 || index >= len(job.Items) {
			return domain.ErrItemIndexOutOfRange
		}
		if name != nil {
			job.Items[index].Name = *name
		}
		if price != nil {
			job.Items[index].EstimatedPrice = *price
		}
		updated = job.Items[index]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem removes and returns the item at the given zero-based position,
// along with the number of items left. Subsequent positions shift down by
// one, so clients must re-read the list before issuing another positional
// operation.
func (s *ExtractionService) DeleteItem(jobID string, index int) (*domain.Item, int, error) {
	var deleted domain.Item
	var remaining int
	err := s.store.Update(jobID, func(job *domain.Job) error {
		if index < 0 || index >= len(job.Items) {
			return domain.ErrItemIndexOutOfRange
		}
		deleted = job.Items[index]
		job.Items = append(job.Items[:index], job.Items[index+1:]...)
		remaining = len(job.Items)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &deleted, remaining, nil
}

// CategorySuggestions returns the static category-to-example-items table.
func (s *ExtractionService) CategorySuggestions() map[string][]string {
	return domain.CategorySuggestions
}
