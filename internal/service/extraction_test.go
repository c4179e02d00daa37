package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/marcus/declutter/internal/domain"
	"github.com/marcus/declutter/internal/store"
)

type stubSampler struct {
	frames []domain.Frame
	err    error
}

func (s *stubSampler) SampleFrames(ctx context.Context, video []byte) ([]domain.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.frames, nil
}

type stubDetector struct {
	detect func(frame domain.Frame) ([]domain.Detection, error)
}

func (s *stubDetector) DetectItems(ctx context.Context, frame domain.Frame) ([]domain.Detection, error) {
	return s.detect(frame)
}

func testFrames(n int) []domain.Frame {
	frames := make([]domain.Frame, n)
	for i := range frames {
		frames[i] = domain.Frame{
			ID:        fmt.Sprintf("frame_%d", i),
			Timestamp: float64(i) * 2,
			Image:     []byte("jpeg"),
			ImageB64:  "anBlZw==",
		}
	}
	return frames
}

func newTestService(t *testing.T, sampler FrameSource, detector Detector) *ExtractionService {
	t.Helper()
	jobs := store.New(time.Hour, 100)
	t.Cleanup(jobs.Close)
	return NewExtractionService(jobs, sampler, detector, nil, nil, testLogger(), &ExtractionConfig{
		Workers:    2,
		JobTimeout: 5 * time.Second,
	})
}

func waitForTerminal(t *testing.T, svc *ExtractionService, jobID string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.GetStatus(jobID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestExtraction_FullPipeline(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(2)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		switch frame.ID {
		case "frame_0":
			return []domain.Detection{
				{FrameID: frame.ID, Name: "chair", Category: "furniture", Confidence: 0.6, Condition: "fair", EstimatedValue: 30, Timestamp: frame.Timestamp},
			}, nil
		default:
			return []domain.Detection{
				{FrameID: frame.ID, Name: "chair", Category: "furniture", Confidence: 0.9, Condition: "good", EstimatedValue: 45, Timestamp: frame.Timestamp},
				{FrameID: frame.ID, Name: "tv", Category: "electronics", Confidence: 0.8, Condition: "good", EstimatedValue: 200, Timestamp: frame.Timestamp},
			}, nil
		}
	}}
	svc := newTestService(t, sampler, detector)

	jobID, err := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := waitForTerminal(t, svc, jobID)

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", job.Status, job.Error)
	}
	if job.Progress != domain.ProgressCompleted {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.SourceName != "room.mp4" {
		t.Errorf("expected source name room.mp4, got %s", job.SourceName)
	}
	if len(job.Frames) != 2 {
		t.Errorf("expected 2 frames, got %d", len(job.Frames))
	}
	if len(job.Items) != 2 {
		t.Fatalf("expected 2 deduplicated items, got %d", len(job.Items))
	}

	// The chair group keeps its first-seen slot but the 0.9 detection wins.
	if job.Items[0].Name != "chair" || job.Items[0].Confidence != 0.9 {
		t.Errorf("unexpected first item: %+v", job.Items[0])
	}
	if job.Items[1].Name != "tv" {
		t.Errorf("unexpected second item: %+v", job.Items[1])
	}
	if job.Items[0].ID != "item_0" || job.Items[1].ID != "item_1" {
		t.Errorf("unexpected item IDs: %s, %s", job.Items[0].ID, job.Items[1].ID)
	}
}

func TestExtraction_UnreadableVideoFailsJob(t *testing.T) {
	sampler := &stubSampler{err: &MediaDecodeError{Reason: "could not open video"}}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		t.Error("detector must not be called when sampling fails")
		return nil, nil
	}}
	svc := newTestService(t, sampler, detector)

	jobID, err := svc.Submit(context.Background(), []byte("not a video"), "bad.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := waitForTerminal(t, svc, jobID)

	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("expected a failure reason")
	}
	if job.Progress != domain.ProgressCreated {
		t.Errorf("expected progress to stay at 0, got %d", job.Progress)
	}
}

func TestExtraction_AllTransportFailuresFailJob(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(3)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		return nil, &InferenceTransportError{Err: errors.New("connection refused")}
	}}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	job := waitForTerminal(t, svc, jobID)

	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("expected a failure reason")
	}
}

func TestExtraction_PartialTransportFailuresComplete(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(3)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		if frame.ID != "frame_1" {
			return nil, &InferenceTransportError{Err: errors.New("connection refused")}
		}
		return []domain.Detection{
			{FrameID: frame.ID, Name: "lamp", Category: "decor", Confidence: 0.75, Condition: "good", EstimatedValue: 25, Timestamp: frame.Timestamp},
		}, nil
	}}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	job := waitForTerminal(t, svc, jobID)

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", job.Status, job.Error)
	}
	if len(job.Items) != 1 || job.Items[0].Name != "lamp" {
		t.Errorf("expected the surviving frame's item, got %+v", job.Items)
	}
}

func TestExtraction_NoDetectionsCompletesEmpty(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(2)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		return nil, nil
	}}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "empty.mp4")
	job := waitForTerminal(t, svc, jobID)

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if len(job.Items) != 0 {
		t.Errorf("expected no items, got %d", len(job.Items))
	}
	if job.Progress != domain.ProgressCompleted {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
}

func TestExtraction_GetStatusUnknownJob(t *testing.T) {
	svc := newTestService(t, &stubSampler{}, &stubDetector{detect: func(domain.Frame) ([]domain.Detection, error) { return nil, nil }})

	if _, err := svc.GetStatus("missing"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestExtraction_AddItem(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(2)}
	detector := &stubDetector{detect: func(domain.Frame) ([]domain.Detection, error) { return nil, nil }}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	waitForTerminal(t, svc, jobID)

	item, err := svc.AddItem(jobID, "frame_1", "desk", "furniture", 80, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if item.ID != "manual_item_0" {
		t.Errorf("expected manual_item_0, got %s", item.ID)
	}
	if item.Condition != "good" {
		t.Errorf("expected default condition good, got %s", item.Condition)
	}
	if item.Timestamp != 2 {
		t.Errorf("expected timestamp from frame_1, got %f", item.Timestamp)
	}
	if item.Description != "A desk in good condition" {
		t.Errorf("unexpected description: %q", item.Description)
	}

	job, _ := svc.GetStatus(jobID)
	if len(job.Items) != 1 {
		t.Fatalf("expected 1 item on the job, got %d", len(job.Items))
	}

	// A second manual item is numbered after the first.
	second, err := svc.AddItem(jobID, "frame_404", "rug", "decor", 25, "fair")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != "manual_item_1" {
		t.Errorf("expected manual_item_1, got %s", second.ID)
	}
	if second.Timestamp != 0 {
		t.Errorf("unknown frame should leave timestamp at 0, got %f", second.Timestamp)
	}
}

func TestExtraction_AddItemUnknownJob(t *testing.T) {
	svc := newTestService(t, &stubSampler{}, &stubDetector{detect: func(domain.Frame) ([]domain.Detection, error) { return nil, nil }})

	if _, err := svc.AddItem("missing", "frame_0", "desk", "furniture", 80, "good"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestExtraction_UpdateItem(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(1)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		return []domain.Detection{
			{FrameID: frame.ID, Name: "chair", Category: "furniture", Confidence: 0.8, Condition: "good", EstimatedValue: 40, Timestamp: frame.Timestamp},
		}, nil
	}}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	waitForTerminal(t, svc, jobID)

	name := "office chair"
	item, err := svc.UpdateItem(jobID, 0, &name, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Name != "office chair" {
		t.Errorf("expected renamed item, got %s", item.Name)
	}
	if item.EstimatedPrice != 40 {
		t.Errorf("nil price must leave the field unchanged, got %f", item.EstimatedPrice)
	}

	price := 55.0
	item, err = svc.UpdateItem(jobID, 0, nil, &price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Name != "office chair" || item.EstimatedPrice != 55 {
		t.Errorf("unexpected item after price update: %+v", item)
	}
}

func TestExtraction_UpdateItemOutOfRange(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(1)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		return []domain.Detection{
			{FrameID: frame.ID, Name: "chair", Category: "furniture", Confidence: 0.8, EstimatedValue: 40},
		}, nil
	}}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	waitForTerminal(t, svc, jobID)

	name := "x"
	for _, index := range []int{-1, 1, 99} {
		if _, err := svc.UpdateItem(jobID, index, &name, nil); !errors.Is(err, domain.ErrItemIndexOutOfRange) {
			t.Errorf("index %d: expected ErrItemIndexOutOfRange, got %v", index, err)
		}
	}

	// The rejected updates must not have touched the list.
	job, _ := svc.GetStatus(jobID)
	if len(job.Items) != 1 || job.Items[0].Name != "chair" {
		t.Errorf("items changed after rejected updates: %+v", job.Items)
	}
}

func TestExtraction_DeleteItem(t *testing.T) {
	sampler := &stubSampler{frames: testFrames(1)}
	detector := &stubDetector{detect: func(frame domain.Frame) ([]domain.Detection, error) {
		return []domain.Detection{
			{FrameID: frame.ID, Name: "chair", Category: "furniture", Confidence: 0.8, EstimatedValue: 40},
			{FrameID: frame.ID, Name: "tv", Category: "electronics", Confidence: 0.9, EstimatedValue: 200},
			{FrameID: frame.ID, Name: "lamp", Category: "decor", Confidence: 0.7, EstimatedValue: 20},
		}, nil
	}}
	svc := newTestService(t, sampler, detector)

	jobID, _ := svc.Submit(context.Background(), []byte("video"), "room.mp4")
	waitForTerminal(t, svc, jobID)

	deleted, remaining, err := svc.DeleteItem(jobID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted.Name != "tv" {
		t.Errorf("expected tv deleted, got %s", deleted.Name)
	}
	if remaining != 2 {
		t.Errorf("expected 2 remaining, got %d", remaining)
	}

	// Later items shift down by one.
	job, _ := svc.GetStatus(jobID)
	if job.Items[0].Name != "chair" || job.Items[1].Name != "lamp" {
		t.Errorf("unexpected items after delete: %+v", job.Items)
	}

	if _, _, err := svc.DeleteItem(jobID, 2); !errors.Is(err, domain.ErrItemIndexOutOfRange) {
		t.Errorf("expected ErrItemIndexOutOfRange, got %v", err)
	}
}

func TestExtraction_CategorySuggestions(t *testing.T) {
	svc := newTestService(t, &stubSampler{}, &stubDetector{detect: func(domain.Frame) ([]domain.Detection, error) { return nil, nil }})

	suggestions := svc.CategorySuggestions()
	if len(suggestions) == 0 {
		t.Fatal("expected non-empty suggestions")
	}
	if _, ok := suggestions[domain.CategoryFurniture]; !ok {
		t.Error("expected furniture category")
	}
}
