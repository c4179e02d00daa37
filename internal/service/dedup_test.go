package service

import (
	"testing"

	"github.com/marcus/declutter/internal/domain"
)

func TestDeduplicateDetections_MaxConfidenceWins(t *testing.T) {
	detections := []domain.Detection{
		{FrameID: "frame_0", Name: "chair", Category: "furniture", Confidence: 0.6, Condition: "fair", EstimatedValue: 30, Timestamp: 0},
		{FrameID: "frame_1", Name: "chair", Category: "furniture", Confidence: 0.9, Condition: "good", EstimatedValue: 45, Timestamp: 2},
		{FrameID: "frame_2", Name: "chair", Category: "furniture", Confidence: 0.7, Condition: "good", EstimatedValue: 40, Timestamp: 4},
	}

	items := DeduplicateDetections(detections)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", items[0].Confidence)
	}
	if items[0].FrameID != "frame_1" {
		t.Errorf("expected winner from frame_1, got %s", items[0].FrameID)
	}
	if items[0].EstimatedPrice != 45 {
		t.Errorf("expected price from winning detection, got %f", items[0].EstimatedPrice)
	}
}

func TestDeduplicateDetections_TieKeepsEarlier(t *testing.T) {
	detections := []domain.Detection{
		{FrameID: "frame_0", Name: "lamp", Category: "decor", Confidence: 0.8, Timestamp: 0},
		{FrameID: "frame_3", Name: "lamp", Category: "decor", Confidence: 0.8, Timestamp: 6},
	}

	items := DeduplicateDetections(detections)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].FrameID != "frame_0" {
		t.Errorf("equal confidence should keep the earlier detection, got %s", items[0].FrameID)
	}
}

func TestDeduplicateDetections_KeyIsNameAndCategory(t *testing.T) {
	detections := []domain.Detection{
		{Name: "chair", Category: "furniture", Confidence: 0.8},
		{Name: "chair", Category: "misc", Confidence: 0.7},
		{Name: "Chair", Category: "furniture", Confidence: 0.6},
	}

	items := DeduplicateDetections(detections)

	// Case-sensitive names and distinct categories are distinct groups.
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
}

func TestDeduplicateDetections_InsertionOrderAndIDs(t *testing.T) {
	detections := []domain.Detection{
		{Name: "sofa", Category: "furniture", Confidence: 0.5},
		{Name: "tv", Category: "electronics", Confidence: 0.9},
		{Name: "sofa", Category: "furniture", Confidence: 0.95},
		{Name: "book", Category: "books", Confidence: 0.4},
	}

	items := DeduplicateDetections(detections)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	wantOrder := []string{"sofa", "tv", "book"}
	wantIDs := []string{"item_0", "item_1", "item_2"}
	for i, item := range items {
		if item.Name != wantOrder[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantOrder[i], item.Name)
		}
		if item.ID != wantIDs[i] {
			t.Errorf("position %d: expected ID %s, got %s", i, wantIDs[i], item.ID)
		}
	}

	// The later, higher-confidence sofa wins but keeps its first-seen slot.
	if items[0].Confidence != 0.95 {
		t.Errorf("expected sofa confidence 0.95, got %f", items[0].Confidence)
	}
}

func TestDeduplicateDetections_Idempotent(t *testing.T) {
	detections := []domain.Detection{
		{Name: "chair", Category: "furniture", Confidence: 0.6},
		{Name: "chair", Category: "furniture", Confidence: 0.9},
		{Name: "tv", Category: "electronics", Confidence: 0.8},
	}

	first := DeduplicateDetections(detections)

	// Re-run the reduction over its own output expressed as detections.
	again := make([]domain.Detection, 0, len(first))
	for _, item := range first {
		again = append(again, domain.Detection{
			FrameID:        item.FrameID,
			Name:           item.Name,
			Category:       item.Category,
			Confidence:     item.Confidence,
			Condition:      item.Condition,
			EstimatedValue: item.EstimatedPrice,
			Description:    item.Description,
			Timestamp:      item.Timestamp,
		})
	}
	second := DeduplicateDetections(again)

	if len(first) != len(second) {
		t.Fatalf("expected stable length, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name || first[i].Confidence != second[i].Confidence {
			t.Errorf("position %d changed across runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDeduplicateDetections_Empty(t *testing.T) {
	items := DeduplicateDetections(nil)
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestItemDescription_Fallback(t *testing.T) {
	det := domain.Detection{Name: "chair", Condition: "fair"}
	if got := itemDescription(det); got != "A chair in fair condition" {
		t.Errorf("unexpected fallback description: %q", got)
	}

	det.Description = "Wooden dining chair"
	if got := itemDescription(det); got != "Wooden dining chair" {
		t.Errorf("expected model description to win, got %q", got)
	}
}
