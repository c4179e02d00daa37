package service

import (
	"fmt"

	"github.com/marcus/declutter/internal/domain"
)

type dedupKey struct {
	name     string
	category string
}

// DeduplicateDetections collapses per-frame detections into a canonical item
// list with at most one item per case-sensitive (name, category) pair.
// Within a group the detection with the strictly greatest confidence wins;
// ties keep the earlier detection. Items are numbered in the order their
// group was first encountered, so the reduction is stable and idempotent.
// Zero detections yield zero items.
func DeduplicateDetections(detections []domain.Detection) []domain.Item {
	best := make(map[dedupKey]domain.Detection, len(detections))
	order := make([]dedupKey, 0, len(detections))

	for _, det := range detections {
		key := dedupKey{name: det.Name, category: det.Category}
		current, seen := best[key]
		if !seen {
			best[key] = det
			order = append(order, key)
			continue
		}
		if det.Confidence > current.Confidence {
			best[key] = det
		}
	}

	items := make([]domain.Item, 0, len(order))
	for i, key := range order {
		det := best[key]
		items = append(items, domain.Item{
			ID:             fmt.Sprintf("item_%d", i),
			Name:           det.Name,
			Category:       det.Category,
			EstimatedPrice: det.EstimatedValue,
			Condition:      det.Condition,
			Description:    itemDescription(det),
			FrameID:        det.FrameID,
			Timestamp:      det.Timestamp,
			Confidence:     det.Confidence,
		})
	}
	return items
}

func itemDescription(det domain.Detection) string {
	if det.Description != "" {
		return det.Description
	}
	return fmt.Sprintf("A %s in %s condition", det.Name, det.Condition)
}
