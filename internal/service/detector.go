package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/marcus/declutter/internal/domain"
	"github.com/marcus/declutter/internal/logger"
	"github.com/marcus/declutter/internal/prompts"
)

// InferenceTransportError indicates the inference service could not be
// reached or returned a structural error for one call. Absorbed per frame;
// a job fails only when every frame hits one.
type InferenceTransportError struct {
	Err error
}

func (e *InferenceTransportError) Error() string {
	return fmt.Sprintf("inference transport: %v", e.Err)
}

func (e *InferenceTransportError) Unwrap() error {
	return e.Err
}

// ItemDetector sends frames to an OpenAI-compatible vision model and parses
// the response into detection candidates.
type ItemDetector struct {
	client   *resty.Client
	model    string
	endpoint string
	logger   *logger.Logger
}

// DetectorConfig holds configuration for the item detector.
type DetectorConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewItemDetector creates an item detector client.
func NewItemDetector(cfg *DetectorConfig, log *logger.Logger) *ItemDetector {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ItemDetector{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		logger:   log,
	}
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// rawDetection is the wire shape of one detected item. Pointer fields
// distinguish absent values so defaults can be applied.
type rawDetection struct {
	Name           string   `json:"name"`
	ObjectName     string   `json:"object_name"` // older prompt revisions used this key
	Category       string   `json:"category"`
	Confidence     *float64 `json:"confidence"`
	Condition      string   `json:"condition"`
	EstimatedValue *float64 `json:"estimated_value"`
	Description    string   `json:"description"`
}

// DetectItems analyzes one frame and returns zero or more detection
// candidates. An unparsable response degrades to the keyword fallback, not
// an error; only a transport or structural API failure returns an
// InferenceTransportError.
func (d *ItemDetector) DetectItems(ctx context.Context, frame domain.Frame) ([]domain.Detection, error) {
	req := openAIRequest{
		Model: d.model,
		Messages: []openAIMessage{
			{
				Role:    "system",
				Content: prompts.DetectionSystemPrompt,
			},
			{
				Role: "user",
				Content: []interface{}{
					openAITextContent{
						Type: "text",
						Text: prompts.DetectionUserPrompt,
					},
					openAIImageContent{
						Type: "image_url",
						ImageURL: openAIImageURL{
							URL:    "data:image/jpeg;base64," + frame.ImageB64,
							Detail: "auto",
						},
					},
				},
			},
		},
		MaxTokens:   1024,
		Temperature: 0.3,
	}

	var resp openAIResponse
	httpResp, err := d.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(d.endpoint)

	if err != nil {
		return nil, &InferenceTransportError{Err: err}
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return nil, &InferenceTransportError{Err: fmt.Errorf("%s", errMsg)}
	}

	if resp.Error != nil {
		return nil, &InferenceTransportError{Err: fmt.Errorf("%s", resp.Error.Message)}
	}

	if len(resp.Choices) == 0 {
		return nil, &InferenceTransportError{Err: fmt.Errorf("no choices in response")}
	}

	content := resp.Choices[0].Message.Content

	var raws []rawDetection
	if err := decodeLooseArray(content, &raws); err != nil {
		d.logger.WithField("frame_id", frame.ID).Warn("Unparsable detection response, using keyword fallback")
		return d.keywordFallback(content, frame), nil
	}

	detections := make([]domain.Detection, 0, len(raws))
	for _, raw := range raws {
		detections = append(detections, normalizeDetection(raw, frame))
	}
	return detections, nil
}

// normalizeDetection maps a wire detection onto the taxonomy and clamps its
// numeric fields.
func normalizeDetection(raw rawDetection, frame domain.Frame) domain.Detection {
	name := raw.Name
	if name == "" {
		name = raw.ObjectName
	}
	if name == "" {
		name = "unknown"
	}

	confidence := 0.8
	if raw.Confidence != nil {
		confidence = math.Max(0, math.Min(1, *raw.Confidence))
	}

	value := 50.0
	if raw.EstimatedValue != nil {
		value = math.Max(0, *raw.EstimatedValue)
	}

	condition := raw.Condition
	switch condition {
	case "excellent", "good", "fair", "poor":
	default:
		condition = "good"
	}

	return domain.Detection{
		FrameID:        frame.ID,
		Name:           name,
		Category:       domain.NormalizeCategory(raw.Category),
		Confidence:     confidence,
		Condition:      condition,
		EstimatedValue: value,
		Description:    raw.Description,
		Timestamp:      frame.Timestamp,
	}
}

// fallbackKeywords is the fixed vocabulary scanned when a response cannot
// be decoded. At most one low-confidence detection is emitted per frame.
var fallbackKeywords = []string{"chair", "table", "lamp", "tv", "laptop", "book", "sofa", "bed"}

func (d *ItemDetector) keywordFallback(content string, frame domain.Frame) []domain.Detection {
	lower := strings.ToLower(content)
	for _, keyword := range fallbackKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		category := categoryForItem(keyword)
		return []domain.Detection{{
			FrameID:        frame.ID,
			Name:           keyword,
			Category:       category,
			Confidence:     0.7,
			Condition:      "good",
			EstimatedValue: estimateFallbackPrice(keyword, category),
			Description:    fmt.Sprintf("A %s visible in the room", keyword),
			Timestamp:      frame.Timestamp,
		}}
	}
	return nil
}

// categoryForItem resolves a free-text item name against the category
// suggestion table by substring match in either direction.
func categoryForItem(name string) string {
	lower := strings.ToLower(name)
	for category, items := range domain.CategorySuggestions {
		for _, item := range items {
			if strings.Contains(lower, item) || strings.Contains(item, lower) {
				return category
			}
		}
	}
	return domain.CategoryMisc
}

// fallbackPriceRanges holds USD price bands per category and item, used
// only for keyword-fallback detections where the model gave no estimate.
var fallbackPriceRanges = map[string]map[string][2]float64{
	domain.CategoryFurniture:   {"chair": {20, 100}, "table": {50, 200}, "sofa": {100, 500}, "bed": {100, 400}},
	domain.CategoryElectronics: {"tv": {100, 800}, "laptop": {200, 1000}, "monitor": {100, 400}},
	domain.CategoryAppliances:  {"microwave": {30, 150}, "toaster": {15, 80}, "blender": {25, 120}},
	domain.CategoryDecor:       {"lamp": {15, 80}, "mirror": {20, 100}, "vase": {10, 50}},
	domain.CategorySports:      {"bicycle": {50, 300}, "exercise equipment": {30, 200}},
	domain.CategoryBooks:       {"book": {2, 20}, "magazine": {1, 5}},
	domain.CategoryClothing:    {"jacket": {15, 100}, "shoes": {20, 150}, "bag": {10, 80}},
}

// estimateFallbackPrice draws a pseudo-random price within the item's band.
// This is a heuristic stand-in for model uncertainty, not an estimate.
func estimateFallbackPrice(name, category string) float64 {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	lo, hi := 10.0, 100.0
	if items, ok := fallbackPriceRanges[category]; ok {
		if band, ok := items[name]; ok {
			lo, hi = band[0], band[1]
		}
	}
	price := lo + rng.Float64()*(hi-lo)
	return math.Round(price*100) / 100
}
