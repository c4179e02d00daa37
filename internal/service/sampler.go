package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/declutter/internal/domain"
	"github.com/marcus/declutter/internal/logger"
)

// MediaDecodeError indicates the uploaded bytes could not be opened as a
// video or contained no readable frames. Fatal to the owning job.
type MediaDecodeError struct {
	Reason string
	Err    error
}

func (e *MediaDecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("media decode: %s", e.Reason)
}

func (e *MediaDecodeError) Unwrap() error {
	return e.Err
}

// FrameSampler extracts time-spaced still frames from a video byte stream
// by shelling out to ffprobe and ffmpeg.
type FrameSampler struct {
	ffmpegPath  string
	ffprobePath string
	interval    time.Duration
	maxFrames   int
	logger      *logger.Logger
}

// SamplerConfig holds configuration for the frame sampler.
type SamplerConfig struct {
	FFmpegPath  string
	FFprobePath string
	Interval    time.Duration
	MaxFrames   int
}

// NewFrameSampler creates a frame sampler. Zero-valued config fields fall
// back to ffmpeg/ffprobe on PATH, a 2s cadence, and a 5 frame cap.
func NewFrameSampler(cfg *SamplerConfig, log *logger.Logger) *FrameSampler {
	s := &FrameSampler{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		interval:    cfg.Interval,
		maxFrames:   cfg.MaxFrames,
		logger:      log,
	}
	if s.ffmpegPath == "" {
		s.ffmpegPath = "ffmpeg"
	}
	if s.ffprobePath == "" {
		s.ffprobePath = "ffprobe"
	}
	if s.interval <= 0 {
		s.interval = 2 * time.Second
	}
	if s.maxFrames <= 0 {
		s.maxFrames = 5
	}
	return s
}

// SampleFrames decodes video bytes into an ordered, time-ascending sequence
// of JPEG frames at the configured cadence, capped at the configured maximum.
// Returns a MediaDecodeError if the container cannot be opened or yields no
// frames.
func (s *FrameSampler) SampleFrames(ctx context.Context, video []byte) ([]domain.Frame, error) {
	tmp, err := os.CreateTemp("", "declutter-upload-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	fps, duration, err := s.probe(ctx, tmpPath)
	if err != nil {
		return nil, &MediaDecodeError{Reason: "could not open video", Err: err}
	}

	s.logger.WithFields(logger.Fields{
		"fps":      fps,
		"duration": duration,
	}).Debug("Probed video")

	offsets := sampleOffsets(duration, s.interval.Seconds(), s.maxFrames)

	frames := make([]domain.Frame, 0, len(offsets))
	for i, offset := range offsets {
		img, err := s.extractFrame(ctx, tmpPath, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Past the end of a short or mis-probed source. Keep what we have.
			break
		}
		frames = append(frames, domain.Frame{
			ID:        fmt.Sprintf("frame_%d", i),
			Timestamp: offset,
			Image:     img,
			ImageB64:  base64.StdEncoding.EncodeToString(img),
		})
	}

	if len(frames) == 0 {
		return nil, &MediaDecodeError{Reason: "no readable frames"}
	}
	return frames, nil
}

// probe returns the average frame rate and duration of the first video
// stream. A source with no parsable frame rate reports fps 0; the cadence
// falls back to fixed per-frame increments.
func (s *FrameSampler) probe(ctx context.Context, path string) (fps, duration float64, err error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate:format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbeOutput(string(output))
}

// parseProbeOutput parses ffprobe key=value lines into frame rate and
// duration. Unparsable values degrade to zero rather than failing; the
// sampler treats them as fallback cases, not errors.
func parseProbeOutput(out string) (fps, duration float64, err error) {
	seen := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "avg_frame_rate":
			seen = true
			fps = parseRational(value)
		case "duration":
			seen = true
			if d, perr := strconv.ParseFloat(value, 64); perr == nil {
				duration = d
			}
		}
	}
	if !seen {
		return 0, 0, fmt.Errorf("no video stream in probe output")
	}
	return fps, duration, nil
}

// parseRational parses ffprobe's num/den frame rate notation.
func parseRational(v string) float64 {
	num, den, ok := strings.Cut(v, "/")
	if !ok {
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// sampleOffsets computes the presentation timestamps to sample: one frame
// every intervalSec of source time starting at zero, capped at maxFrames.
// A source shorter than one interval yields a single frame at t=0. When the
// duration is unknown (zero), offsets advance by fixed increments and the
// caller stops at the first extraction failure.
func sampleOffsets(duration, intervalSec float64, maxFrames int) []float64 {
	if intervalSec <= 0 {
		intervalSec = 2
	}

	n := maxFrames
	if duration > 0 {
		fit := int(duration/intervalSec) + 1
		if fit < n {
			n = fit
		}
	}
	if n < 1 {
		n = 1
	}

	offsets := make([]float64, n)
	for i := range offsets {
		offsets[i] = float64(i) * intervalSec
	}
	return offsets
}

// extractFrame decodes one JPEG frame at the given offset.
func (s *FrameSampler) extractFrame(ctx context.Context, path string, offset float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %.3fs", offset)
	}
	return stdout.Bytes(), nil
}
