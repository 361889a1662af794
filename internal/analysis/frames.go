package analysis

// frames.go samples evenly spaced JPEG frames from the source video with
// ffmpeg and probes source duration with ffprobe. Pure Go video decoding is
// not practical across container formats, so both lean on the FFmpeg tools
// being present on the PATH (the Lambda image ships them as a layer).

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

// targetFrameCount is the number of frames sampled per video. The sampling
// interval never drops below minFrameInterval, so short videos produce fewer
// frames rather than redundant ones.
const (
	targetFrameCount = 30
	minFrameInterval = 2.0
)

// frameSample is one extracted frame with its source timestamp.
type frameSample struct {
	Path      string
	Timestamp float64
}

// frameInterval returns the sampling interval for a source duration.
func frameInterval(sourceDuration float64) float64 {
	return math.Max(minFrameInterval, sourceDuration/float64(targetFrameCount))
}

// CheckFFmpegAvailable reports whether the ffmpeg and ffprobe binaries are on
// the PATH. Used by the health surface and by provider construction.
func CheckFFmpegAvailable() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", bin, err)
		}
	}
	return nil
}

// extractFrames writes evenly spaced JPEG frames into a temp directory and
// returns them in timestamp order. Frames are scaled to at most 1280px wide;
// Rekognition rejects images over 5MB and gains nothing from larger inputs.
// The caller must invoke cleanup when done.
func extractFrames(ctx context.Context, videoPath string, sourceDuration float64) ([]frameSample, func(), error) {
	dir, err := os.MkdirTemp("", "trailer-frames-")
	if err != nil {
		return nil, nil, fmt.Errorf("create frame dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	interval := frameInterval(sourceDuration)
	pattern := filepath.Join(dir, "frame-%04d.jpg")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%f,scale='min(1280,iw)':-2", interval),
		"-qscale:v", "2",
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("ffmpeg frame extraction: %w (%s)", err, string(out))
	}

	paths, err := filepath.Glob(filepath.Join(dir, "frame-*.jpg"))
	if err != nil || len(paths) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no frames extracted from %s", filepath.Base(videoPath))
	}
	sort.Strings(paths)

	samples := make([]frameSample, len(paths))
	for i, p := range paths {
		samples[i] = frameSample{
			Path: p,
			// ffmpeg's fps filter emits the first frame near t=0 and
			// subsequent frames one interval apart.
			Timestamp: float64(i) * interval,
		}
	}

	log.Debug().
		Int("frames", len(samples)).
		Float64("interval", interval).
		Str("video", filepath.Base(videoPath)).
		Msg("Frames extracted")
	return samples, cleanup, nil
}

// ffprobeFormat is the subset of ffprobe's JSON output read here.
type ffprobeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the source duration in seconds via ffprobe.
func ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(videoPath), err)
	}

	var probe ffprobeFormat
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("invalid duration %q from ffprobe", probe.Format.Duration)
	}
	return dur, nil
}
