// Package render turns assembled cut lists into playable trailer files with
// ffmpeg. Each cut is extracted as its own segment, then the segments are
// stitched with the concat demuxer; re-encoding at extraction time keeps the
// segment boundaries frame-accurate instead of snapping to keyframes.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/metrics"
	"github.com/fpang/trailer-forge/internal/timeline"
)

// Encoding settings for extracted segments. CRF 23 keeps promotional output
// visually clean without blowing up Lambda's /tmp budget.
const (
	videoCRF     = 23
	videoPreset  = "veryfast"
	audioBitrate = "128k"
)

// Renderer produces a trailer file from a cut list over a local source video.
type Renderer interface {
	Render(ctx context.Context, sourcePath string, cuts []timeline.CutEntry, outPath string) error
}

// FFmpegRenderer shells out to ffmpeg on the PATH.
type FFmpegRenderer struct{}

// Available reports whether ffmpeg can be found on the PATH.
func (FFmpegRenderer) Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Render extracts each cut into a segment file under a temp dir, writes a
// concat manifest, and stitches the segments into outPath.
func (FFmpegRenderer) Render(ctx context.Context, sourcePath string, cuts []timeline.CutEntry, outPath string) error {
	if len(cuts) == 0 {
		return fmt.Errorf("render: empty cut list")
	}
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	segDir, err := os.MkdirTemp("", "trailer-seg-")
	if err != nil {
		return fmt.Errorf("create segment dir: %w", err)
	}
	defer os.RemoveAll(segDir)

	start := time.Now()
	var manifest strings.Builder
	for i, cut := range cuts {
		segPath := filepath.Join(segDir, fmt.Sprintf("seg-%03d.mp4", i))
		if err := extractSegment(ctx, ffmpegPath, sourcePath, segPath, cut); err != nil {
			return err
		}
		// concat demuxer manifest line; paths are ffmpeg-quoted
		fmt.Fprintf(&manifest, "file '%s'\n", segPath)
	}

	manifestPath := filepath.Join(segDir, "segments.txt")
	if err := os.WriteFile(manifestPath, []byte(manifest.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}

	// Segments share a codec so the final stitch is a pure remux.
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w\nOutput: %s", err, string(output))
	}

	log.Info().
		Str("output", outPath).
		Int("segments", len(cuts)).
		Dur("duration", time.Since(start)).
		Msg("Trailer rendered")
	return nil
}

func extractSegment(ctx context.Context, ffmpegPath, sourcePath, segPath string, cut timeline.CutEntry) error {
	args := []string{
		"-ss", formatSeconds(cut.SourceStart),
		"-i", sourcePath,
		"-t", formatSeconds(cut.SourceEnd - cut.SourceStart),
		"-c:v", "libx264",
		"-preset", videoPreset,
		"-crf", strconv.Itoa(videoCRF),
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-avoid_negative_ts", "make_zero",
		"-y", segPath,
	}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract %s failed: %w\nOutput: %s", cut.SceneID, err, string(output))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// Job pairs one variant's cut list with its output path for RenderAll.
type Job struct {
	Name    string
	Cuts    []timeline.CutEntry
	OutPath string
}

// RenderAll renders multiple variants in parallel, at most concurrency at a
// time. It returns the names of variants that failed; a failure of one
// variant never aborts the others.
func RenderAll(ctx context.Context, r Renderer, sourcePath string, jobsToRun []Job, concurrency int) (failed []string) {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, concurrency)
	)
	for _, job := range jobsToRun {
		wg.Add(1)
		sem <- struct{}{}
		go func(job Job) {
			defer wg.Done()
			defer func() { <-sem }()

			rec := metrics.New().Dimension("Stage", "render").Property("variant", job.Name)
			rec.StageStart("Render")
			err := r.Render(ctx, sourcePath, job.Cuts, job.OutPath)
			rec.StageEnd("Render")
			if err != nil {
				log.Warn().Err(err).Str("variant", job.Name).Msg("Variant render failed")
				rec.Count("RenderErrors")
				mu.Lock()
				failed = append(failed, job.Name)
				mu.Unlock()
			}
			rec.Flush()
		}(job)
	}
	wg.Wait()
	return failed
}
