package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/trailer-forge/internal/analysis"
	"github.com/fpang/trailer-forge/internal/bundle"
	"github.com/fpang/trailer-forge/internal/config"
	"github.com/fpang/trailer-forge/internal/copywrite"
	"github.com/fpang/trailer-forge/internal/jobs"
	"github.com/fpang/trailer-forge/internal/logging"
	"github.com/fpang/trailer-forge/internal/profile"
	"github.com/fpang/trailer-forge/internal/render"
	"github.com/fpang/trailer-forge/internal/store"
	"github.com/fpang/trailer-forge/internal/trailer"
)

var (
	videoFlag          string
	profileFlag        string
	maxDurationFlag    float64
	sourceDurationFlag float64
	modeFlag           string
	dbFlag             string
	outDirFlag         string
	renderFlag         bool
	bundleFlag         string
	describeFlag       bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan trailer variants for a video",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&videoFlag, "video", "v", "", "Source video file (required unless --mode mock with --source-duration)")
	planCmd.Flags().StringVarP(&profileFlag, "profile", "p", profile.DefaultProfileID, "Audience profile (see 'trailer-cli profiles')")
	planCmd.Flags().Float64VarP(&maxDurationFlag, "max-duration", "t", 30, "Target trailer length in seconds")
	planCmd.Flags().Float64Var(&sourceDurationFlag, "source-duration", 0, "Source duration in seconds (probed from --video when omitted)")
	planCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Analysis backend: aws or mock (default from config)")
	planCmd.Flags().StringVar(&dbFlag, "db", "trailer-jobs.db", "SQLite job database path")
	planCmd.Flags().StringVarP(&outDirFlag, "out-dir", "o", ".", "Directory for rendered variants")
	planCmd.Flags().BoolVar(&renderFlag, "render", false, "Render each variant with ffmpeg")
	planCmd.Flags().StringVar(&bundleFlag, "bundle", "", "Write plan + renders into this ZIP file")
	planCmd.Flags().BoolVar(&describeFlag, "describe", false, "Generate marketing copy per variant with Gemini (needs GEMINI_API_KEY)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)
	if modeFlag != "" {
		cfg.AnalysisMode = modeFlag
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sourceDuration := sourceDurationFlag
	if videoFlag != "" && sourceDuration <= 0 {
		sourceDuration, err = analysis.ProbeDuration(ctx, videoFlag)
		if err != nil {
			return fmt.Errorf("probe %s: %w", videoFlag, err)
		}
		log.Info().Float64("seconds", sourceDuration).Msg("Source duration probed")
	}
	if sourceDuration <= 0 {
		return fmt.Errorf("--source-duration is required when no --video is given")
	}
	if videoFlag == "" && cfg.AnalysisMode == analysis.ModeAWS {
		return fmt.Errorf("--video is required in aws mode")
	}

	js, err := store.OpenSQLite(dbFlag)
	if err != nil {
		return err
	}
	defer js.Close()

	var primary analysis.Provider
	if cfg.AnalysisMode == analysis.ModeAWS {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		primary = analysis.NewRekognitionProvider(
			rekognition.NewFromConfig(awsCfg),
			cfg.AnalysisConcurrency,
			cfg.AnalysisCallTimeout(),
		)
	}
	supervisor := analysis.NewSupervisor(primary, analysis.NewMockProvider(), cfg.PipelineDeadline())
	orchestrator := trailer.NewOrchestrator(supervisor, profile.NewStaticStore(), js, trailer.DefaultFallbackPolicy(), cfg.MinScenes)

	jobID := jobs.GenerateID()
	if err := js.PutJob(ctx, &store.JobRecord{
		ID:             jobID,
		ProfileID:      profileFlag,
		SourceDuration: sourceDuration,
		MaxDuration:    maxDurationFlag,
		Status:         trailer.StatusRunning,
		Stage:          trailer.StageCreated,
		CreatedAt:      time.Now().Unix(),
	}); err != nil {
		return err
	}

	result, err := orchestrator.Run(ctx, trailer.Request{
		JobID:          jobID,
		ProfileID:      profileFlag,
		VideoPath:      videoFlag,
		SourceDuration: sourceDuration,
		MaxDuration:    maxDurationFlag,
	})
	if err != nil {
		return err
	}

	if describeFlag {
		describeVariants(ctx, result)
	}

	printSummary(result)

	var rendered []bundle.File
	if renderFlag {
		rendered, err = renderVariants(ctx, cfg, result)
		if err != nil {
			return err
		}
	}

	if bundleFlag != "" {
		if err := bundle.Write(bundleFlag, result, rendered); err != nil {
			return err
		}
		fmt.Printf("\nBundle written to %s\n", bundleFlag)
	}
	return nil
}

// describeVariants replaces the static variant descriptions with Gemini copy.
// Best-effort: any failure keeps the static text and logs a warning.
func describeVariants(ctx context.Context, result *trailer.Result) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("--describe skipped: GEMINI_API_KEY is not set")
		return
	}
	writer, err := copywrite.NewWriter(ctx, apiKey, "")
	if err != nil {
		log.Warn().Err(err).Msg("--describe skipped: Gemini client failed")
		return
	}

	briefs := make([]copywrite.VariantBrief, len(result.Variants))
	for i, v := range result.Variants {
		briefs[i] = variantBrief(v)
	}
	descriptions, err := writer.Describe(ctx, profileFlag, briefs)
	if err != nil {
		log.Warn().Err(err).Msg("Copy generation failed; keeping static descriptions")
		return
	}
	for i := range result.Variants {
		if text, ok := descriptions[result.Variants[i].Name]; ok {
			result.Variants[i].Description = text
		}
	}
}

func variantBrief(v trailer.Variant) copywrite.VariantBrief {
	seen := make(map[string]bool)
	var labels, emotions, people []string
	add := func(dst *[]string, s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			*dst = append(*dst, s)
		}
	}
	for _, sc := range v.Scenes {
		for _, l := range sc.Labels {
			add(&labels, l)
		}
		for _, e := range sc.Emotions {
			add(&emotions, e)
		}
		for _, p := range sc.People {
			add(&people, p.Name)
		}
	}
	return copywrite.VariantBrief{
		Name:     v.Name,
		Emphasis: v.Description,
		Labels:   labels,
		Emotions: emotions,
		People:   people,
		Duration: v.EstimatedDuration,
	}
}

func printSummary(result *trailer.Result) {
	fmt.Printf("Job %s: %s (mode: %s)\n", result.JobID, result.Status, result.Mode)
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Println()
	for _, v := range result.Variants {
		fmt.Printf("%-14s %5.1fs  %d scenes  (early %.0f%% / middle %.0f%% / late %.0f%%)\n",
			v.Name, v.EstimatedDuration, len(v.Scenes),
			v.Distribution.Early*100, v.Distribution.Middle*100, v.Distribution.Late*100)
		if v.Description != "" {
			fmt.Printf("    %s\n", v.Description)
		}
		for _, cut := range v.Timeline {
			fmt.Printf("    %6.1f-%6.1f  <- source %6.1f-%6.1f  [%s/%s]\n",
				cut.In, cut.Out, cut.SourceStart, cut.SourceEnd, cut.Transition, cut.AudioCue)
		}
	}
}

func renderVariants(ctx context.Context, cfg *config.Config, result *trailer.Result) ([]bundle.File, error) {
	if videoFlag == "" {
		return nil, fmt.Errorf("--render requires --video")
	}
	renderer := render.FFmpegRenderer{}
	if !renderer.Available() {
		return nil, fmt.Errorf("--render requires ffmpeg on the PATH")
	}
	if err := os.MkdirAll(outDirFlag, 0o755); err != nil {
		return nil, fmt.Errorf("create out dir: %w", err)
	}

	renderJobs := make([]render.Job, len(result.Variants))
	for i, v := range result.Variants {
		renderJobs[i] = render.Job{
			Name:    v.Name,
			Cuts:    v.Timeline,
			OutPath: filepath.Join(outDirFlag, v.Name+".mp4"),
		}
	}

	failed := render.RenderAll(ctx, renderer, videoFlag, renderJobs, cfg.RenderConcurrency)
	failedSet := make(map[string]bool, len(failed))
	for _, name := range failed {
		failedSet[name] = true
	}

	var files []bundle.File
	for _, job := range renderJobs {
		if failedSet[job.Name] {
			fmt.Printf("  render failed: %s\n", job.Name)
			continue
		}
		fmt.Printf("  rendered %s\n", job.OutPath)
		files = append(files, bundle.File{Name: filepath.Base(job.OutPath), Path: job.OutPath})
	}
	if len(files) == 0 && len(renderJobs) > 0 {
		return nil, fmt.Errorf("all variant renders failed")
	}
	return files, nil
}
