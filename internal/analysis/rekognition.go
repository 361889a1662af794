package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekotypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/scene"
)

// Detection thresholds. Rekognition confidences are 0-100.
const (
	minLabelConfidence     = 60.0
	minEmotionConfidence   = 50.0
	minCelebrityConfidence = 80.0

	// scenesPerVideo is how many contiguous scenes the sampled frames
	// group into.
	scenesPerVideo = 5

	// DefaultFrameConcurrency bounds the per-frame detection worker pool.
	// Serial per-frame dispatch is the documented root cause of end-to-end
	// timeouts in this pipeline and must not come back.
	DefaultFrameConcurrency = 8

	// DefaultCallTimeout bounds one frame's worth of detection calls.
	DefaultCallTimeout = 10 * time.Second
)

// RekognitionAPI is the slice of the Rekognition client used here, so the
// provider can be exercised with a fake.
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	RecognizeCelebrities(ctx context.Context, params *rekognition.RecognizeCelebritiesInput, optFns ...func(*rekognition.Options)) (*rekognition.RecognizeCelebritiesOutput, error)
}

// RekognitionProvider samples frames from the source and runs label, face,
// and celebrity detection per frame on a bounded worker pool, then groups
// frames into contiguous scenes.
type RekognitionProvider struct {
	client      RekognitionAPI
	concurrency int
	callTimeout time.Duration
}

var _ Provider = (*RekognitionProvider)(nil)

// NewRekognitionProvider builds the external-analysis provider. Zero values
// for concurrency and callTimeout select the defaults.
func NewRekognitionProvider(client RekognitionAPI, concurrency int, callTimeout time.Duration) *RekognitionProvider {
	if concurrency <= 0 {
		concurrency = DefaultFrameConcurrency
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &RekognitionProvider{client: client, concurrency: concurrency, callTimeout: callTimeout}
}

func (p *RekognitionProvider) Name() string { return ModeAWS }

// frameFacts is the detection output for one sampled frame.
type frameFacts struct {
	Timestamp float64
	Labels    []string
	Emotions  []string
	People    []scene.Person
}

func (p *RekognitionProvider) Analyze(ctx context.Context, req Request) ([]scene.Candidate, error) {
	if p.client == nil {
		return nil, unavailableErr("rekognition", errors.New("no client configured"))
	}
	if err := CheckFFmpegAvailable(); err != nil {
		return nil, unavailableErr("frame extraction", err)
	}

	frames, cleanup, err := extractFrames(ctx, req.VideoPath, req.SourceDuration)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutErr("frame extraction", ctx.Err())
		}
		return nil, providerErr("frame extraction", err)
	}
	defer cleanup()

	// Per-frame detection is embarrassingly parallel; dispatch on a
	// bounded pool and aggregate only once everything returned or failed.
	facts := make([]*frameFacts, len(frames))
	errs := make([]error, len(frames))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)
	for i, frame := range frames {
		wg.Add(1)
		go func(idx int, f frameSample) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			facts[idx], errs[idx] = p.analyzeFrame(ctx, f)
		}(i, frame)
	}
	wg.Wait()

	var usable []*frameFacts
	var firstErr error
	failed := 0
	for i := range facts {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		usable = append(usable, facts[i])
	}
	if failed > 0 {
		log.Warn().
			Str("job", req.JobID).
			Int("failed", failed).
			Int("total", len(frames)).
			Msg("Some frame detections failed")
	}
	if len(usable) == 0 {
		if ctx.Err() != nil {
			return nil, timeoutErr("frame detection", ctx.Err())
		}
		return nil, providerErr("frame detection", firstErr)
	}

	candidates := groupIntoScenes(req, usable)
	log.Info().
		Str("job", req.JobID).
		Int("frames", len(usable)).
		Int("candidates", len(candidates)).
		Msg("Rekognition analysis complete")
	return candidates, nil
}

// analyzeFrame issues the three detection calls for one frame under the
// per-call timeout.
func (p *RekognitionProvider) analyzeFrame(ctx context.Context, frame frameSample) (*frameFacts, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	data, err := os.ReadFile(frame.Path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	image := &rekotypes.Image{Bytes: data}
	facts := &frameFacts{Timestamp: frame.Timestamp}

	labelsOut, err := p.client.DetectLabels(callCtx, &rekognition.DetectLabelsInput{
		Image:         image,
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(minLabelConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("DetectLabels: %w", err)
	}
	for _, l := range labelsOut.Labels {
		facts.Labels = append(facts.Labels, strings.ToLower(aws.ToString(l.Name)))
	}

	facesOut, err := p.client.DetectFaces(callCtx, &rekognition.DetectFacesInput{
		Image:      image,
		Attributes: []rekotypes.Attribute{rekotypes.AttributeAll},
	})
	if err != nil {
		return nil, fmt.Errorf("DetectFaces: %w", err)
	}
	for _, face := range facesOut.FaceDetails {
		for _, emo := range face.Emotions {
			if aws.ToFloat32(emo.Confidence) >= minEmotionConfidence {
				facts.Emotions = append(facts.Emotions, strings.ToLower(string(emo.Type)))
			}
		}
	}

	celebsOut, err := p.client.RecognizeCelebrities(callCtx, &rekognition.RecognizeCelebritiesInput{Image: image})
	if err != nil {
		return nil, fmt.Errorf("RecognizeCelebrities: %w", err)
	}
	for _, celeb := range celebsOut.CelebrityFaces {
		conf := float64(aws.ToFloat32(celeb.MatchConfidence))
		if conf >= minCelebrityConfidence {
			facts.People = append(facts.People, scene.Person{
				Name:       aws.ToString(celeb.Name),
				Confidence: conf / 100,
			})
		}
	}

	return facts, nil
}

// groupIntoScenes chunks the timestamp-ordered frames into contiguous scenes
// and aggregates their detections. Aggregation is a union and therefore
// independent of frame order within a chunk.
func groupIntoScenes(req Request, frames []*frameFacts) []scene.Candidate {
	sort.Slice(frames, func(a, b int) bool { return frames[a].Timestamp < frames[b].Timestamp })

	chunk := (len(frames) + scenesPerVideo - 1) / scenesPerVideo
	if chunk < 1 {
		chunk = 1
	}
	interval := frameInterval(req.SourceDuration)

	var out []scene.Candidate
	for start := 0; start < len(frames); start += chunk {
		end := start + chunk
		if end > len(frames) {
			end = len(frames)
		}
		group := frames[start:end]

		labelSet := make(map[string]struct{})
		emotionSet := make(map[string]struct{})
		peopleBest := make(map[string]float64)
		for _, f := range group {
			for _, l := range f.Labels {
				labelSet[l] = struct{}{}
			}
			for _, e := range f.Emotions {
				emotionSet[e] = struct{}{}
			}
			for _, person := range f.People {
				if person.Confidence > peopleBest[person.Name] {
					peopleBest[person.Name] = person.Confidence
				}
			}
		}

		labels := sortedKeys(labelSet)
		emotions := sortedKeys(emotionSet)
		people := make([]scene.Person, 0, len(peopleBest))
		for name, conf := range peopleBest {
			people = append(people, scene.Person{Name: name, Confidence: conf})
		}
		sort.Slice(people, func(a, b int) bool {
			if people[a].Confidence != people[b].Confidence {
				return people[a].Confidence > people[b].Confidence
			}
			return people[a].Name < people[b].Name
		})

		sceneStart := group[0].Timestamp
		sceneEnd := math.Min(group[len(group)-1].Timestamp+interval, req.SourceDuration)
		if sceneEnd <= sceneStart {
			continue
		}

		out = append(out, scene.Candidate{
			ID:          fmt.Sprintf("%s-scene-%02d", req.JobID, len(out)),
			SourceStart: sceneStart,
			SourceEnd:   sceneEnd,
			Score:       req.Profile.Score(labels, emotions, people),
			Labels:      labels,
			Emotions:    emotions,
			People:      people,
		})
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
