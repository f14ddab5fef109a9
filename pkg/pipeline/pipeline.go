// Package pipeline orchestrates the conversion of a markup document into a
// rendered video artifact. The pipeline runs up to four stages in order:
//
//  1. parsing: markup bytes become a svg.Document
//  2. building: the document becomes an extruded scene.Scene
//  3. animating: timeline tracks are bound to scene nodes (skipped when the
//     timeline is empty)
//  4. rendering: the animated scene is rasterized and encoded to video
//
// Stage outputs are cached by content hash, so repeated runs over the same
// input reuse parsed documents, built scenes and encoded artifacts.
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.RunnerConfig{})
//	defer runner.Close()
//
//	result, err := runner.Execute(ctx, &pipeline.Options{
//		InputPath:  "drawing.svg",
//		OutputPath: "drawing.mp4",
//	})
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/cache"
	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/render"
	"github.com/echiweshe/sceneforge/pkg/scene/builder"
)

// =============================================================================
// Stages
// =============================================================================

// Stage identifies one phase of a pipeline run.
type Stage string

const (
	StageParsing   Stage = "parsing"
	StageBuilding  Stage = "building"
	StageAnimating Stage = "animating"
	StageRendering Stage = "rendering"
)

// StageError wraps a failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// =============================================================================
// Options
// =============================================================================

// Options configures a single pipeline run.
type Options struct {
	// Input. Markup takes precedence; when empty, InputPath is read.
	Markup    []byte `json:"-"`
	InputPath string `json:"input_path,omitempty"`

	// Name labels the run in logs. Defaults to the input file base name.
	Name string `json:"name,omitempty"`

	// Build options. Zero values fall back to builder defaults.
	ScaleFactor     float64 `json:"scale_factor,omitempty"`
	ExtrudeDepth    float64 `json:"extrude_depth,omitempty"`
	BevelDepth      float64 `json:"bevel_depth,omitempty"`
	BevelResolution int     `json:"bevel_resolution,omitempty"`
	Tolerance       float64 `json:"tolerance,omitempty"`

	// Animation. Tracks take precedence; when empty, TimelinePath is loaded.
	// With neither set, the run renders the static scene.
	Tracks       []anim.Track `json:"-"`
	TimelinePath string       `json:"timeline_path,omitempty"`

	// Render options. Zero values fall back to render defaults, and a zero
	// FrameEnd is derived from the timeline's last keyframe.
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Quality    string `json:"quality,omitempty"`
	FrameStart int    `json:"frame_start,omitempty"`
	FrameEnd   int    `json:"frame_end,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Codec      string `json:"codec,omitempty"`
	OutputPath string `json:"output_path,omitempty"`

	// SkipRender stops the run after the scene (and timeline, if any) is
	// built. No output path is required and no artifact is produced.
	SkipRender bool `json:"skip_render,omitempty"`

	// Refresh bypasses cache reads. Fresh results are still cached.
	Refresh bool `json:"refresh,omitempty"`

	// Logger overrides the runner's logger for this run.
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent and must be called before the options are used.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if len(o.Markup) == 0 && o.InputPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "markup or input path is required")
	}
	if len(o.Markup) == 0 {
		data, err := os.ReadFile(o.InputPath)
		if err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "reading input %q", o.InputPath)
		}
		o.Markup = data
	}
	if o.Name == "" {
		if o.InputPath != "" {
			base := filepath.Base(o.InputPath)
			o.Name = strings.TrimSuffix(base, filepath.Ext(base))
		} else {
			o.Name = "scene"
		}
	}

	if len(o.Tracks) == 0 && o.TimelinePath != "" {
		tracks, err := anim.LoadTimeline(o.TimelinePath)
		if err != nil {
			return err
		}
		o.Tracks = tracks
	}

	cfg := o.builderConfig()
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return err
	}
	o.ScaleFactor = cfg.ScaleFactor
	o.ExtrudeDepth = cfg.ExtrudeDepth
	o.BevelDepth = cfg.BevelDepth
	o.BevelResolution = cfg.BevelResolution
	o.Tolerance = cfg.Tolerance

	if !o.SkipRender {
		if o.OutputPath == "" {
			return errors.New(errors.ErrCodeInvalidInput, "output path is required")
		}
		if o.FrameEnd == 0 {
			for _, t := range o.Tracks {
				for _, kf := range t.Keyframes {
					if kf.Frame > o.FrameEnd {
						o.FrameEnd = kf.Frame
					}
				}
			}
		}
		job := o.renderJob()
		if err := job.ValidateAndSetDefaults(); err != nil {
			return err
		}
		o.Width = job.Width
		o.Height = job.Height
		o.Quality = string(job.Quality)
		o.FrameStart = job.FrameStart
		o.FrameEnd = job.FrameEnd
		o.FPS = job.FPS
		o.Codec = job.Codec
	}

	o.validated = true
	return nil
}

// Animated reports whether the run carries a timeline.
func (o *Options) Animated() bool {
	return len(o.Tracks) > 0
}

func (o *Options) builderConfig() builder.Config {
	return builder.Config{
		ScaleFactor:     o.ScaleFactor,
		ExtrudeDepth:    o.ExtrudeDepth,
		BevelDepth:      o.BevelDepth,
		BevelResolution: o.BevelResolution,
		Tolerance:       o.Tolerance,
	}
}

func (o *Options) renderJob() render.Job {
	return render.Job{
		Width:      o.Width,
		Height:     o.Height,
		Quality:    render.Quality(o.Quality),
		FrameStart: o.FrameStart,
		FrameEnd:   o.FrameEnd,
		FPS:        o.FPS,
		Codec:      o.Codec,
		OutputPath: o.OutputPath,
	}
}

// SceneKeyOpts returns the build parameters that shape the cached scene.
func (o *Options) SceneKeyOpts() cache.SceneKeyOpts {
	return cache.SceneKeyOpts{
		ScaleFactor:     o.ScaleFactor,
		ExtrudeDepth:    o.ExtrudeDepth,
		BevelDepth:      o.BevelDepth,
		BevelResolution: o.BevelResolution,
		Tolerance:       o.Tolerance,
	}
}

// ArtifactKeyOpts returns the render parameters that shape the cached video.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	timelineHash := ""
	if len(o.Tracks) > 0 {
		data, _ := json.Marshal(o.Tracks)
		timelineHash = cache.Hash(data)
	}
	return cache.ArtifactKeyOpts{
		Width:        o.Width,
		Height:       o.Height,
		Quality:      o.Quality,
		FrameStart:   o.FrameStart,
		FrameEnd:     o.FrameEnd,
		FPS:          o.FPS,
		Codec:        o.Codec,
		TimelineHash: timelineHash,
	}
}

// =============================================================================
// Results
// =============================================================================

// Stats records per-stage timings and output sizes for one run.
type Stats struct {
	ElementCount int           `json:"element_count"`
	NodeCount    int           `json:"node_count"`
	FrameCount   int           `json:"frame_count"`
	ParseTime    time.Duration `json:"parse_time"`
	BuildTime    time.Duration `json:"build_time"`
	AnimateTime  time.Duration `json:"animate_time"`
	RenderTime   time.Duration `json:"render_time"`
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	ParseHit  bool `json:"parse_hit"`
	BuildHit  bool `json:"build_hit"`
	RenderHit bool `json:"render_hit"`
}

// Total returns the summed stage durations.
func (s Stats) Total() time.Duration {
	return s.ParseTime + s.BuildTime + s.AnimateTime + s.RenderTime
}
