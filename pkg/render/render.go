package render

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/errors"
)

// Default job values.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultFPS    = 30
)

// DefaultQuality is the preset used when the job does not name one.
const DefaultQuality = QualityMedium

// Job describes one render: frame geometry, quality, frame range, and
// the output artifact. The struct supports JSON serialization for API
// requests.
type Job struct {
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Quality    Quality `json:"quality,omitempty"`
	FrameStart int     `json:"frame_start,omitempty"`
	FrameEnd   int     `json:"frame_end,omitempty"`
	FPS        int     `json:"fps,omitempty"`
	Codec      string  `json:"codec,omitempty"`
	OutputPath string  `json:"output_path"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (j *Job) ValidateAndSetDefaults() error {
	if j.validated {
		return nil
	}
	if j.Width == 0 {
		j.Width = DefaultWidth
	}
	if j.Height == 0 {
		j.Height = DefaultHeight
	}
	if j.Width < 0 || j.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "frame size must be positive, got %dx%d", j.Width, j.Height)
	}
	if j.Quality == "" {
		j.Quality = DefaultQuality
	}
	if _, err := ParseQuality(string(j.Quality)); err != nil {
		return err
	}
	if j.FrameStart < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "frame start cannot be negative, got %d", j.FrameStart)
	}
	if j.FrameEnd < j.FrameStart {
		return errors.New(errors.ErrCodeInvalidInput, "frame range is empty: start %d, end %d", j.FrameStart, j.FrameEnd)
	}
	if j.FPS == 0 {
		j.FPS = DefaultFPS
	}
	if j.FPS < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "fps must be positive, got %d", j.FPS)
	}
	if j.Codec == "" {
		j.Codec = DefaultCodec
	}
	if err := errors.ValidateOutputPath(j.OutputPath); err != nil {
		return err
	}
	j.validated = true
	return nil
}

// FrameCount returns the number of frames in the job's range.
func (j *Job) FrameCount() int {
	return j.FrameEnd - j.FrameStart + 1
}

// Duration returns the video duration implied by frame count and rate.
func (j *Job) Duration() time.Duration {
	return time.Duration(j.FrameCount()) * time.Second / time.Duration(j.FPS)
}

// Renderer rasterizes animated scenes and encodes them to video.
type Renderer struct {
	logger  *log.Logger
	newSink sinkFactory
}

// New creates a renderer. A nil logger discards progress diagnostics.
func New(logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Renderer{logger: logger, newSink: newFFmpegSink}
}

// Render renders the job's frame range and writes the encoded video to
// job.OutputPath.
//
// The artifact is written to a uniquely named partial file next to the
// destination and renamed into place only after the encoder finishes, so
// a failed, cancelled, or timed-out job never leaves a partial video at
// the output path. A context deadline expiring mid-render fails with
// TIMEOUT; a frame that keeps failing after retries fails with
// RENDER_ERROR carrying the frame index.
func (r *Renderer) Render(ctx context.Context, a *anim.AnimatedScene, job Job) error {
	if err := job.ValidateAndSetDefaults(); err != nil {
		return err
	}
	min, max, ok := a.Scene.Bounds()
	if !ok {
		return errors.New(errors.ErrCodeRender, "scene has no geometry to render")
	}

	ss := job.Quality.Supersample()
	cam := fitCamera(min, max, job.Width*ss, job.Height*ss)
	fb := newFrameBuffer(job.Width*ss, job.Height*ss)

	partial := partialPath(job.OutputPath)
	sink, err := r.newSink(ctx, partial, job)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		sink.Abort()
		os.Remove(partial)
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.Wrap(errors.ErrCodeTimeout, err, "render deadline exceeded")
		}
		return err
	}

	start := time.Now()
	r.logger.Info("render started",
		"frames", job.FrameCount(),
		"size", fmt.Sprintf("%dx%d", job.Width, job.Height),
		"quality", job.Quality,
		"output", job.OutputPath)

	for frame := job.FrameStart; frame <= job.FrameEnd; frame++ {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		default:
		}

		img, err := r.renderWithRetry(ctx, a, cam, fb, frame, job)
		if err != nil {
			return fail(errors.Wrap(errors.ErrCodeRender, err, "frame %d failed", frame))
		}
		if err := sink.WriteFrame(img.Pix); err != nil {
			return fail(err)
		}
	}

	if err := sink.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(partial, job.OutputPath); err != nil {
		return fail(errors.Wrap(errors.ErrCodeIO, err, "finalize %s", job.OutputPath))
	}

	r.logger.Info("render finished",
		"frames", job.FrameCount(),
		"duration", job.Duration(),
		"elapsed", time.Since(start))
	return nil
}

// renderWithRetry rasterizes one frame, retrying transient failures up
// to the attempt budget.
func (r *Renderer) renderWithRetry(ctx context.Context, a *anim.AnimatedScene, cam camera, fb *frameBuffer, frame int, job Job) (*image.RGBA, error) {
	var img *image.RGBA
	attempt := 0
	err := retryFrame(ctx, frameAttempts, 100*time.Millisecond, func() error {
		attempt++
		if attempt > 1 {
			r.logger.Warn("retrying frame", "frame", frame, "attempt", attempt)
		}
		var err error
		img, err = r.rasterize(a, cam, fb, frame, job)
		return err
	})
	return img, err
}

// rasterize renders one frame into the shared supersampling buffer and
// downscales it to output resolution.
func (r *Renderer) rasterize(a *anim.AnimatedScene, cam camera, fb *frameBuffer, frame int, job Job) (*image.RGBA, error) {
	fb.clear()
	drawScene(fb, a.Scene, a.At(frame), cam, job.Quality)

	if job.Quality.Supersample() == 1 {
		out := image.NewRGBA(fb.img.Rect)
		copy(out.Pix, fb.img.Pix)
		return out, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, job.Width, job.Height))
	draw.CatmullRom.Scale(out, out.Rect, fb.img, fb.img.Rect, draw.Src, nil)
	return out, nil
}

// RenderFrame rasterizes a single frame at output resolution without
// encoding. Preview tooling and tests use it directly.
func (r *Renderer) RenderFrame(a *anim.AnimatedScene, job Job, frame int) (*image.RGBA, error) {
	if err := job.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	min, max, ok := a.Scene.Bounds()
	if !ok {
		return nil, errors.New(errors.ErrCodeRender, "scene has no geometry to render")
	}
	ss := job.Quality.Supersample()
	cam := fitCamera(min, max, job.Width*ss, job.Height*ss)
	fb := newFrameBuffer(job.Width*ss, job.Height*ss)
	return r.rasterize(a, cam, fb, frame, job)
}

// partialPath returns the unique in-progress name for an output
// artifact, in the same directory so the final rename is atomic. The
// output extension stays last because ffmpeg infers the container
// format from it.
func partialPath(out string) string {
	ext := filepath.Ext(out)
	base := strings.TrimSuffix(filepath.Base(out), ext)
	return filepath.Join(filepath.Dir(out), base+".partial-"+uuid.NewString()+ext)
}
