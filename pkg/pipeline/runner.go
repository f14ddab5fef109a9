package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/cache"
	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/observability"
	"github.com/echiweshe/sceneforge/pkg/render"
	"github.com/echiweshe/sceneforge/pkg/scene"
	"github.com/echiweshe/sceneforge/pkg/scene/builder"
	"github.com/echiweshe/sceneforge/pkg/svg"
)

// maxCachedArtifact caps the size of video artifacts copied into the cache.
// Larger outputs are still written to disk, just not cached.
const maxCachedArtifact = 64 << 20

// Result holds the outputs of a pipeline run.
type Result struct {
	Document     *svg.Document
	Scene        *scene.Scene
	Animated     *anim.AnimatedScene
	DocumentHash string
	SceneHash    string

	// ObjectsCreated lists the ids of every scene node the run produced.
	ObjectsCreated []string

	// OutputPath is empty when the run skipped rendering.
	OutputPath string

	Stats     Stats
	CacheInfo CacheInfo
}

// Runner executes pipeline stages with caching. The zero value is not
// usable; construct with NewRunner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// renderScene is swapped out in tests to avoid the ffmpeg dependency.
	renderScene func(ctx context.Context, logger *log.Logger, a *anim.AnimatedScene, job render.Job) error
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// falls back to the default key scheme and a nil logger discards output.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		renderScene: func(ctx context.Context, logger *log.Logger, a *anim.AnimatedScene, job render.Job) error {
			return render.New(logger).Render(ctx, a, job)
		},
	}
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	return r.Cache.Close()
}

func (r *Runner) loggerFor(opts *Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}

// Execute runs every stage for the given options and returns the combined
// result. Failures are wrapped in a StageError naming the stage.
func (r *Runner) Execute(ctx context.Context, opts *Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.loggerFor(opts)
	hooks := observability.Pipeline()
	res := &Result{}
	if !opts.SkipRender {
		res.OutputPath = opts.OutputPath
	}

	start := time.Now()
	hooks.OnStageStart(ctx, string(StageParsing))
	doc, hit, err := r.ParseWithCacheInfo(ctx, opts)
	res.Stats.ParseTime = time.Since(start)
	hooks.OnStageComplete(ctx, string(StageParsing), res.Stats.ParseTime, err)
	if err != nil {
		return nil, stageErr(StageParsing, err)
	}
	res.Document = doc
	res.DocumentHash = cache.Hash(opts.Markup)
	res.CacheInfo.ParseHit = hit
	res.Stats.ElementCount = doc.DrawableCount()
	logger.Info("parsed document",
		"name", opts.Name, "elements", res.Stats.ElementCount,
		"cached", hit, "duration", res.Stats.ParseTime)

	start = time.Now()
	hooks.OnStageStart(ctx, string(StageBuilding))
	s, hit, err := r.BuildWithCacheInfo(ctx, doc, res.DocumentHash, opts)
	res.Stats.BuildTime = time.Since(start)
	hooks.OnStageComplete(ctx, string(StageBuilding), res.Stats.BuildTime, err)
	if err != nil {
		return nil, stageErr(StageBuilding, err)
	}
	res.Scene = s
	res.SceneHash = r.sceneHash(s)
	res.CacheInfo.BuildHit = hit
	res.Stats.NodeCount = s.NodeCount()
	res.ObjectsCreated = s.IDs()
	logger.Info("built scene",
		"name", opts.Name, "nodes", res.Stats.NodeCount,
		"cached", hit, "duration", res.Stats.BuildTime)

	start = time.Now()
	if opts.Animated() {
		hooks.OnStageStart(ctx, string(StageAnimating))
	}
	animated, err := r.Animate(s, opts)
	res.Stats.AnimateTime = time.Since(start)
	if opts.Animated() {
		hooks.OnStageComplete(ctx, string(StageAnimating), res.Stats.AnimateTime, err)
	}
	if err != nil {
		return nil, stageErr(StageAnimating, err)
	}
	res.Animated = animated
	if opts.Animated() {
		logger.Info("bound timeline",
			"name", opts.Name, "tracks", len(opts.Tracks), "duration", res.Stats.AnimateTime)
	}

	if opts.SkipRender {
		return res, nil
	}

	start = time.Now()
	hooks.OnStageStart(ctx, string(StageRendering))
	hit, err = r.RenderWithCacheInfo(ctx, animated, res.SceneHash, opts)
	res.Stats.RenderTime = time.Since(start)
	hooks.OnStageComplete(ctx, string(StageRendering), res.Stats.RenderTime, err)
	if err != nil {
		return nil, stageErr(StageRendering, err)
	}
	res.CacheInfo.RenderHit = hit
	res.Stats.FrameCount = opts.FrameEnd - opts.FrameStart + 1
	logger.Info("rendered artifact",
		"name", opts.Name, "output", opts.OutputPath, "frames", res.Stats.FrameCount,
		"cached", hit, "duration", res.Stats.RenderTime)

	return res, nil
}

// =============================================================================
// Stage methods
// =============================================================================

// ParseWithCacheInfo parses the markup, serving the document from cache
// when the same bytes were parsed before. The bool reports a cache hit.
func (r *Runner) ParseWithCacheInfo(ctx context.Context, opts *Options) (*svg.Document, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.DocumentKey(cache.Hash(opts.Markup))
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
			var doc svg.Document
			if err := json.Unmarshal(data, &doc); err == nil {
				cacheHooks.OnCacheHit(ctx, "document")
				return &doc, true, nil
			}
			// A corrupt entry is dropped and the document reparsed.
			_ = r.Cache.Delete(ctx, key)
		}
	}
	cacheHooks.OnCacheMiss(ctx, "document")

	doc, err := svg.NewParser(r.loggerFor(opts)).Parse(opts.Markup)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(doc); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.DocumentTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, "document", len(data))
		}
	}
	return doc, false, nil
}

// Parse parses the markup, discarding cache information.
func (r *Runner) Parse(ctx context.Context, opts *Options) (*svg.Document, error) {
	doc, _, err := r.ParseWithCacheInfo(ctx, opts)
	return doc, err
}

// BuildWithCacheInfo builds the scene for the document, serving it from
// cache when the same document was built with the same settings before.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, doc *svg.Document, docHash string, opts *Options) (*scene.Scene, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.SceneKey(docHash, opts.SceneKeyOpts())
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
			if s, err := scene.ReadJSON(bytes.NewReader(data)); err == nil {
				cacheHooks.OnCacheHit(ctx, "scene")
				return s, true, nil
			}
			_ = r.Cache.Delete(ctx, key)
		}
	}
	cacheHooks.OnCacheMiss(ctx, "scene")

	b, err := builder.New(opts.builderConfig(), r.loggerFor(opts))
	if err != nil {
		return nil, false, err
	}
	s, err := b.Build(doc)
	if err != nil {
		return nil, false, err
	}
	var buf bytes.Buffer
	if err := scene.WriteJSON(s, &buf); err == nil {
		if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.SceneTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, "scene", buf.Len())
		}
	}
	return s, false, nil
}

// Build builds the scene, discarding cache information.
func (r *Runner) Build(ctx context.Context, doc *svg.Document, docHash string, opts *Options) (*scene.Scene, error) {
	s, _, err := r.BuildWithCacheInfo(ctx, doc, docHash, opts)
	return s, err
}

// Animate binds the options' timeline to the scene. Without tracks the
// scene passes through as a static animated scene.
func (r *Runner) Animate(s *scene.Scene, opts *Options) (*anim.AnimatedScene, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return anim.Apply(s, opts.Tracks)
}

// RenderWithCacheInfo renders the animated scene to the output path,
// copying a previously encoded artifact out of the cache when available.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, a *anim.AnimatedScene, sceneHash string, opts *Options) (bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return false, err
	}
	key := r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts())
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
			if err := writeArtifact(opts.OutputPath, data); err != nil {
				return false, errors.Wrap(errors.ErrCodeIO, err, "writing cached artifact %q", opts.OutputPath)
			}
			cacheHooks.OnCacheHit(ctx, "artifact")
			return true, nil
		}
	}
	cacheHooks.OnCacheMiss(ctx, "artifact")

	if err := r.renderScene(ctx, r.loggerFor(opts), a, opts.renderJob()); err != nil {
		return false, err
	}
	if data, err := os.ReadFile(opts.OutputPath); err == nil && len(data) <= maxCachedArtifact {
		if err := r.Cache.Set(ctx, key, data, cache.ArtifactTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return false, nil
}

// writeArtifact lands cached artifact bytes at path via a temp file in
// the same directory and a rename, so an interrupted write never leaves
// a truncated video at the caller's path.
func writeArtifact(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".partial-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Render renders the animated scene, discarding cache information.
func (r *Runner) Render(ctx context.Context, a *anim.AnimatedScene, sceneHash string, opts *Options) error {
	_, err := r.RenderWithCacheInfo(ctx, a, sceneHash, opts)
	return err
}

func (r *Runner) sceneHash(s *scene.Scene) string {
	return SceneHash(s)
}

// SceneHash returns the content hash of a scene's snapshot form, the hash
// artifact cache keys are derived from.
func SceneHash(s *scene.Scene) string {
	var buf bytes.Buffer
	if err := scene.WriteJSON(s, &buf); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}
