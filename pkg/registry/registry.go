// Package registry names the operations the service exposes and maps
// them onto pipeline runs. Each tool shapes the submitted options: the
// conversion tools stop after the scene is built, the render tool
// produces a video artifact. An HTTP surface for job submission and
// polling is provided by Router.
package registry

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/pipeline"
	"github.com/echiweshe/sceneforge/pkg/settings"
	"github.com/echiweshe/sceneforge/pkg/worker"
)

// Tool is one named operation.
type Tool struct {
	// Name identifies the tool in requests.
	Name string `json:"name"`

	// Description is shown in tool listings.
	Description string `json:"description"`

	// prepare shapes the options for this tool before submission.
	prepare func(opts *pipeline.Options) error
}

// The built-in tool table.
var tools = map[string]Tool{
	"svg_to_3d": {
		Name:        "svg_to_3d",
		Description: "Convert a vector document into an extruded 3D scene.",
		prepare: func(opts *pipeline.Options) error {
			opts.SkipRender = true
			opts.Tracks = nil
			opts.TimelinePath = ""
			return nil
		},
	},
	"animate_scene": {
		Name:        "animate_scene",
		Description: "Bind a keyframe timeline to a converted scene.",
		prepare: func(opts *pipeline.Options) error {
			if len(opts.Tracks) == 0 && opts.TimelinePath == "" {
				return errors.New(errors.ErrCodeInvalidInput, "animate_scene requires a timeline")
			}
			opts.SkipRender = true
			return nil
		},
	},
	"render_scene": {
		Name:        "render_scene",
		Description: "Render a scene, optionally animated, to a video file.",
		prepare: func(opts *pipeline.Options) error {
			opts.SkipRender = false
			return nil
		},
	},
}

// Tools lists the available tools sorted by name.
func Tools() []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invocation is the outcome of a synchronous tool call.
type Invocation struct {
	JobID          string       `json:"job_id"`
	Status         worker.State `json:"status"`
	ObjectsCreated []string     `json:"objects_created,omitempty"`
	OutputPath     string       `json:"output_path,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Registry dispatches tool calls onto a worker pool.
type Registry struct {
	pool     *worker.Pool
	settings settings.Store
	logger   *log.Logger
}

// New creates a registry. The settings store is optional; when present,
// saved defaults fill unset option fields before submission.
func New(pool *worker.Pool, store settings.Store, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{pool: pool, settings: store, logger: logger}
}

// Invoke runs a tool to completion.
func (r *Registry) Invoke(ctx context.Context, tool string, opts *pipeline.Options) (Invocation, error) {
	job, err := r.submit(ctx, tool, opts)
	if err != nil {
		return Invocation{}, err
	}
	done, err := r.pool.Wait(ctx, job.ID)
	if err != nil {
		return Invocation{JobID: job.ID}, err
	}
	return Invocation{
		JobID:          done.ID,
		Status:         done.State,
		ObjectsCreated: done.ObjectsCreated,
		OutputPath:     done.OutputPath,
		Error:          done.Error,
	}, nil
}

// submit shapes the options for the tool and queues the job.
func (r *Registry) submit(ctx context.Context, tool string, opts *pipeline.Options) (worker.Job, error) {
	t, ok := tools[tool]
	if !ok {
		return worker.Job{}, errors.New(errors.ErrCodeNotSupported, "unknown tool %q", tool)
	}
	if err := t.prepare(opts); err != nil {
		return worker.Job{}, err
	}
	if r.settings != nil {
		saved, err := r.settings.Load(ctx)
		if err != nil {
			return worker.Job{}, err
		}
		saved.Apply(opts)
	}
	r.logger.Info("invoking tool", "tool", tool)
	return r.pool.Submit(ctx, opts)
}

// parseTimeline decodes an inline YAML timeline for HTTP submissions.
func parseTimeline(data []byte) ([]anim.Track, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return anim.ParseTimeline(data)
}
