package registry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/observability"
	"github.com/echiweshe/sceneforge/pkg/pipeline"
)

// jobRequest is the POST /jobs payload.
type jobRequest struct {
	Tool      string `json:"tool"`
	Markup    string `json:"markup,omitempty"`
	InputPath string `json:"input_path,omitempty"`

	// Timeline is an inline YAML timeline document.
	Timeline     string `json:"timeline,omitempty"`
	TimelinePath string `json:"timeline_path,omitempty"`

	ScaleFactor     float64 `json:"scale_factor,omitempty"`
	ExtrudeDepth    float64 `json:"extrude_depth,omitempty"`
	BevelDepth      float64 `json:"bevel_depth,omitempty"`
	BevelResolution int     `json:"bevel_resolution,omitempty"`
	Tolerance       float64 `json:"tolerance,omitempty"`

	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Quality    string `json:"quality,omitempty"`
	FrameStart int    `json:"frame_start,omitempty"`
	FrameEnd   int    `json:"frame_end,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Codec      string `json:"codec,omitempty"`
	OutputPath string `json:"output_path,omitempty"`

	Refresh bool `json:"refresh,omitempty"`
}

func (req *jobRequest) options() (*pipeline.Options, error) {
	tracks, err := parseTimeline([]byte(req.Timeline))
	if err != nil {
		return nil, err
	}
	return &pipeline.Options{
		Markup:          []byte(req.Markup),
		InputPath:       req.InputPath,
		Tracks:          tracks,
		TimelinePath:    req.TimelinePath,
		ScaleFactor:     req.ScaleFactor,
		ExtrudeDepth:    req.ExtrudeDepth,
		BevelDepth:      req.BevelDepth,
		BevelResolution: req.BevelResolution,
		Tolerance:       req.Tolerance,
		Width:           req.Width,
		Height:          req.Height,
		Quality:         req.Quality,
		FrameStart:      req.FrameStart,
		FrameEnd:        req.FrameEnd,
		FPS:             req.FPS,
		Codec:           req.Codec,
		OutputPath:      req.OutputPath,
		Refresh:         req.Refresh,
	}, nil
}

// Router exposes the registry over HTTP:
//
//	POST /jobs      submit a job, returns 202 with the pending record
//	GET  /jobs/{id} poll a job
//	GET  /tools     list available tools
//	GET  /healthz   liveness probe
func (r *Registry) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(hookMiddleware)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Get("/tools", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Tools())
	})
	mux.Post("/jobs", r.handleSubmit)
	mux.Get("/jobs/{id}", r.handleJob)
	return mux
}

func (r *Registry) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var body jobRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed request body"))
		return
	}
	opts, err := body.options()
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := r.submit(req.Context(), body.Tool, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (r *Registry) handleJob(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	job, ok := r.pool.Job(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// hookMiddleware reports requests to the observability server hooks.
func hookMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hooks := observability.Server()
		hooks.OnRequest(req.Context(), req.Method, req.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		hooks.OnResponse(req.Context(), req.Method, req.URL.Path, ww.Status(), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeParse, errors.ErrCodeEmptyDocument,
		errors.ErrCodeUnknownTarget, errors.ErrCodeNotSupported:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
