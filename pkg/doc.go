// Package pkg provides the core libraries for SceneForge.
//
// # Overview
//
// SceneForge turns 2D vector drawings into extruded, animated 3D scenes
// and renders them to video. The pkg directory is organized into four
// main areas:
//
//  1. Parsing - SVG document model and path geometry ([svg], [geom])
//  2. Scene - 3D scene graph and extrusion ([scene], [scene/builder])
//  3. Animation & rendering - keyframe timelines and video output ([anim], [render])
//  4. Orchestration - pipeline, caching, jobs, and serving ([pipeline], [cache], [worker], [bus], [registry], [settings])
//
// # Architecture
//
// The typical data flow through SceneForge:
//
//	SVG document
//	     ↓
//	[svg] package (parse elements, styles, transforms)
//	     ↓
//	[scene/builder] package (flatten paths, extrude to 3D)
//	     ↓
//	[anim] package (bind keyframe tracks, optional)
//	     ↓
//	[render] package (rasterize frames, encode with ffmpeg)
//	     ↓
//	MP4/WebM artifact
//
// # Quick Start
//
// Run the full pipeline:
//
//	import "github.com/echiweshe/sceneforge/pkg/pipeline"
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Execute(ctx, &pipeline.Options{
//	    InputPath:    "drawing.svg",
//	    TimelinePath: "timeline.yaml",
//	    OutputPath:   "out.mp4",
//	})
//
// # Main Packages
//
// [svg] - SVG parser producing a typed document model: shapes, paths,
// groups, styles, and affine transforms.
//
// [geom] - 2D path flattening and 3D math: vectors, matrices,
// triangulation, and extrusion primitives.
//
// [scene] - 3D scene graph with nodes, meshes, materials, and JSON
// snapshots. [scene/builder] converts parsed documents into scenes.
//
// [anim] - Keyframe timelines. Tracks target scene nodes by ID and
// interpolate position, rotation, scale, and opacity per frame.
//
// [render] - Software rasterizer and ffmpeg encoder producing video
// artifacts from animated scenes.
//
// [pipeline] - Orchestrates parse, build, animate, and render with
// content-addressed caching. Used by the CLI and the HTTP server.
//
// [cache] - Cache interface with file, memory, and null backends, plus
// the key scheme for documents, scenes, and artifacts.
//
// [worker] - Job pool running pipelines concurrently with a per-job
// state machine (pending through done or failed).
//
// [bus] - Job event fan-out with in-process and Redis backends.
//
// [registry] - Named tool registry (svg_to_3d, animate_scene,
// render_scene) and the HTTP API exposing it.
//
// [settings] - Persisted conversion and render defaults with TOML file
// and MongoDB backends.
//
// [errors] - Coded errors shared across packages, mapped to HTTP status
// codes at the API boundary.
//
// [observability] - Hook points for stage and job lifecycle events.
//
// [svg]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/svg
// [geom]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/geom
// [scene]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/scene
// [scene/builder]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/scene/builder
// [anim]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/anim
// [render]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/cache
// [worker]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/worker
// [bus]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/bus
// [registry]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/registry
// [settings]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/settings
// [errors]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/errors
// [observability]: https://pkg.go.dev/github.com/echiweshe/sceneforge/pkg/observability
package pkg
