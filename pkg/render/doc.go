// Package render turns animated scenes into video files.
//
// # Overview
//
// The renderer walks a scene per frame, rasterizes it with a pure-Go
// z-buffered scanline pass, and streams the raw RGBA frames into an
// ffmpeg process that encodes the final video. It provides:
//
//   - Deterministic camera framing fitted to the scene bounds
//   - Quality presets controlling supersampling and shading
//   - Per-frame retry with bounded attempts
//   - Atomic artifact delivery (no partial video ever lands at the
//     output path)
//
// # Usage
//
//	r := render.New(logger)
//	job := render.Job{
//	    Width:      1280,
//	    Height:     720,
//	    Quality:    render.QualityMedium,
//	    FrameStart: 0,
//	    FrameEnd:   119,
//	    FPS:        30,
//	    OutputPath: "out.mp4",
//	}
//	err := r.Render(ctx, animated, job)
//
// Single frames can be rasterized without encoding via [Renderer.RenderFrame],
// which preview tooling and tests use.
package render
