package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/echiweshe/sceneforge/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output          string  // video output path
	timeline        string  // timeline YAML path (optional)
	scaleFactor     float64 // document units to world units
	extrudeDepth    float64 // extrusion depth in world units
	bevelDepth      float64 // bevel inset depth in world units
	bevelResolution int     // segments per bevel curve
	tolerance       float64 // curve flattening tolerance
	width           int     // frame width in pixels
	height          int     // frame height in pixels
	quality         string  // render quality preset: low, medium, high
	frameStart      int     // first frame to render
	frameEnd        int     // last frame to render (0: derived from timeline)
	fps             int     // frames per second
	codec           string  // ffmpeg video codec
	noCache         bool    // bypass the pipeline cache entirely
	refresh         bool    // ignore cached entries but store fresh ones
}

// renderCommand creates the render command. It runs the full pipeline:
// parse, build, optional animation binding, and video encoding.
//
// Default settings:
//   - width: 1280px, height: 720px
//   - quality: medium, fps: 30, codec: libx264
//   - frame range: 0 through the timeline's last keyframe (single frame
//     when no timeline is given)
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [input.svg]",
		Short: "Render an SVG document to an animated video",
		Long: `Render runs the full pipeline: the SVG document is parsed, extruded
into a 3D scene, optionally bound to a keyframe timeline, and encoded
to video with ffmpeg. Without a timeline a single-frame video of the
static scene is produced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return fmt.Errorf("--output is required")
			}
			return c.runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output video file (required)")
	cmd.Flags().StringVarP(&opts.timeline, "timeline", "t", "", "timeline YAML file with keyframe tracks")
	cmd.Flags().Float64Var(&opts.scaleFactor, "scale", 0, "document units to world units (default 0.01)")
	cmd.Flags().Float64Var(&opts.extrudeDepth, "depth", 0, "extrusion depth in world units (default 0.1)")
	cmd.Flags().Float64Var(&opts.bevelDepth, "bevel", 0, "bevel inset depth in world units (default 0.02)")
	cmd.Flags().IntVar(&opts.bevelResolution, "bevel-resolution", 0, "segments per bevel curve (default 4)")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 0, "curve flattening tolerance")
	cmd.Flags().IntVar(&opts.width, "width", 0, "frame width in pixels (default 1280)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "frame height in pixels (default 720)")
	cmd.Flags().StringVar(&opts.quality, "quality", "", "render quality: low, medium (default), high")
	cmd.Flags().IntVar(&opts.frameStart, "frame-start", 0, "first frame to render")
	cmd.Flags().IntVar(&opts.frameEnd, "frame-end", 0, "last frame to render (default: last keyframe)")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "frames per second (default 30)")
	cmd.Flags().StringVar(&opts.codec, "codec", "", "video codec (default libx264)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the pipeline cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached entries, store fresh results")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts *renderOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(cmd.Context(), "Rendering "+input)
	spinner.Start()

	res, err := runner.Execute(cmd.Context(), &pipeline.Options{
		InputPath:       input,
		ScaleFactor:     opts.scaleFactor,
		ExtrudeDepth:    opts.extrudeDepth,
		BevelDepth:      opts.bevelDepth,
		BevelResolution: opts.bevelResolution,
		Tolerance:       opts.tolerance,
		TimelinePath:    opts.timeline,
		Width:           opts.width,
		Height:          opts.height,
		Quality:         opts.quality,
		FrameStart:      opts.frameStart,
		FrameEnd:        opts.frameEnd,
		FPS:             opts.fps,
		Codec:           opts.codec,
		OutputPath:      opts.output,
		Refresh:         opts.refresh,
		Logger:          c.Logger,
	})
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return cmd.Context().Err()
		}
		spinner.StopWithError(fmt.Sprintf("Render failed: %s", err))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %d frames", res.Stats.FrameCount))

	printStats(res.Stats.ElementCount, res.Stats.NodeCount, res.Stats.FrameCount, res.CacheInfo.RenderHit)
	printFile(res.OutputPath)
	return nil
}
