package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/echiweshe/sceneforge/pkg/pipeline"
	"github.com/echiweshe/sceneforge/pkg/scene"
)

// convertOpts holds the command-line flags for the convert command.
type convertOpts struct {
	output          string  // scene snapshot output path ("-" or empty for stdout)
	scaleFactor     float64 // document units to world units
	extrudeDepth    float64 // extrusion depth in world units
	bevelDepth      float64 // bevel inset depth in world units
	bevelResolution int     // segments per bevel curve
	tolerance       float64 // curve flattening tolerance
	noCache         bool    // bypass the pipeline cache entirely
	refresh         bool    // ignore cached entries but store fresh ones
}

// convertCommand creates the convert command. It runs the parse and build
// stages only and writes the resulting scene as a JSON snapshot.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert [input.svg]",
		Short: "Convert an SVG document into a 3D scene snapshot",
		Long: `Convert parses an SVG document, extrudes every drawable element into
3D geometry, and writes the scene graph as JSON. The snapshot can be
inspected, versioned, or fed back into the render pipeline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file for the scene snapshot (default: stdout)")
	cmd.Flags().Float64Var(&opts.scaleFactor, "scale", 0, "document units to world units (default 0.01)")
	cmd.Flags().Float64Var(&opts.extrudeDepth, "depth", 0, "extrusion depth in world units (default 0.1)")
	cmd.Flags().Float64Var(&opts.bevelDepth, "bevel", 0, "bevel inset depth in world units (default 0.02)")
	cmd.Flags().IntVar(&opts.bevelResolution, "bevel-resolution", 0, "segments per bevel curve (default 4)")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 0, "curve flattening tolerance")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the pipeline cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached entries, store fresh results")

	return cmd
}

func (c *CLI) runConvert(cmd *cobra.Command, input string, opts *convertOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Execute(cmd.Context(), &pipeline.Options{
		InputPath:       input,
		ScaleFactor:     opts.scaleFactor,
		ExtrudeDepth:    opts.extrudeDepth,
		BevelDepth:      opts.bevelDepth,
		BevelResolution: opts.bevelResolution,
		Tolerance:       opts.tolerance,
		SkipRender:      true,
		Refresh:         opts.refresh,
		Logger:          c.Logger,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Built scene with %d nodes", res.Stats.NodeCount))

	w, closeFn, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := scene.WriteJSON(res.Scene, w); err != nil {
		return fmt.Errorf("write scene snapshot: %w", err)
	}

	if opts.output != "" && opts.output != "-" {
		printSuccess("Converted %s", input)
		printStats(res.Stats.ElementCount, res.Stats.NodeCount, 0, res.CacheInfo.BuildHit)
		printFile(opts.output)
		printNextStep("Render it", fmt.Sprintf("%s render %s -o out.mp4", appName, input))
	}
	return nil
}

// openOutput returns a writer for the given path. Empty or "-" selects
// stdout with a no-op closer.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || strings.TrimSpace(path) == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
