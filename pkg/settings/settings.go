// Package settings stores the user-adjustable defaults applied to new
// jobs: conversion parameters for the scene builder and output parameters
// for the renderer.
//
// Two backends are provided: a TOML file for single-user installs and a
// MongoDB collection for shared deployments. Both hand back Default()
// when nothing was saved yet, so callers always receive a complete set.
package settings

import (
	"context"

	"github.com/echiweshe/sceneforge/pkg/pipeline"
	"github.com/echiweshe/sceneforge/pkg/render"
	"github.com/echiweshe/sceneforge/pkg/scene/builder"
)

// Conversion are the scene builder defaults.
type Conversion struct {
	ScaleFactor     float64 `toml:"scale_factor" json:"scale_factor" bson:"scale_factor"`
	ExtrudeDepth    float64 `toml:"extrude_depth" json:"extrude_depth" bson:"extrude_depth"`
	BevelDepth      float64 `toml:"bevel_depth" json:"bevel_depth" bson:"bevel_depth"`
	BevelResolution int     `toml:"bevel_resolution" json:"bevel_resolution" bson:"bevel_resolution"`
	Tolerance       float64 `toml:"tolerance" json:"tolerance" bson:"tolerance"`
}

// Render are the output defaults.
type Render struct {
	Width   int    `toml:"width" json:"width" bson:"width"`
	Height  int    `toml:"height" json:"height" bson:"height"`
	Quality string `toml:"quality" json:"quality" bson:"quality"`
	FPS     int    `toml:"fps" json:"fps" bson:"fps"`
	Codec   string `toml:"codec" json:"codec" bson:"codec"`
}

// Settings is the full persisted set.
type Settings struct {
	Conversion Conversion `toml:"conversion" json:"conversion" bson:"conversion"`
	Render     Render     `toml:"render" json:"render" bson:"render"`
}

// Default returns the built-in defaults.
func Default() Settings {
	cfg := builder.DefaultConfig()
	return Settings{
		Conversion: Conversion{
			ScaleFactor:     cfg.ScaleFactor,
			ExtrudeDepth:    cfg.ExtrudeDepth,
			BevelDepth:      cfg.BevelDepth,
			BevelResolution: cfg.BevelResolution,
			Tolerance:       cfg.Tolerance,
		},
		Render: Render{
			Width:   render.DefaultWidth,
			Height:  render.DefaultHeight,
			Quality: string(render.DefaultQuality),
			FPS:     render.DefaultFPS,
			Codec:   render.DefaultCodec,
		},
	}
}

// Apply copies the settings onto pipeline options, leaving fields the
// caller already set untouched.
func (s Settings) Apply(opts *pipeline.Options) {
	if opts.ScaleFactor == 0 {
		opts.ScaleFactor = s.Conversion.ScaleFactor
	}
	if opts.ExtrudeDepth == 0 {
		opts.ExtrudeDepth = s.Conversion.ExtrudeDepth
	}
	if opts.BevelDepth == 0 {
		opts.BevelDepth = s.Conversion.BevelDepth
	}
	if opts.BevelResolution == 0 {
		opts.BevelResolution = s.Conversion.BevelResolution
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = s.Conversion.Tolerance
	}
	if opts.Width == 0 {
		opts.Width = s.Render.Width
	}
	if opts.Height == 0 {
		opts.Height = s.Render.Height
	}
	if opts.Quality == "" {
		opts.Quality = s.Render.Quality
	}
	if opts.FPS == 0 {
		opts.FPS = s.Render.FPS
	}
	if opts.Codec == "" {
		opts.Codec = s.Render.Codec
	}
}

// Store is the persistence interface for settings backends.
type Store interface {
	// Load returns the saved settings, or Default() when none exist.
	Load(ctx context.Context) (Settings, error)

	// Save persists the settings.
	Save(ctx context.Context, s Settings) error

	// Close releases the backend.
	Close() error
}
