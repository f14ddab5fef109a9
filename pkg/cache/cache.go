// Package cache provides content-addressed caching for pipeline stages.
//
// Parsed documents, built scenes, and rendered artifacts are cached
// under deterministic keys derived from their inputs, so re-running a
// pipeline with identical inputs can skip whole stages. Backends share
// the [Cache] interface; the [Keyer] interface produces the stage keys.
package cache

import (
	"context"
	"time"
)

// Default TTLs per stage. Documents and scenes are cheap to rebuild and
// keyed by content, so they keep a long TTL; rendered artifacts are
// large and get evicted sooner.
const (
	DocumentTTL = 7 * 24 * time.Hour
	SceneTTL    = 7 * 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)

// Cache is a byte-oriented cache backend.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl stores without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// SceneKeyOpts are the builder settings that shape a scene, hashed into
// the scene cache key.
type SceneKeyOpts struct {
	ScaleFactor     float64 `json:"scale_factor"`
	ExtrudeDepth    float64 `json:"extrude_depth"`
	BevelDepth      float64 `json:"bevel_depth"`
	BevelResolution int     `json:"bevel_resolution"`
	Tolerance       float64 `json:"tolerance"`
}

// ArtifactKeyOpts are the render settings that shape a video artifact,
// hashed into the artifact cache key.
type ArtifactKeyOpts struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Quality    string `json:"quality"`
	FrameStart int    `json:"frame_start"`
	FrameEnd   int    `json:"frame_end"`
	FPS        int    `json:"fps"`
	Codec      string `json:"codec"`
	// TimelineHash covers the animation tracks; empty for static renders.
	TimelineHash string `json:"timeline_hash,omitempty"`
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// DocumentKey keys a parsed document by the markup's content hash.
	DocumentKey(markupHash string) string

	// SceneKey keys a built scene by document hash and builder settings.
	SceneKey(documentHash string, opts SceneKeyOpts) string

	// ArtifactKey keys a rendered video by scene hash and render settings.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key scheme: a stage prefix plus a SHA-256
// over the inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// DocumentKey generates a key for document caching.
func (k *DefaultKeyer) DocumentKey(markupHash string) string {
	return "doc:" + markupHash
}

// SceneKey generates a key for scene caching.
func (k *DefaultKeyer) SceneKey(documentHash string, opts SceneKeyOpts) string {
	return hashKey("scene", documentHash, opts)
}

// ArtifactKey generates a key for rendered artifact caching.
func (k *DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
