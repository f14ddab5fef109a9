package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation, so
// separate jobs or tenants on a shared backend never collide.
//
// Example usage:
//
//	// Job-specific keys on a shared Redis backend
//	jobKeyer := NewScopedKeyer(NewDefaultKeyer(), "job:7f2a:")
//
//	// Global keys for the local file cache
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DocumentKey generates a prefixed key for document caching.
func (k *ScopedKeyer) DocumentKey(markupHash string) string {
	return k.prefix + k.inner.DocumentKey(markupHash)
}

// SceneKey generates a prefixed key for scene caching.
func (k *ScopedKeyer) SceneKey(documentHash string, opts SceneKeyOpts) string {
	return k.prefix + k.inner.SceneKey(documentHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}
