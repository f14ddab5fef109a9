package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars.
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	docKey := k.DocumentKey("abc123")
	if docKey != "doc:abc123" {
		t.Errorf("DocumentKey unexpected: %s", docKey)
	}

	// SceneKey includes builder options in the hash.
	sk1 := k.SceneKey("dochash", SceneKeyOpts{ScaleFactor: 0.01, ExtrudeDepth: 0.1})
	sk2 := k.SceneKey("dochash", SceneKeyOpts{ScaleFactor: 0.02, ExtrudeDepth: 0.1})
	if sk1 == sk2 {
		t.Error("Different SceneKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(sk1, "scene:") {
		t.Errorf("SceneKey missing stage prefix: %s", sk1)
	}

	// ArtifactKey includes render options in the hash.
	ak1 := k.ArtifactKey("scenehash", ArtifactKeyOpts{Width: 1280, Height: 720, Quality: "medium"})
	ak2 := k.ArtifactKey("scenehash", ArtifactKeyOpts{Width: 1920, Height: 1080, Quality: "medium"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}

	// Same inputs always produce the same key.
	if ak1 != k.ArtifactKey("scenehash", ArtifactKeyOpts{Width: 1280, Height: 720, Quality: "medium"}) {
		t.Error("ArtifactKey should be deterministic")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "job:42:")

	docKey := scoped.DocumentKey("abc")
	if docKey != "job:42:doc:abc" {
		t.Errorf("scoped DocumentKey unexpected: %s", docKey)
	}

	sceneKey := scoped.SceneKey("dochash", SceneKeyOpts{})
	if !strings.HasPrefix(sceneKey, "job:42:scene:") {
		t.Errorf("scoped SceneKey missing prefix: %s", sceneKey)
	}

	// Nil inner falls back to the default keyer.
	fallback := NewScopedKeyer(nil, "p:")
	if fallback.DocumentKey("x") != "p:doc:x" {
		t.Error("nil inner should use DefaultKeyer")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// Miss before set.
	_, hit, err := c.Get(ctx, "key1")
	if err != nil || hit {
		t.Fatalf("expected clean miss, got hit=%v err=%v", hit, err)
	}

	// Round trip.
	if err := c.Set(ctx, "key1", []byte("value1"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "key1")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if string(data) != "value1" {
		t.Errorf("data = %q, want value1", data)
	}

	// Expired entries are misses.
	if err := c.Set(ctx, "key2", []byte("value2"), -time.Second); err != nil {
		t.Fatal(err)
	}
	_, hit, _ = c.Get(ctx, "key2")
	if hit {
		t.Error("expired entry should miss")
	}

	// Zero TTL stores without expiration.
	if err := c.Set(ctx, "key3", []byte("value3"), 0); err != nil {
		t.Fatal(err)
	}
	_, hit, _ = c.Get(ctx, "key3")
	if !hit {
		t.Error("zero-TTL entry should hit")
	}

	// Delete is idempotent.
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Errorf("deleting missing key should not error: %v", err)
	}
	_, hit, _ = c.Get(ctx, "key1")
	if hit {
		t.Error("deleted entry should miss")
	}
}
