// Package anim binds keyframe tracks to scene nodes and evaluates them
// per frame.
//
// A [Track] animates one property of one node through a sorted list of
// keyframes. [Apply] validates every track against the scene before
// anything is bound: an unknown target or a malformed track rejects the
// whole set and leaves the scene untouched. The resulting
// [AnimatedScene] is sampled with At; the base scene is never mutated.
package anim

import (
	"sort"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/geom"
	"github.com/echiweshe/sceneforge/pkg/scene"
)

// Property identifies which node attribute a track animates. The set is
// closed: unknown property names are a hard error, never a silent no-op.
type Property string

const (
	PropPosition Property = "position"
	PropRotation Property = "rotation"
	PropScale    Property = "scale"
	PropOpacity  Property = "opacity"
)

// Dim returns the component count of the property's values.
func (p Property) Dim() int {
	if p == PropOpacity {
		return 1
	}
	return 3
}

// ParseProperty maps a property name onto the closed property set.
func ParseProperty(s string) (Property, error) {
	switch Property(s) {
	case PropPosition, PropRotation, PropScale, PropOpacity:
		return Property(s), nil
	default:
		return "", errors.New(errors.ErrCodeNotSupported, "unsupported animation property %q", s)
	}
}

// Value is a property value: three components for position, rotation
// (Euler angles in degrees), and scale; one for opacity.
type Value []float64

// Keyframe pins a value at a frame.
type Keyframe struct {
	Frame int
	Value Value
}

// Track animates one property of one target node.
type Track struct {
	Target        string
	Property      Property
	Interpolation Mode
	Keyframes     []Keyframe
}

// normalize validates the track and sorts its keyframes ascending.
func (t *Track) normalize() error {
	if t.Target == "" {
		return errors.New(errors.ErrCodeInvalidInput, "track without target")
	}
	if _, err := ParseProperty(string(t.Property)); err != nil {
		return err
	}
	if _, err := interpolator(t.Interpolation); err != nil {
		return err
	}
	if len(t.Keyframes) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "track %s/%s has no keyframes", t.Target, t.Property)
	}

	sort.SliceStable(t.Keyframes, func(i, j int) bool {
		return t.Keyframes[i].Frame < t.Keyframes[j].Frame
	})
	for i, kf := range t.Keyframes {
		if kf.Frame < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "track %s/%s: negative frame %d", t.Target, t.Property, kf.Frame)
		}
		if len(kf.Value) != t.Property.Dim() {
			return errors.New(errors.ErrCodeInvalidInput,
				"track %s/%s: keyframe at frame %d has %d components, want %d",
				t.Target, t.Property, kf.Frame, len(kf.Value), t.Property.Dim())
		}
		if i > 0 && kf.Frame == t.Keyframes[i-1].Frame {
			return errors.New(errors.ErrCodeInvalidInput, "track %s/%s: duplicate keyframe at frame %d", t.Target, t.Property, kf.Frame)
		}
	}
	return nil
}

// AnimatedScene pairs an immutable base scene with validated tracks.
type AnimatedScene struct {
	Scene  *scene.Scene
	tracks []Track
}

// Apply binds tracks to a scene. Every track is validated first: an
// unknown target id fails with UNKNOWN_TARGET, a duplicate
// (target, property) pair or malformed keyframes with INVALID_INPUT, an
// unknown property or interpolation mode with NOT_SUPPORTED. On any
// error nothing is bound and the scene is unchanged.
func Apply(s *scene.Scene, tracks []Track) (*AnimatedScene, error) {
	bound := make([]Track, len(tracks))
	copy(bound, tracks)

	seen := make(map[string]bool, len(bound))
	for i := range bound {
		t := &bound[i]
		t.Keyframes = append([]Keyframe(nil), t.Keyframes...)
		if err := t.normalize(); err != nil {
			return nil, err
		}
		if s.Find(t.Target) == nil {
			return nil, errors.New(errors.ErrCodeUnknownTarget, "animation target %q not in scene", t.Target)
		}
		key := t.Target + "\x00" + string(t.Property)
		if seen[key] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "multiple tracks animate %s/%s", t.Target, t.Property)
		}
		seen[key] = true
	}

	return &AnimatedScene{Scene: s, tracks: bound}, nil
}

// FrameRange returns the lowest and highest keyframe frame across all
// tracks, or (0, 0) for a static scene.
func (a *AnimatedScene) FrameRange() (first, last int) {
	for i, t := range a.tracks {
		lo := t.Keyframes[0].Frame
		hi := t.Keyframes[len(t.Keyframes)-1].Frame
		if i == 0 || lo < first {
			first = lo
		}
		if hi > last {
			last = hi
		}
	}
	return first, last
}

// Pose is the sampled animation state of one node at one frame. Only the
// properties with a bound track are set.
type Pose struct {
	Position    geom.Vec3
	HasPosition bool
	Rotation    geom.Vec3 // Euler angles, degrees
	HasRotation bool
	Scale       geom.Vec3
	HasScale    bool
	Opacity     float64
	HasOpacity  bool
}

// Transform returns the pose's transform delta, applied on top of the
// node's own transform when rendering.
func (p Pose) Transform() geom.Mat4 {
	m := geom.Mat4Identity()
	if p.HasPosition {
		m = m.Mul(geom.Mat4Translate(p.Position))
	}
	if p.HasRotation {
		const degToRad = 3.14159265358979323846 / 180
		m = m.Mul(geom.Mat4RotateZ(p.Rotation.Z * degToRad)).
			Mul(geom.Mat4RotateY(p.Rotation.Y * degToRad)).
			Mul(geom.Mat4RotateX(p.Rotation.X * degToRad))
	}
	if p.HasScale {
		m = m.Mul(geom.Mat4Scale(p.Scale))
	}
	return m
}

// At samples every track at the given frame and returns the poses by
// node id. Before a track's first keyframe and after its last the
// boundary value holds.
func (a *AnimatedScene) At(frame int) map[string]Pose {
	poses := make(map[string]Pose, len(a.tracks))
	for _, t := range a.tracks {
		v := t.sample(frame)
		p := poses[t.Target]
		switch t.Property {
		case PropPosition:
			p.Position = geom.Vec3{X: v[0], Y: v[1], Z: v[2]}
			p.HasPosition = true
		case PropRotation:
			p.Rotation = geom.Vec3{X: v[0], Y: v[1], Z: v[2]}
			p.HasRotation = true
		case PropScale:
			p.Scale = geom.Vec3{X: v[0], Y: v[1], Z: v[2]}
			p.HasScale = true
		case PropOpacity:
			p.Opacity = v[0]
			p.HasOpacity = true
		}
		poses[t.Target] = p
	}
	return poses
}

// sample evaluates the track at a frame. The track is normalized, so the
// keyframes are sorted and the interpolation mode registered.
func (t *Track) sample(frame int) Value {
	kfs := t.Keyframes
	if frame <= kfs[0].Frame {
		return kfs[0].Value
	}
	if frame >= kfs[len(kfs)-1].Frame {
		return kfs[len(kfs)-1].Value
	}

	// Find the segment containing the frame.
	i := sort.Search(len(kfs), func(i int) bool { return kfs[i].Frame > frame }) - 1
	a, b := kfs[i], kfs[i+1]

	ease, _ := interpolator(t.Interpolation)
	u := ease(float64(frame-a.Frame) / float64(b.Frame-a.Frame))

	out := make(Value, len(a.Value))
	for c := range out {
		out[c] = a.Value[c] + (b.Value[c]-a.Value[c])*u
	}
	return out
}
