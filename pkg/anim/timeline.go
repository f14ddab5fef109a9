package anim

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/echiweshe/sceneforge/pkg/errors"
)

// Timeline is the on-disk track list:
//
//	- target: rect-1
//	  property: position
//	  interpolation: ease-in-out
//	  keyframes:
//	    - {frame: 0, value: [0, 0, 0]}
//	    - {frame: 60, value: [2, 0, 0]}
//
// Scalar values are accepted for opacity keyframes.
type Timeline []Track

type yamlTrack struct {
	Target        string         `yaml:"target"`
	Property      string         `yaml:"property"`
	Interpolation string         `yaml:"interpolation"`
	Keyframes     []yamlKeyframe `yaml:"keyframes"`
}

type yamlKeyframe struct {
	Frame int       `yaml:"frame"`
	Value yamlValue `yaml:"value"`
}

// yamlValue accepts both a sequence and a bare scalar.
type yamlValue []float64

func (v *yamlValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = yamlValue{f}
		return nil
	}
	var fs []float64
	if err := node.Decode(&fs); err != nil {
		return err
	}
	*v = yamlValue(fs)
	return nil
}

// ParseTimeline decodes a YAML timeline. Tracks are converted as-is;
// full validation happens when the timeline is applied to a scene.
func ParseTimeline(data []byte) (Timeline, error) {
	var raw []yamlTrack
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed timeline")
	}

	tl := make(Timeline, 0, len(raw))
	for _, rt := range raw {
		t := Track{
			Target:        rt.Target,
			Property:      Property(rt.Property),
			Interpolation: Mode(rt.Interpolation),
		}
		for _, kf := range rt.Keyframes {
			t.Keyframes = append(t.Keyframes, Keyframe{Frame: kf.Frame, Value: Value(kf.Value)})
		}
		tl = append(tl, t)
	}
	return tl, nil
}

// LoadTimeline reads and decodes a YAML timeline file.
func LoadTimeline(path string) (Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read timeline %s", path)
	}
	return ParseTimeline(data)
}
