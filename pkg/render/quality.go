package render

import (
	"github.com/echiweshe/sceneforge/pkg/errors"
)

// Quality selects a fixed rendering preset. The set is closed; unknown
// names are rejected at job validation.
type Quality string

const (
	// QualityLow renders at output resolution with flat shading.
	QualityLow Quality = "low"
	// QualityMedium renders at 2x supersampling with smooth Lambert
	// shading, downscaled with Catmull-Rom.
	QualityMedium Quality = "medium"
	// QualityHigh renders at 4x supersampling with smooth shading and
	// backface culling.
	QualityHigh Quality = "high"
)

// ParseQuality maps a preset name onto the closed quality set.
func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case QualityLow, QualityMedium, QualityHigh:
		return Quality(s), nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid quality %q (must be one of: low, medium, high)", s)
	}
}

// Supersample returns the linear supersampling factor of the preset.
func (q Quality) Supersample() int {
	switch q {
	case QualityMedium:
		return 2
	case QualityHigh:
		return 4
	default:
		return 1
	}
}

// smoothShading reports whether vertex normals are interpolated across
// triangles. Low quality lights each face uniformly.
func (q Quality) smoothShading() bool {
	return q != QualityLow
}

// backfaceCull reports whether triangles facing away from the camera are
// dropped before rasterization.
func (q Quality) backfaceCull() bool {
	return q == QualityHigh
}
