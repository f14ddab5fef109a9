package svg

import (
	"strconv"
	"strings"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/geom"
)

// parseTransform parses an SVG transform attribute into a single affine
// transform. Functions compose left-to-right:
//
//	transform="translate(10 20) rotate(45)"
//
// applies the rotation first, then the translation, matching SVG
// semantics.
func parseTransform(attr string) (geom.Affine, error) {
	t := geom.Identity()
	rest := strings.TrimSpace(attr)

	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open < 0 || closing < open {
			return geom.Affine{}, errors.New(errors.ErrCodeParse, "malformed transform %q", attr)
		}

		name := strings.TrimSpace(rest[:open])
		args, err := parseTransformArgs(rest[open+1 : closing])
		if err != nil {
			return geom.Affine{}, err
		}

		var fn geom.Affine
		switch name {
		case "translate":
			switch len(args) {
			case 1:
				fn = geom.Translate(args[0], 0)
			case 2:
				fn = geom.Translate(args[0], args[1])
			default:
				return geom.Affine{}, errors.New(errors.ErrCodeParse, "translate expects 1 or 2 arguments, got %d", len(args))
			}
		case "scale":
			switch len(args) {
			case 1:
				fn = geom.Scale(args[0], args[0])
			case 2:
				fn = geom.Scale(args[0], args[1])
			default:
				return geom.Affine{}, errors.New(errors.ErrCodeParse, "scale expects 1 or 2 arguments, got %d", len(args))
			}
		case "rotate":
			switch len(args) {
			case 1:
				fn = geom.Rotate(args[0])
			case 3:
				fn = geom.RotateAround(args[0], args[1], args[2])
			default:
				return geom.Affine{}, errors.New(errors.ErrCodeParse, "rotate expects 1 or 3 arguments, got %d", len(args))
			}
		case "matrix":
			if len(args) != 6 {
				return geom.Affine{}, errors.New(errors.ErrCodeParse, "matrix expects 6 arguments, got %d", len(args))
			}
			fn = geom.Affine{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}
		case "skewX":
			if len(args) != 1 {
				return geom.Affine{}, errors.New(errors.ErrCodeParse, "skewX expects 1 argument, got %d", len(args))
			}
			fn = geom.SkewX(args[0])
		case "skewY":
			if len(args) != 1 {
				return geom.Affine{}, errors.New(errors.ErrCodeParse, "skewY expects 1 argument, got %d", len(args))
			}
			fn = geom.SkewY(args[0])
		default:
			return geom.Affine{}, errors.New(errors.ErrCodeParse, "unknown transform function %q", name)
		}

		t = t.Mul(fn)
		rest = strings.TrimLeft(strings.TrimSpace(rest[closing+1:]), ",")
		rest = strings.TrimSpace(rest)
	}

	return t, nil
}

func parseTransformArgs(body string) ([]float64, error) {
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	args := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeParse, "invalid transform argument %q", f)
		}
		args = append(args, v)
	}
	return args, nil
}
