package svg

import (
	"strconv"
	"strings"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/geom"
)

// parsePathData tokenizes an SVG path data string into absolute commands.
//
// Supported commands: M/m L/l H/h V/v C/c S/s Q/q T/t A/a Z/z, with
// implicit command repetition and both comma and whitespace separation.
// Relative forms are resolved against the current point; shorthand
// commands (S/s, T/t) are expanded to their full cubic/quadratic forms by
// reflecting the previous control point.
func parsePathData(d string) ([]PathCommand, error) {
	lex := &pathLexer{src: d}
	var cmds []PathCommand

	var cur, start geom.Point
	var lastCubicCtrl, lastQuadCtrl geom.Point
	var lastOp byte
	havePrevCubic := false
	havePrevQuad := false

	for {
		op, ok, err := lex.nextCommand(lastOp)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rel := op >= 'a' && op <= 'z'
		upper := op
		if rel {
			upper -= 'a' - 'A'
		}

		switch upper {
		case 'M':
			p, err := lex.point()
			if err != nil {
				return nil, err
			}
			if rel {
				p = cur.Add(p)
			}
			cur, start = p, p
			cmds = append(cmds, PathCommand{Op: OpMove, P1: roundPt(p)})
			// Subsequent implicit pairs are lineto commands.
			if rel {
				lastOp = 'l'
			} else {
				lastOp = 'L'
			}

		case 'L':
			p, err := lex.point()
			if err != nil {
				return nil, err
			}
			if rel {
				p = cur.Add(p)
			}
			cur = p
			cmds = append(cmds, PathCommand{Op: OpLine, P1: roundPt(p)})
			lastOp = op

		case 'H':
			x, err := lex.number()
			if err != nil {
				return nil, err
			}
			if rel {
				x += cur.X
			}
			cur.X = x
			cmds = append(cmds, PathCommand{Op: OpLine, P1: roundPt(cur)})
			lastOp = op

		case 'V':
			y, err := lex.number()
			if err != nil {
				return nil, err
			}
			if rel {
				y += cur.Y
			}
			cur.Y = y
			cmds = append(cmds, PathCommand{Op: OpLine, P1: roundPt(cur)})
			lastOp = op

		case 'C', 'S':
			var c1 geom.Point
			if upper == 'C' {
				var err error
				if c1, err = lex.point(); err != nil {
					return nil, err
				}
				if rel {
					c1 = cur.Add(c1)
				}
			} else if havePrevCubic {
				c1 = cur.Add(cur.Sub(lastCubicCtrl)) // reflect previous control
			} else {
				c1 = cur
			}
			c2, err := lex.point()
			if err != nil {
				return nil, err
			}
			p, err := lex.point()
			if err != nil {
				return nil, err
			}
			if rel {
				c2 = cur.Add(c2)
				p = cur.Add(p)
			}
			cmds = append(cmds, PathCommand{Op: OpCubic, C1: roundPt(c1), C2: roundPt(c2), P1: roundPt(p)})
			lastCubicCtrl = c2
			havePrevCubic = true
			cur = p
			lastOp = op

		case 'Q', 'T':
			var c1 geom.Point
			if upper == 'Q' {
				var err error
				if c1, err = lex.point(); err != nil {
					return nil, err
				}
				if rel {
					c1 = cur.Add(c1)
				}
			} else if havePrevQuad {
				c1 = cur.Add(cur.Sub(lastQuadCtrl))
			} else {
				c1 = cur
			}
			p, err := lex.point()
			if err != nil {
				return nil, err
			}
			if rel {
				p = cur.Add(p)
			}
			cmds = append(cmds, PathCommand{Op: OpQuad, C1: roundPt(c1), P1: roundPt(p)})
			lastQuadCtrl = c1
			havePrevQuad = true
			cur = p
			lastOp = op

		case 'A':
			rx, err := lex.number()
			if err != nil {
				return nil, err
			}
			ry, err := lex.number()
			if err != nil {
				return nil, err
			}
			rot, err := lex.number()
			if err != nil {
				return nil, err
			}
			largeArc, err := lex.flag()
			if err != nil {
				return nil, err
			}
			sweep, err := lex.flag()
			if err != nil {
				return nil, err
			}
			p, err := lex.point()
			if err != nil {
				return nil, err
			}
			if rel {
				p = cur.Add(p)
			}
			cmds = append(cmds, PathCommand{
				Op: OpArc, P1: roundPt(p),
				RX: geom.Round(rx, CoordinateDigits), RY: geom.Round(ry, CoordinateDigits),
				Rot: geom.Round(rot, CoordinateDigits), LargeArc: largeArc, Sweep: sweep,
			})
			cur = p
			lastOp = op

		case 'Z':
			cmds = append(cmds, PathCommand{Op: OpClose})
			cur = start
			lastOp = op

		default:
			return nil, errors.New(errors.ErrCodeParse, "unknown path command %q", string(op))
		}

		if upper != 'C' && upper != 'S' {
			havePrevCubic = false
		}
		if upper != 'Q' && upper != 'T' {
			havePrevQuad = false
		}
	}

	return cmds, nil
}

func roundPt(p geom.Point) geom.Point {
	return geom.Point{
		X: geom.Round(p.X, CoordinateDigits),
		Y: geom.Round(p.Y, CoordinateDigits),
	}
}

// pathLexer scans path data, handling comma/whitespace separation and the
// compact arc-flag syntax.
type pathLexer struct {
	src string
	pos int
}

func (l *pathLexer) skipSeparators() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
}

// nextCommand returns the next command letter, or repeats lastOp when a
// number follows directly (implicit repetition). ok is false at the end
// of input.
func (l *pathLexer) nextCommand(lastOp byte) (byte, bool, error) {
	l.skipSeparators()
	if l.pos >= len(l.src) {
		return 0, false, nil
	}
	c := l.src[l.pos]
	if isCommandLetter(c) {
		l.pos++
		return c, true, nil
	}
	if lastOp == 0 {
		return 0, false, errors.New(errors.ErrCodeParse, "path data must start with a moveto, got %q", string(c))
	}
	if lastOp == 'Z' || lastOp == 'z' {
		return 0, false, errors.New(errors.ErrCodeParse, "number after closepath without a command")
	}
	return lastOp, true, nil
}

func isCommandLetter(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0
}

// number scans one float. Exponents and a leading sign are accepted; a
// second '.' terminates the token, matching SVG's "0.5.5" shorthand.
func (l *pathLexer) number() (float64, error) {
	l.skipSeparators()
	start := l.pos
	seenDot := false
	seenExp := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c >= '0' && c <= '9':
		case c == '.':
			if seenDot {
				goto done
			}
			seenDot = true
		case c == 'e' || c == 'E':
			if seenExp {
				goto done
			}
			seenExp = true
		case c == '+' || c == '-':
			// Sign is only part of the token at the start or after an exponent.
			if l.pos != start && !(l.pos > start && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E')) {
				goto done
			}
		default:
			goto done
		}
		l.pos++
	}
done:
	if l.pos == start {
		return 0, errors.New(errors.ErrCodeParse, "expected number at offset %d in path data", l.pos)
	}
	v, err := strconv.ParseFloat(l.src[start:l.pos], 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeParse, "invalid number %q in path data", l.src[start:l.pos])
	}
	return v, nil
}

// point scans an (x, y) pair.
func (l *pathLexer) point() (geom.Point, error) {
	x, err := l.number()
	if err != nil {
		return geom.Point{}, err
	}
	y, err := l.number()
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: x, Y: y}, nil
}

// flag scans a single arc flag, which may be written without separation
// from the following number ("a1 1 0 011 1").
func (l *pathLexer) flag() (bool, error) {
	l.skipSeparators()
	if l.pos >= len(l.src) {
		return false, errors.New(errors.ErrCodeParse, "expected arc flag at end of path data")
	}
	switch l.src[l.pos] {
	case '0':
		l.pos++
		return false, nil
	case '1':
		l.pos++
		return true, nil
	default:
		return false, errors.New(errors.ErrCodeParse, "invalid arc flag %q", string(l.src[l.pos]))
	}
}
