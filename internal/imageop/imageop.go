// Package imageop implements the pixel operations the CLI can apply between
// reading an image and writing it back out: rotation, flips, channel swaps,
// rolls, grayscale conversion and histogram equalization.
//
// An operation is written on the command line as name[=args], for example
// "rotate90=2", "flip=horizontal" or "roll=10,-4".
package imageop

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xupit3r/gpujpeg/internal/pixel"
)

// transform maps a validated (height, width, 3) array to a new array
type transform func(src *pixel.Array, height, width int) *pixel.Array

// Op is a parsed operation ready to apply
type Op struct {
	spec string
	fn   transform
}

// String returns the operation as it was written
func (o Op) String() string { return o.spec }

// Apply runs the operation on img and returns a new array. img is not modified.
func (o Op) Apply(img *pixel.Array) (*pixel.Array, error) {
	height, width, _, err := img.RGBShape()
	if err != nil {
		return nil, err
	}
	return o.fn(img, height, width), nil
}

type entry struct {
	help  string
	parse func(arg string) (transform, error)
}

var registry = map[string]entry{
	"identity": {
		help:  "leave the image unchanged",
		parse: noArgs(identity),
	},
	"rotate90": {
		help:  "rotate by 90 degrees counterclockwise; =K rotates K times, negative K clockwise",
		parse: parseRotate,
	},
	"flip": {
		help:  "mirror the image; =horizontal, =vertical or =both",
		parse: parseFlip,
	},
	"bgr2rgb": {
		help:  "swap the first and third channels",
		parse: noArgs(bgr2rgb),
	},
	"roll": {
		help:  "shift rows and columns with wrap-around; =V[,H] pixels",
		parse: parseRoll,
	},
	"grayscale": {
		help:  "replace every channel with the pixel's luminance",
		parse: noArgs(grayscale),
	},
	"histogram_equalization": {
		help:  "equalize the histogram of each channel",
		parse: noArgs(equalize),
	},
}

// Names lists the known operations in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Help returns the one-line description of an operation
func Help(name string) string {
	return registry[name].help
}

// Parse parses one name[=args] operation
func Parse(spec string) (Op, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(spec), "=")
	e, ok := registry[strings.ToLower(name)]
	if !ok {
		return Op{}, fmt.Errorf("unknown operation: %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	fn, err := e.parse(arg)
	if err != nil {
		return Op{}, fmt.Errorf("operation %s: %w", name, err)
	}
	return Op{spec: spec, fn: fn}, nil
}

// ParseAll parses operations in the order given
func ParseAll(specs []string) ([]Op, error) {
	ops := make([]Op, 0, len(specs))
	for _, s := range specs {
		op, err := Parse(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Run applies ops to img in order. With no ops img is returned as is.
func Run(img *pixel.Array, ops []Op) (*pixel.Array, error) {
	for _, op := range ops {
		out, err := op.Apply(img)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		img = out
	}
	return img, nil
}

func noArgs(fn transform) func(string) (transform, error) {
	return func(arg string) (transform, error) {
		if arg != "" {
			return nil, fmt.Errorf("takes no arguments, got %q", arg)
		}
		return fn, nil
	}
}

func parseRotate(arg string) (transform, error) {
	k := 1
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("rotation count %q is not an integer", arg)
		}
		k = n
	}
	k = ((k % 4) + 4) % 4
	return func(src *pixel.Array, height, width int) *pixel.Array {
		out := clone(src)
		for i := 0; i < k; i++ {
			out = rotate(out, height, width)
			height, width = width, height
		}
		return out
	}, nil
}

func parseFlip(arg string) (transform, error) {
	var horizontal, vertical bool
	switch strings.ToLower(arg) {
	case "horizontal", "h":
		horizontal = true
	case "vertical", "v":
		vertical = true
	case "both":
		horizontal, vertical = true, true
	default:
		return nil, fmt.Errorf("direction must be horizontal, vertical or both, got %q", arg)
	}
	return func(src *pixel.Array, height, width int) *pixel.Array {
		return flip(src, height, width, horizontal, vertical)
	}, nil
}

func parseRoll(arg string) (transform, error) {
	if arg == "" {
		return nil, fmt.Errorf("needs a shift: roll=V[,H]")
	}
	parts := strings.Split(arg, ",")
	if len(parts) > 2 {
		return nil, fmt.Errorf("expected V[,H], got %q", arg)
	}
	shifts := [2]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("shift %q is not an integer", p)
		}
		shifts[i] = n
	}
	return func(src *pixel.Array, height, width int) *pixel.Array {
		return roll(src, height, width, shifts[0], shifts[1])
	}, nil
}
