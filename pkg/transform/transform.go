// Package transform holds the content transforms that derive a target image
// from a source photograph. Every transform returns an image of exactly the
// same dimensions as its input.
package transform

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/pairset/pkg/types"
)

// Func maps an RGB source image to a target image of identical size
type Func func(img image.Image) (image.Image, error)

// Action names accepted by ForAction
const (
	ActionColorize = "colorize"
	ActionTrace    = "trace"
)

// Actions lists the supported transform names
func Actions() []string {
	return []string{ActionColorize, ActionTrace}
}

// ForAction returns the transform registered under name. A nil palette uses DefaultPalette.
func ForAction(name string, palette Palette) (Func, error) {
	switch name {
	case ActionColorize:
		c := NewColorizer(palette)
		return c.Colorize, nil
	case ActionTrace:
		return Trace, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q (use %v)", types.ErrConfiguration, name, Actions())
	}
}

// Apply runs fn on source and returns the aligned pair, rejecting output of the wrong size
func Apply(fn Func, source image.Image) (types.ImagePair, error) {
	target, err := fn(source)
	if err != nil {
		return types.ImagePair{}, fmt.Errorf("%w: %v", types.ErrTransform, err)
	}
	if target == nil {
		return types.ImagePair{}, fmt.Errorf("%w: transform returned no image", types.ErrTransform)
	}
	pair := types.ImagePair{Source: source, Target: target}
	if err := pair.Validate(); err != nil {
		return types.ImagePair{}, fmt.Errorf("%w: %v", types.ErrTransform, err)
	}
	return pair, nil
}

// Palette is an ordered list of colours; earlier entries win distance ties
type Palette []color.NRGBA

// DefaultPalette is white, black, dark red, dark blue, dark green
var DefaultPalette = Palette{
	{255, 255, 255, 255},
	{0, 0, 0, 255},
	{127, 0, 0, 255},
	{0, 0, 127, 255},
	{0, 127, 0, 255},
}

// PaletteFromRGB builds a palette from RGB triples
func PaletteFromRGB(triples [][3]uint8) Palette {
	p := make(Palette, 0, len(triples))
	for _, t := range triples {
		p = append(p, color.NRGBA{t[0], t[1], t[2], 255})
	}
	return p
}

// Nearest returns the palette index closest to c by sum of absolute channel differences
func (p Palette) Nearest(r, g, b uint8) int {
	best, bestDist := 0, -1
	for i, pc := range p {
		d := absDiff(r, pc.R) + absDiff(g, pc.G) + absDiff(b, pc.B)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// Colorizer quantizes images to a fixed palette
type Colorizer struct {
	palette Palette
}

// NewColorizer creates a Colorizer; an empty palette falls back to DefaultPalette
func NewColorizer(palette Palette) *Colorizer {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Colorizer{palette: palette}
}

// Palette returns the colours the colorizer maps onto
func (c *Colorizer) Palette() Palette {
	return c.palette
}

// Colorize maps every pixel to its nearest palette colour
func (c *Colorizer) Colorize(img image.Image) (image.Image, error) {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		pc := c.palette[c.palette.Nearest(out.Pix[i], out.Pix[i+1], out.Pix[i+2])]
		out.Pix[i+0] = pc.R
		out.Pix[i+1] = pc.G
		out.Pix[i+2] = pc.B
		out.Pix[i+3] = 255
	}
	return out, nil
}

// Colorize quantizes img with DefaultPalette
func Colorize(img image.Image) (image.Image, error) {
	return NewColorizer(nil).Colorize(img)
}
