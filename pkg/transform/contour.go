package transform

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Contour is a closed border given as 8-connected pixel coordinates
type Contour []image.Point

// neighbours in clockwise order (y grows downwards), starting east
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

func direction(from, to image.Point) int {
	d := to.Sub(from)
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// FindContours extracts every outer and hole border of a w x h binary mask
// (non-zero = foreground) using Suzuki-Abe border following.
func FindContours(mask []uint8, w, h int) []Contour {
	if w <= 0 || h <= 0 || len(mask) < w*h {
		return nil
	}

	// One pixel of zero padding on every side removes bounds checks
	pw := w + 2
	f := make([]int32, pw*(h+2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] != 0 {
				f[(y+1)*pw+x+1] = 1
			}
		}
	}

	var contours []Contour
	nbd := int32(1)
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			v := f[y*pw+x]
			if v == 0 {
				continue
			}

			var from image.Point
			switch {
			case v == 1 && f[y*pw+x-1] == 0:
				from = image.Pt(x-1, y)
			case v >= 1 && f[y*pw+x+1] == 0:
				from = image.Pt(x+1, y)
			default:
				continue
			}

			nbd++
			contours = append(contours, followBorder(f, pw, image.Pt(x, y), from, nbd))
		}
	}
	return contours
}

func followBorder(f []int32, pw int, start, from image.Point, nbd int32) Contour {
	at := func(p image.Point) int { return p.Y*pw + p.X }
	unpad := image.Pt(1, 1)

	d0 := direction(start, from)
	var p1 image.Point
	found := false
	for k := 0; k < 8; k++ {
		q := start.Add(neighbours[(d0+k)%8])
		if f[at(q)] != 0 {
			p1, found = q, true
			break
		}
	}
	if !found {
		// Isolated pixel
		f[at(start)] = -nbd
		return Contour{start.Sub(unpad)}
	}

	var contour Contour
	p2, p3 := p1, start
	for {
		d := direction(p3, p2)
		var p4 image.Point
		eastZero := false
		for k := 1; k <= 8; k++ {
			dir := (d - k + 8) % 8
			q := p3.Add(neighbours[dir])
			if f[at(q)] != 0 {
				p4 = q
				break
			}
			if dir == 0 {
				eastZero = true
			}
		}

		if eastZero {
			f[at(p3)] = -nbd
		} else if f[at(p3)] == 1 {
			f[at(p3)] = nbd
		}
		contour = append(contour, p3.Sub(unpad))

		if p4 == start && p3 == p1 {
			return contour
		}
		p2, p3 = p3, p4
	}
}

// ArcLength returns the perimeter of c, closing it back to its first point when closed is set
func ArcLength(c Contour, closed bool) float64 {
	if len(c) < 2 {
		return 0
	}
	var length float64
	for i := 1; i < len(c); i++ {
		length += dist(c[i-1], c[i])
	}
	if closed {
		length += dist(c[len(c)-1], c[0])
	}
	return length
}

func dist(a, b image.Point) float64 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// DrawContour strokes c onto dst with a square pen of the given width
func DrawContour(dst draw.Image, c Contour, stroke int, col color.Color) {
	if stroke < 1 {
		stroke = 1
	}
	pen := image.NewUniform(col)
	offset := (stroke - 1) / 2
	for i, p := range c {
		stamp(dst, p, stroke, offset, pen)
		// Bridge gaps left by simplified (non-adjacent) contour points
		if i > 0 {
			bridge(dst, c[i-1], p, stroke, offset, pen)
		}
	}
	if len(c) > 2 {
		bridge(dst, c[len(c)-1], c[0], stroke, offset, pen)
	}
}

func stamp(dst draw.Image, p image.Point, stroke, offset int, pen image.Image) {
	r := image.Rect(p.X-offset, p.Y-offset, p.X-offset+stroke, p.Y-offset+stroke)
	draw.Draw(dst, r.Intersect(dst.Bounds()), pen, image.Point{}, draw.Src)
}

func bridge(dst draw.Image, a, b image.Point, stroke, offset int, pen image.Image) {
	steps := max(abs(b.X-a.X), abs(b.Y-a.Y))
	for s := 1; s < steps; s++ {
		t := float64(s) / float64(steps)
		p := image.Pt(a.X+int(math.Round(t*float64(b.X-a.X))), a.Y+int(math.Round(t*float64(b.Y-a.Y))))
		stamp(dst, p, stroke, offset, pen)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
