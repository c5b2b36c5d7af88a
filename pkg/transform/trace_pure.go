//go:build !gocv
// +build !gocv

package transform

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Trace turns img into a line drawing of its thresholded contours.
//
// Two blur passes smooth the image, the grayscale intensity is thresholded
// into a binary mask, and every contour longer than MinPerimeter is stroked
// in white onto a black canvas of the same size.
func Trace(img image.Image) (image.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	blurred := imaging.Blur(img, blurSigma5)
	blurred = imaging.Blur(blurred, blurSigma3)
	gray := imaging.Grayscale(blurred)

	mask := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			if row[x*4] > TraceThreshold {
				mask[y*w+x] = 1
			}
		}
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.NRGBA{0, 0, 0, 255}), image.Point{}, draw.Src)

	white := color.NRGBA{255, 255, 255, 255}
	for _, c := range FindContours(mask, w, h) {
		if ArcLength(c, true) > MinPerimeter {
			DrawContour(canvas, c, TraceStroke, white)
		}
	}
	return canvas, nil
}
