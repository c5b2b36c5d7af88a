//go:build gocv
// +build gocv

package transform

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// Trace turns img into a line drawing of its thresholded contours using OpenCV.
func Trace(img image.Image) (image.Image, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert to mat: %w", err)
	}
	defer src.Close()

	if src.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(src, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
	gocv.GaussianBlur(blur, &blur, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(blur, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, TraceThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	kept := gocv.NewPointsVector()
	defer kept.Close()
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if gocv.ArcLength(c, true) > MinPerimeter {
			kept.Append(c)
		}
	}

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	defer canvas.Close()
	if kept.Size() > 0 {
		gocv.DrawContours(&canvas, kept, -1, color.RGBA{255, 255, 255, 255}, TraceStroke)
	}

	out, err := canvas.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert from mat: %w", err)
	}
	return imaging.Clone(out), nil
}
