package cropper

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	"github.com/menta2k/pairset/pkg/types"
)

// PairedCropper crops and resizes both images of a pair with one shared region
type PairedCropper struct {
	config CropConfig
}

// CropConfig holds configuration for paired cropping
type CropConfig struct {
	// Filter is the resampling kernel used after cropping
	Filter imaging.ResampleFilter
}

// New creates a new PairedCropper using bicubic (Catmull-Rom) resampling
func New() *PairedCropper {
	return &PairedCropper{
		config: CropConfig{
			Filter: imaging.CatmullRom,
		},
	}
}

// NewWithConfig creates a new PairedCropper with custom configuration
func NewWithConfig(config CropConfig) *PairedCropper {
	if config.Filter.Support == 0 && config.Filter.Kernel == nil {
		config.Filter = imaging.CatmullRom
	}
	return &PairedCropper{config: config}
}

// ComputeRegion derives an aspect-ratio-aware crop rectangle for a srcW x srcH image.
//
// The crop keeps the outW:outH aspect ratio, spans fraction of the bounding
// source side but never less than the output resolution, and its origin is
// drawn uniformly from the remaining room.
func (c *PairedCropper) ComputeRegion(srcW, srcH int, fraction float64, outW, outH int, rng *rand.Rand) (types.CropRegion, error) {
	if srcW <= 0 || srcH <= 0 {
		return types.CropRegion{}, fmt.Errorf("%w: empty source %dx%d", types.ErrInvalidGeometry, srcW, srcH)
	}
	if outW <= 0 || outH <= 0 {
		return types.CropRegion{}, fmt.Errorf("%w: output size %dx%d must be positive", types.ErrInvalidGeometry, outW, outH)
	}
	if !(fraction > 0 && fraction <= 1) {
		return types.CropRegion{}, fmt.Errorf("%w: fraction %v outside (0,1]", types.ErrInvalidGeometry, fraction)
	}

	ar := float64(outW) / float64(outH)

	var cropW, cropH float64
	if float64(srcW)/float64(srcH) > ar {
		// Source is wider than the target ratio: height bounds the crop
		cropH = math.Max(float64(outH), float64(srcH)*fraction)
		cropW = cropH * ar
	} else {
		cropW = math.Max(float64(outW), float64(srcW)*fraction)
		cropH = cropW / ar
	}

	region := types.CropRegion{Width: int(cropW), Height: int(cropH)}
	if region.Width <= 0 || region.Height <= 0 || region.Width > srcW || region.Height > srcH {
		return types.CropRegion{}, fmt.Errorf("%w: crop %dx%d does not fit source %dx%d (fraction %.4f, output %dx%d)",
			types.ErrInvalidGeometry, region.Width, region.Height, srcW, srcH, fraction, outW, outH)
	}

	region.X = randomOffset(srcW-region.Width, rng)
	region.Y = randomOffset(srcH-region.Height, rng)
	return region, nil
}

// CropAndResize applies one crop region to both images and resizes both to outW x outH.
func (c *PairedCropper) CropAndResize(pair types.ImagePair, fraction float64, outW, outH int, rng *rand.Rand) (types.ImagePair, types.CropRegion, error) {
	if err := pair.Validate(); err != nil {
		return types.ImagePair{}, types.CropRegion{}, err
	}

	w, h := pair.Size()
	region, err := c.ComputeRegion(w, h, fraction, outW, outH, rng)
	if err != nil {
		return types.ImagePair{}, types.CropRegion{}, err
	}

	out, err := c.Apply(pair, region, outW, outH)
	if err != nil {
		return types.ImagePair{}, types.CropRegion{}, err
	}
	return out, region, nil
}

// Apply crops both images to region and resizes them to outW x outH
func (c *PairedCropper) Apply(pair types.ImagePair, region types.CropRegion, outW, outH int) (types.ImagePair, error) {
	if err := pair.Validate(); err != nil {
		return types.ImagePair{}, err
	}
	w, h := pair.Size()
	if !region.Within(w, h) {
		return types.ImagePair{}, fmt.Errorf("%w: region %+v outside %dx%d", types.ErrInvalidGeometry, region, w, h)
	}

	return types.ImagePair{
		Source: c.cropResize(pair.Source, region, outW, outH),
		Target: c.cropResize(pair.Target, region, outW, outH),
	}, nil
}

func (c *PairedCropper) cropResize(img image.Image, region types.CropRegion, outW, outH int) image.Image {
	// Region coordinates are relative to the image origin
	origin := img.Bounds().Min
	cropped := imaging.Crop(img, region.Rect().Add(origin))
	if cropped.Bounds().Dx() == outW && cropped.Bounds().Dy() == outH {
		return cropped
	}
	return imaging.Resize(cropped, outW, outH, c.config.Filter)
}

// randomOffset draws an integer uniformly from [0, room), or 0 when there is no room
func randomOffset(room int, rng *rand.Rand) int {
	if room <= 0 {
		return 0
	}
	var f float64
	if rng != nil {
		f = rng.Float64()
	} else {
		f = rand.Float64()
	}
	return int(f * float64(room))
}
