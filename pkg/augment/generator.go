// Package augment turns one aligned image pair into a batch of randomly
// cropped, resized pairs that stay pixel-correspondent.
package augment

import (
	"fmt"
	"math/rand/v2"

	"github.com/menta2k/pairset/pkg/cropper"
	"github.com/menta2k/pairset/pkg/types"
)

// Generator drives the paired cropper once per requested sample
type Generator struct {
	cropper *cropper.PairedCropper
	enabled bool
}

// New creates a Generator. When enabled is false every call degrades to the
// pass-through path regardless of the requested count.
func New(c *cropper.PairedCropper, enabled bool) *Generator {
	if c == nil {
		c = cropper.New()
	}
	return &Generator{cropper: c, enabled: enabled}
}

// SampleAngle draws the per-image rotation angle uniformly from [-maxAngle, maxAngle].
// The angle is recorded on every sample but not applied to the crop geometry.
func SampleAngle(maxAngle float64, rng *rand.Rand) float64 {
	if maxAngle == 0 || rng == nil {
		return 0
	}
	return maxAngle * (-1 + 2*rng.Float64())
}

// Generate produces spec.Count independently cropped samples of pair.
//
// With augmentation disabled or a zero count it returns exactly one sample
// holding the untouched pair at its original resolution, marked Augmented=false.
func (g *Generator) Generate(pair types.ImagePair, spec types.AugmentationSpec, rng *rand.Rand) ([]types.Sample, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	angle := SampleAngle(spec.MaxAngle, rng)

	if !g.enabled || spec.Count <= 0 {
		w, h := pair.Size()
		return []types.Sample{{
			Pair:   pair,
			Region: types.CropRegion{Width: w, Height: h},
			Angle:  angle,
		}}, nil
	}

	samples := make([]types.Sample, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		out, region, err := g.cropper.CropAndResize(pair, spec.Fraction, spec.Width, spec.Height, rng)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		samples = append(samples, types.Sample{
			Pair:      out,
			Region:    region,
			Angle:     angle,
			Augmented: true,
		})
	}
	return samples, nil
}
