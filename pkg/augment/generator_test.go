package augment

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/pairset/pkg/cropper"
	"github.com/menta2k/pairset/pkg/types"
)

func createTestPair(width, height int) types.ImagePair {
	src := image.NewNRGBA(image.Rect(0, 0, width, height))
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 64, 255})
			dst.SetNRGBA(x, y, color.NRGBA{255 - uint8(x), 255 - uint8(y), 191, 255})
		}
	}
	return types.ImagePair{Source: src, Target: dst}
}

func spec(count int) types.AugmentationSpec {
	return types.AugmentationSpec{Count: count, Fraction: 0.6667, Width: 64, Height: 64}
}

func TestGenerateCount(t *testing.T) {
	g := New(cropper.New(), true)
	pair := createTestPair(240, 180)

	for _, k := range []int{1, 4, 17} {
		samples, err := g.Generate(pair, spec(k), rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		require.Len(t, samples, k)
		for _, s := range samples {
			assert.True(t, s.Augmented)
			require.NoError(t, s.Pair.Validate())
			w, h := s.Pair.Size()
			assert.Equal(t, 64, w)
			assert.Equal(t, 64, h)
		}
	}
}

func TestGenerateZeroCountIsPassThrough(t *testing.T) {
	g := New(nil, true)
	pair := createTestPair(240, 180)

	samples, err := g.Generate(pair, spec(0), rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Augmented)
	assert.Same(t, pair.Source.(*image.NRGBA), samples[0].Pair.Source.(*image.NRGBA))

	w, h := samples[0].Pair.Size()
	assert.Equal(t, 240, w)
	assert.Equal(t, 180, h)
}

func TestGenerateDisabledIgnoresCount(t *testing.T) {
	g := New(nil, false)
	samples, err := g.Generate(createTestPair(120, 90), spec(8), rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Augmented)
	assert.Equal(t, types.CropRegion{Width: 120, Height: 90}, samples[0].Region)
}

func TestGenerateSingleSampleIsCropped(t *testing.T) {
	g := New(nil, true)
	samples, err := g.Generate(createTestPair(240, 180), spec(1), rand.New(rand.NewPCG(5, 6)))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.True(t, samples[0].Augmented)
	w, h := samples[0].Pair.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 64, h)
}

func TestGenerateResamplesOrigin(t *testing.T) {
	g := New(nil, true)
	samples, err := g.Generate(createTestPair(255, 255), spec(16), rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)

	origins := map[[2]int]struct{}{}
	for _, s := range samples {
		origins[[2]int{s.Region.X, s.Region.Y}] = struct{}{}
	}
	assert.Greater(t, len(origins), 1, "every sample used the same origin")
}

func TestGenerateAngleSampledOncePerImage(t *testing.T) {
	g := New(nil, true)
	s := spec(5)
	s.MaxAngle = 0.5

	samples, err := g.Generate(createTestPair(200, 200), s, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	first := samples[0].Angle
	assert.LessOrEqual(t, first, 0.5)
	assert.GreaterOrEqual(t, first, -0.5)
	for _, smp := range samples {
		assert.Equal(t, first, smp.Angle)
	}
}

func TestGenerateInvalidGeometry(t *testing.T) {
	g := New(nil, true)
	_, err := g.Generate(createTestPair(32, 32), spec(3), rand.New(rand.NewPCG(1, 1)))
	require.ErrorIs(t, err, types.ErrInvalidGeometry)
}

func TestSampleAngle(t *testing.T) {
	assert.Zero(t, SampleAngle(0, rand.New(rand.NewPCG(1, 1))))
	assert.Zero(t, SampleAngle(1, nil))

	rng := rand.New(rand.NewPCG(11, 12))
	for i := 0; i < 100; i++ {
		a := SampleAngle(0.25, rng)
		assert.True(t, a >= -0.25 && a <= 0.25, "angle %v out of range", a)
	}
}
