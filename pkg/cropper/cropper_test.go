package cropper

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/pairset/pkg/types"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	return img
}

func invert(img *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i+0] = 255 - out.Pix[i+0]
		out.Pix[i+1] = 255 - out.Pix[i+1]
		out.Pix[i+2] = 255 - out.Pix[i+2]
	}
	return out
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)
	assert.Equal(t, imaging.CatmullRom.Support, c.config.Filter.Support)
}

func TestNewWithConfigDefaultsFilter(t *testing.T) {
	c := NewWithConfig(CropConfig{})
	assert.Equal(t, imaging.CatmullRom.Support, c.config.Filter.Support)

	c = NewWithConfig(CropConfig{Filter: imaging.Lanczos})
	assert.Equal(t, imaging.Lanczos.Support, c.config.Filter.Support)
}

func TestComputeRegionBounds(t *testing.T) {
	c := New()
	tests := []struct {
		name       string
		srcW, srcH int
		fraction   float64
		outW, outH int
		wantW      int
		wantH      int
	}{
		{"wide source is height bound", 400, 200, 0.5, 64, 64, 100, 100},
		{"tall source is width bound", 200, 400, 0.5, 64, 64, 100, 100},
		{"square source", 300, 300, 0.6667, 64, 64, 200, 200},
		{"never below output size", 400, 200, 0.1, 64, 64, 64, 64},
		{"wide output ratio", 300, 300, 0.5, 128, 64, 150, 75},
		{"full fraction", 256, 256, 1, 64, 64, 256, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(0); seed < 50; seed++ {
				region, err := c.ComputeRegion(tt.srcW, tt.srcH, tt.fraction, tt.outW, tt.outH, newRand(seed))
				require.NoError(t, err)
				assert.Equal(t, tt.wantW, region.Width)
				assert.Equal(t, tt.wantH, region.Height)
				assert.True(t, region.Within(tt.srcW, tt.srcH), "region %+v outside %dx%d", region, tt.srcW, tt.srcH)
			}
		})
	}
}

func TestComputeRegionDeterministicForSeed(t *testing.T) {
	c := New()
	a, err := c.ComputeRegion(640, 480, 0.5, 64, 64, newRand(42))
	require.NoError(t, err)
	b, err := c.ComputeRegion(640, 480, 0.5, 64, 64, newRand(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeRegionInvalidGeometry(t *testing.T) {
	c := New()
	tests := []struct {
		name       string
		srcW, srcH int
		fraction   float64
		outW, outH int
	}{
		{"output larger than source", 50, 50, 0.5, 64, 64},
		{"zero fraction", 200, 200, 0, 64, 64},
		{"fraction above one", 200, 200, 1.5, 64, 64},
		{"zero output width", 200, 200, 0.5, 0, 64},
		{"empty source", 0, 0, 0.5, 64, 64},
		{"output taller than source", 400, 50, 0.5, 32, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ComputeRegion(tt.srcW, tt.srcH, tt.fraction, tt.outW, tt.outH, newRand(1))
			require.ErrorIs(t, err, types.ErrInvalidGeometry)
		})
	}
}

func TestCropAndResizeOutputSize(t *testing.T) {
	c := New()
	sizes := [][2]int{{320, 240}, {240, 320}, {100, 100}, {1000, 90}}
	outs := [][2]int{{64, 64}, {32, 48}, {80, 40}}

	for _, sz := range sizes {
		for _, out := range outs {
			src := createTestImage(sz[0], sz[1])
			pair := types.ImagePair{Source: src, Target: invert(src)}

			res, _, err := c.CropAndResize(pair, 0.6667, out[0], out[1], newRand(7))
			if err != nil {
				require.ErrorIs(t, err, types.ErrInvalidGeometry)
				continue
			}
			assert.Equal(t, out[0], res.Source.Bounds().Dx())
			assert.Equal(t, out[1], res.Source.Bounds().Dy())
			assert.Equal(t, out[0], res.Target.Bounds().Dx())
			assert.Equal(t, out[1], res.Target.Bounds().Dy())
		}
	}
}

func TestCropAndResizeSameRegionForBothImages(t *testing.T) {
	c := New()
	base := createTestImage(200, 100)
	source := imaging.Clone(base)
	target := invert(base)

	// Unique marker at the same coordinate on both sides
	mx, my := 100, 50
	red := color.NRGBA{255, 0, 0, 255}
	green := color.NRGBA{0, 255, 0, 255}
	source.SetNRGBA(mx, my, red)
	target.SetNRGBA(mx, my, green)

	pair := types.ImagePair{Source: source, Target: target}

	// A 40x40 crop from a 100px tall source with fraction 0.1 is never resized,
	// so the marker must survive pixel-exact.
	hits := 0
	for seed := uint64(0); seed < 200; seed++ {
		res, region, err := c.CropAndResize(pair, 0.1, 40, 40, newRand(seed))
		require.NoError(t, err)
		require.Equal(t, 40, region.Width)

		if !image.Pt(mx, my).In(region.Rect()) {
			continue
		}
		hits++
		rx, ry := mx-region.X, my-region.Y
		assert.Equal(t, red, color.NRGBAModel.Convert(res.Source.At(rx, ry)))
		assert.Equal(t, green, color.NRGBAModel.Convert(res.Target.At(rx, ry)))
	}
	assert.Greater(t, hits, 0, "no crop covered the marker")
}

func TestCropAndResizeIdenticalInputsStayIdentical(t *testing.T) {
	c := New()
	src := createTestImage(300, 200)
	src.SetNRGBA(150, 100, color.NRGBA{255, 0, 255, 255})
	pair := types.ImagePair{Source: src, Target: imaging.Clone(src)}

	for seed := uint64(0); seed < 20; seed++ {
		res, _, err := c.CropAndResize(pair, 0.5, 64, 64, newRand(seed))
		require.NoError(t, err)
		assert.Equal(t, imaging.Clone(res.Source).Pix, imaging.Clone(res.Target).Pix)
	}
}

func TestCropAndResizeRejectsMismatchedPair(t *testing.T) {
	c := New()
	pair := types.ImagePair{Source: createTestImage(200, 200), Target: createTestImage(199, 200)}
	_, _, err := c.CropAndResize(pair, 0.5, 64, 64, newRand(1))
	require.ErrorIs(t, err, types.ErrInvalidGeometry)
}

func TestApplyRejectsOutOfBoundsRegion(t *testing.T) {
	c := New()
	src := createTestImage(100, 100)
	pair := types.ImagePair{Source: src, Target: src}
	_, err := c.Apply(pair, types.CropRegion{X: 80, Y: 0, Width: 40, Height: 40}, 32, 32)
	require.ErrorIs(t, err, types.ErrInvalidGeometry)
}

func TestApplyHonoursNonZeroOrigin(t *testing.T) {
	c := New()
	full := createTestImage(100, 100)
	sub := full.SubImage(image.Rect(10, 10, 90, 90))
	pair := types.ImagePair{Source: sub, Target: sub}

	res, err := c.Apply(pair, types.CropRegion{X: 0, Y: 0, Width: 20, Height: 20}, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, full.NRGBAAt(10, 10), color.NRGBAModel.Convert(res.Source.At(0, 0)))
}

func BenchmarkCropAndResize(b *testing.B) {
	c := New()
	src := createTestImage(1920, 1080)
	pair := types.ImagePair{Source: src, Target: invert(src)}
	rng := newRand(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.CropAndResize(pair, 0.6667, 64, 64, rng)
	}
}
