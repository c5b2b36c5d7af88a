package pairset

import (
	"image"
	"image/color"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/pairset/pkg/types"
)

func sampleImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), 90, 255})
		}
	}
	return img
}

func TestNewRejectsUnknownAction(t *testing.T) {
	_, err := New(Options{Action: "sketch"})
	require.ErrorIs(t, err, types.ErrConfiguration)
}

func TestMakePairAndAugment(t *testing.T) {
	p, err := New(Options{Action: "colorize", Augment: true})
	require.NoError(t, err)

	pair, err := p.MakePair(sampleImage(120, 80))
	require.NoError(t, err)
	require.NoError(t, pair.Validate())

	spec := types.AugmentationSpec{Count: 3, Fraction: 0.5, Width: 24, Height: 24}
	samples, err := p.Augment(pair, spec, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for _, s := range samples {
		w, h := s.Pair.Size()
		assert.Equal(t, 24, w)
		assert.Equal(t, 24, h)
		assert.True(t, s.Augmented)
	}

	// nil rng still works
	samples, err = p.Augment(pair, spec, nil)
	require.NoError(t, err)
	assert.Len(t, samples, 3)
}

func TestSaveLoadCombined(t *testing.T) {
	p, err := New(Options{Action: "trace"})
	require.NoError(t, err)

	pair, err := p.MakePair(sampleImage(40, 30))
	require.NoError(t, err)
	canvas, err := Combine(pair)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pair.png")
	require.NoError(t, p.SaveImage(canvas, path, "png"))

	back, err := p.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 30), back.Bounds())
}
