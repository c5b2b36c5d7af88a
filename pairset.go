// Package pairset builds paired image datasets for image-to-image training.
//
// Every input image becomes a (source, target) pair: the target is derived
// from the source by a content transform (palette colorization or contour
// tracing). Pairs can be augmented with aligned random crops, routed into
// train/test partitions, and written either as side-by-side canvases or as
// separate _x/_y files.
//
// Basic usage:
//
//	p, err := pairset.New(pairset.Options{Action: "trace"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	img, err := p.LoadImage("photo.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//	pair, err := p.MakePair(img)
//	if err != nil {
//		log.Fatal(err)
//	}
//	canvas, err := pairset.Combine(pair)
//
// The package consists of these components:
//
//  1. Cropper (pkg/cropper): aspect-ratio preserving paired crop and resize
//  2. Augment (pkg/augment): batches of random crops per image
//  3. Transform (pkg/transform): colorize and trace
//  4. Dataset (pkg/dataset): partitions, naming, writing, manifest
//  5. Pipeline (pkg/pipeline): the concurrent directory-to-dataset driver
//
// The cmd/pairset CLI wraps the pipeline.
package pairset

import (
	"image"
	"math/rand/v2"

	"github.com/menta2k/pairset/pkg/augment"
	"github.com/menta2k/pairset/pkg/cropper"
	"github.com/menta2k/pairset/pkg/dataset"
	"github.com/menta2k/pairset/pkg/processing"
	"github.com/menta2k/pairset/pkg/transform"
	"github.com/menta2k/pairset/pkg/types"
)

// Version of the pairset library and CLI
const Version = "1.0.0"

// Options configures a Pairset
type Options struct {
	// Action names the content transform ("colorize" or "trace")
	Action string
	// Palette overrides the colorize palette; empty uses the default
	Palette transform.Palette
	// Augment enables random crops in Augment
	Augment bool
}

// Pairset provides a high-level interface over the individual stages
type Pairset struct {
	processor *processing.Processor
	transform transform.Func
	generator *augment.Generator
}

// New creates a Pairset for the given options
func New(opts Options) (*Pairset, error) {
	fn, err := transform.ForAction(opts.Action, opts.Palette)
	if err != nil {
		return nil, err
	}
	return &Pairset{
		processor: processing.NewProcessor(),
		transform: fn,
		generator: augment.New(cropper.New(), opts.Augment),
	}, nil
}

// LoadImage decodes an image file into an opaque RGB image
func (p *Pairset) LoadImage(path string) (image.Image, error) {
	img, err := p.processor.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// SaveImage writes img losslessly as png or webp
func (p *Pairset) SaveImage(img image.Image, path, format string) error {
	return p.processor.SaveImage(img, path, format)
}

// MakePair derives the target of img with the configured transform
func (p *Pairset) MakePair(img image.Image) (types.ImagePair, error) {
	return transform.Apply(p.transform, img)
}

// Augment produces the samples for one pair. A nil rng gives a random seed.
func (p *Pairset) Augment(pair types.ImagePair, spec types.AugmentationSpec, rng *rand.Rand) ([]types.Sample, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p.generator.Generate(pair, spec, rng)
}

// Combine places source and target side by side on one canvas
func Combine(pair types.ImagePair) (*image.NRGBA, error) {
	return dataset.Combine(pair)
}
