// Package pipeline drives the whole dataset build: list inputs, assign
// partitions, then decode, transform, augment and write every image with
// per-image failure isolation.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/pairset/internal/config"
	"github.com/menta2k/pairset/internal/utils"
	"github.com/menta2k/pairset/pkg/augment"
	"github.com/menta2k/pairset/pkg/caption"
	"github.com/menta2k/pairset/pkg/cropper"
	"github.com/menta2k/pairset/pkg/dataset"
	"github.com/menta2k/pairset/pkg/processing"
	"github.com/menta2k/pairset/pkg/transform"
	"github.com/menta2k/pairset/pkg/types"
)

// DebugDir holds crop-region overlays when enabled
const DebugDir = "debug"

// Driver runs the pipeline for one immutable configuration
type Driver struct {
	cfg       config.Config
	logger    *logrus.Logger
	processor *processing.Processor
	generator *augment.Generator
	transform transform.Func
	writer    *dataset.Writer
	captioner caption.Captioner
}

// Option customises a Driver
type Option func(*Driver)

// WithTransform replaces the transform selected by the configured action
func WithTransform(fn transform.Func) Option {
	return func(d *Driver) { d.transform = fn }
}

// WithCaptioner sets the captioner used when captioning is enabled
func WithCaptioner(c caption.Captioner) Option {
	return func(d *Driver) { d.captioner = c }
}

// Failure is an input image that could not be processed
type Failure struct {
	File string
	Err  error
}

// Report summarises a run
type Report struct {
	Total        int
	Succeeded    int
	Items        int
	Failures     []Failure
	Seed         uint64
	ManifestPath string
	Cancelled    bool
}

// New builds a Driver for cfg. The configuration is copied; later changes to
// the caller's value have no effect.
func New(cfg config.Config, logger *logrus.Logger, opts ...Option) (*Driver, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	processor := processing.NewProcessor()

	d := &Driver{
		cfg:       cfg,
		logger:    logger,
		processor: processor,
		generator: augment.New(cropper.New(), cfg.Augment),
		writer:    dataset.NewWriter(cfg.OutputDir, cfg.Ext, processor).WithItemSize(cfg.W, cfg.H),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.transform == nil {
		fn, err := transform.ForAction(cfg.Action, transform.PaletteFromRGB(cfg.Palette))
		if err != nil {
			return nil, err
		}
		d.transform = fn
	}

	if cfg.Caption.Enabled && d.captioner == nil {
		c, err := caption.New(cfg.Caption.Backend, cfg.Caption.URL, cfg.Caption.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: caption: %v", types.ErrConfiguration, err)
		}
		d.captioner = c
	}
	if !cfg.Caption.Enabled {
		d.captioner = nil
	}

	return d, nil
}

// Run processes every input image. Only setup failures are returned as errors;
// per-image failures are logged and collected in the report.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	files, err := utils.ListFiles(d.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list input dir: %v", types.ErrIO, err)
	}
	if d.cfg.Limit > 0 && len(files) > d.cfg.Limit {
		files = files[:d.cfg.Limit]
	}
	if err := utils.EnsureDir(d.cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", types.ErrIO, err)
	}

	seed := d.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	partitions := dataset.AssignPartitions(files, d.cfg.PctTrain, d.cfg.Split)
	namer := dataset.NewNamer(files)
	spec := d.cfg.AugmentationSpec()
	manifest := dataset.NewManifest(d.cfg.Action, spec, seed)

	workers := d.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	d.logger.WithFields(logrus.Fields{
		"input":   d.cfg.InputDir,
		"output":  d.cfg.OutputDir,
		"images":  len(files),
		"action":  d.cfg.Action,
		"augment": d.cfg.Augment,
		"split":   d.cfg.Split,
		"combine": d.cfg.Combine,
		"workers": workers,
		"seed":    seed,
	}).Info("starting dataset build")

	report := &Report{Total: len(files), Seed: seed}
	var mu sync.Mutex
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		j := job{
			index:     i,
			file:      file,
			partition: partitions[file],
			baseName:  namer.BaseName(file),
			seed:      seed,
		}
		g.Go(func() error {
			entry, err := d.processImage(gctx, j, spec)
			n := done.Add(1)

			fields := logrus.Fields{
				"file":      j.file,
				"partition": j.partition.String(),
				"progress":  fmt.Sprintf("%d/%d", n, len(files)),
			}

			mu.Lock()
			if err != nil {
				report.Failures = append(report.Failures, Failure{File: j.file, Err: err})
			} else {
				report.Succeeded++
				report.Items += len(entry.Files)
			}
			mu.Unlock()

			if err != nil {
				d.logger.WithFields(fields).WithError(err).Error("image failed")
				return nil
			}
			manifest.Add(*entry)
			d.logger.WithFields(fields).WithField("files", len(entry.Files)).Info("image done")
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		report.Cancelled = true
		d.logger.WithError(ctx.Err()).Warn("run cancelled; already written files are kept")
	}

	if d.cfg.Manifest {
		path, err := manifest.Save(d.cfg.OutputDir)
		if err != nil {
			d.logger.WithError(err).Error("manifest not written")
		} else {
			report.ManifestPath = path
		}
	}

	d.logger.WithFields(logrus.Fields{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    len(report.Failures),
		"items":     report.Items,
	}).Info("dataset build finished")

	return report, nil
}

type job struct {
	index     int
	file      string
	partition types.Partition
	baseName  string
	seed      uint64
}

// processImage runs decode, transform, augment and write for one input.
// Either every artifact of the image is written or none is left behind.
func (d *Driver) processImage(ctx context.Context, j job, spec types.AugmentationSpec) (*dataset.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := d.processor.LoadImage(filepath.Join(d.cfg.InputDir, j.file))
	if err != nil {
		return nil, err
	}

	pair, err := transform.Apply(d.transform, img)
	if err != nil {
		return nil, err
	}

	// Seeding by (run seed, input index) keeps output independent of scheduling
	rng := rand.New(rand.NewPCG(j.seed, uint64(j.index)))
	samples, err := d.generator.Generate(pair, spec, rng)
	if err != nil {
		return nil, err
	}

	var written []string
	rollback := func(cause error) (*dataset.Entry, error) {
		if rmErr := dataset.Remove(written); rmErr != nil {
			d.logger.WithField("file", j.file).WithError(rmErr).Warn("rollback incomplete")
		}
		return nil, cause
	}

	regions := make([]types.CropRegion, 0, len(samples))
	for i, s := range samples {
		paths, err := d.writer.WriteItem(s.Pair, j.partition, j.baseName, i, d.cfg.Combine)
		if err != nil {
			return rollback(fmt.Errorf("item %d: %w", i, err))
		}
		written = append(written, paths...)
		regions = append(regions, s.Region)
	}

	if d.cfg.DebugOverlay && samples[0].Augmented {
		path, err := d.writeOverlay(img, regions, j.baseName)
		if err != nil {
			return rollback(err)
		}
		written = append(written, path)
	}

	entry := &dataset.Entry{
		Source:    j.file,
		BaseName:  j.baseName,
		Partition: j.partition,
		Angle:     samples[0].Angle,
		Regions:   regions,
		Files:     relativeTo(d.cfg.OutputDir, written),
	}

	if d.captioner != nil {
		entry.Caption = d.caption(ctx, img, j.file)
	}
	return entry, nil
}

func (d *Driver) writeOverlay(img image.Image, regions []types.CropRegion, baseName string) (string, error) {
	dir := filepath.Join(d.cfg.OutputDir, DebugDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", types.ErrIO, dir, err)
	}
	overlay := d.processor.CreateRegionOverlay(img, regions)
	path := filepath.Join(dir, fmt.Sprintf("%s_regions.%s", baseName, d.cfg.Ext))
	if err := d.processor.SaveImage(overlay, path, d.cfg.Ext); err != nil {
		return "", err
	}
	return path, nil
}

// caption failures only cost the caption, never the image
func (d *Driver) caption(ctx context.Context, img image.Image, file string) *dataset.Caption {
	b64, err := d.processor.PrepareImageForModel(img, "jpg", d.cfg.Caption.MaxSide, d.cfg.Caption.Quality)
	if err != nil {
		d.logger.WithField("file", file).WithError(err).Warn("caption skipped")
		return nil
	}
	c, err := d.captioner.Caption(ctx, b64)
	if err != nil {
		d.logger.WithField("file", file).WithError(err).Warn("caption skipped")
		return nil
	}
	return c
}

func relativeTo(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil {
			out = append(out, filepath.ToSlash(rel))
		} else {
			out = append(out, p)
		}
	}
	return out
}
