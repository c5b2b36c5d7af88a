package dataset

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/menta2k/pairset/pkg/processing"
	"github.com/menta2k/pairset/pkg/types"
)

// Writer persists generated pairs under an output root
type Writer struct {
	root      string
	format    string
	processor *processing.Processor

	// combined canvas half size; zero uses the pair's own size
	itemW, itemH int
}

// NewWriter creates a Writer rooted at root. format is processing.FormatPNG or FormatWebP.
func NewWriter(root, format string, processor *processing.Processor) *Writer {
	if format == "" {
		format = processing.FormatPNG
	}
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Writer{root: root, format: format, processor: processor}
}

// WithItemSize fixes combined canvases at 2*width x height regardless of
// the pair's resolution (see CombineInto). Loose pairs are unaffected.
func (w *Writer) WithItemSize(width, height int) *Writer {
	w.itemW, w.itemH = width, height
	return w
}

// Dir returns the directory items of a partition are written to
func (w *Writer) Dir(p types.Partition) string {
	if d := p.Dir(); d != "" {
		return filepath.Join(w.root, d)
	}
	return w.root
}

// Combine pastes source at (0,0) and target at (W,0) on a 2W x H canvas
// sized from the pair itself
func Combine(pair types.ImagePair) (*image.NRGBA, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	width, height := pair.Size()
	return CombineInto(pair, width, height)
}

// CombineInto builds a 2*width x height canvas with source on the left half
// and target on the right. Each side is clipped to its top-left width x height
// window; a smaller pair leaves black padding. Both sides are clipped to the
// same window, so pixel correspondence holds.
func CombineInto(pair types.ImagePair, width, height int) (*image.NRGBA, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: canvas half %dx%d must be positive", types.ErrInvalidGeometry, width, height)
	}
	canvas := imaging.New(2*width, height, color.NRGBA{0, 0, 0, 255})
	canvas = imaging.Paste(canvas, clip(pair.Source, width, height), image.Pt(0, 0))
	canvas = imaging.Paste(canvas, clip(pair.Target, width, height), image.Pt(width, 0))
	return canvas, nil
}

func clip(img image.Image, width, height int) *image.NRGBA {
	origin := img.Bounds().Min
	return imaging.Crop(img, image.Rect(0, 0, width, height).Add(origin))
}

// WriteItem writes one generated pair and returns the paths it created.
//
// With combine the pair becomes a single side-by-side canvas named
// <base>_<index>, sized by WithItemSize when set; otherwise source and target are written as <base>_<index>_x
// and <base>_<index>_y. The partition directory is created on first use. If
// any file fails, files already written by this call are removed.
func (w *Writer) WriteItem(pair types.ImagePair, partition types.Partition, baseName string, index int, combine bool) ([]string, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	dir := w.Dir(partition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", types.ErrIO, dir, err)
	}

	if combine {
		width, height := pair.Size()
		if w.itemW > 0 && w.itemH > 0 {
			width, height = w.itemW, w.itemH
		}
		canvas, err := CombineInto(pair, width, height)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, ItemName(baseName, index, w.format))
		if err := w.processor.SaveImage(canvas, path, w.format); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	xName, yName := PairNames(baseName, index, w.format)
	xPath, yPath := filepath.Join(dir, xName), filepath.Join(dir, yName)
	if err := w.processor.SaveImage(pair.Source, xPath, w.format); err != nil {
		return nil, err
	}
	if err := w.processor.SaveImage(pair.Target, yPath, w.format); err != nil {
		os.Remove(xPath)
		return nil, err
	}
	return []string{xPath, yPath}, nil
}

// Remove deletes previously written item files, ignoring ones already gone
func Remove(paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("%w: %v", types.ErrIO, err)
		}
	}
	return firstErr
}
