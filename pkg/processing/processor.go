package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/pairset/pkg/types"
)

// Output formats understood by SaveImage. Both are lossless so written pairs
// read back pixel-exact.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Processor handles image decode, encode and conversion
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage decodes the file at path into an opaque RGB image.
// Any failure is reported as types.ErrDecode.
func (p *Processor) LoadImage(path string) (*image.NRGBA, error) {
	img, err := p.decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrDecode, filepath.Base(path), err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", types.ErrDecode, filepath.Base(path))
	}
	return ToRGB(img), nil
}

func (p *Processor) decodeFile(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.decodeImageFromBytes(data)
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unknown or unsupported format")
}

// ToRGB copies img into an NRGBA image at the origin with alpha dropped (forced opaque)
func ToRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

// Encode writes img to w in the given format
func (p *Processor) Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	case FormatPNG, "":
		return imaging.Encode(w, img, imaging.PNG)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// SaveImage encodes img and atomically places it at path.
// The file is written to a temporary name in the same directory and renamed,
// so concurrent readers never observe a partial file.
func (p *Processor) SaveImage(img image.Image, path, format string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pairset-*")
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	tmpName := tmp.Name()

	if err := p.Encode(tmp, img, format); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: encode %s: %v", types.ErrIO, filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	// CreateTemp uses 0600
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	return nil
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// CreateRegionOverlay draws every crop region onto a copy of img
func (p *Processor) CreateRegionOverlay(img image.Image, regions []types.CropRegion) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255}
	red := color.NRGBA{255, 0, 0, 255}
	stroke := int(math.Max(1, 0.004*float64(min(w, h))))
	cross := int(math.Max(3, 0.01*float64(min(w, h))))

	for _, r := range regions {
		drawBox(nrgba, r, gold, stroke)
		cx, cy := r.X+r.Width/2, r.Y+r.Height/2
		drawHLine(nrgba, cy, cx-cross, cx+cross, red)
		drawVLine(nrgba, cx, cy-cross, cy+cross, red)
	}
	return nrgba
}

func drawBox(img *image.NRGBA, r types.CropRegion, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.Width, r.Y+r.Height
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	if x0 >= x1 {
		return
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	if y0 >= y1 {
		return
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
