package types

import (
	"errors"
	"fmt"
	"image"
)

// Error taxonomy shared by every stage of the pipeline. Callers wrap these
// with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrDecode          = errors.New("decode error")
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrTransform       = errors.New("transform failure")
	ErrIO              = errors.New("io error")
)

// ImagePair is a source image and the target derived from it.
// Both sides always share the same width and height.
type ImagePair struct {
	Source image.Image
	Target image.Image
}

// Size returns the width and height of the pair (taken from the source)
func (p ImagePair) Size() (int, int) {
	b := p.Source.Bounds()
	return b.Dx(), b.Dy()
}

// Validate checks the alignment invariant: both images present and equally sized
func (p ImagePair) Validate() error {
	if p.Source == nil || p.Target == nil {
		return fmt.Errorf("%w: pair has a nil image", ErrInvalidGeometry)
	}
	sb, tb := p.Source.Bounds(), p.Target.Bounds()
	if sb.Dx() != tb.Dx() || sb.Dy() != tb.Dy() {
		return fmt.Errorf("%w: source is %dx%d but target is %dx%d",
			ErrInvalidGeometry, sb.Dx(), sb.Dy(), tb.Dx(), tb.Dy())
	}
	return nil
}

// CropRegion is a rectangle in source-image pixel coordinates
type CropRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the region to an image.Rectangle
func (r CropRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Within reports whether the region is non-empty and fits inside a w x h image
func (r CropRegion) Within(w, h int) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= w && r.Y+r.Height <= h
}

// AugmentationSpec configures the per-image augmentation batch
type AugmentationSpec struct {
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	MaxAngle float64 `json:"max_angle"`
}

// Sample is one generated pair together with the geometry that produced it.
// Augmented is false for the pass-through pair emitted when augmentation is off.
type Sample struct {
	Pair      ImagePair
	Region    CropRegion
	Angle     float64
	Augmented bool
}

// Partition is the dataset bucket an input image is routed to
type Partition int

const (
	// Unsplit writes directly into the output root
	Unsplit Partition = iota
	Train
	Test
)

// Dir returns the partition's subdirectory name ("" for Unsplit)
func (p Partition) Dir() string {
	switch p {
	case Train:
		return "train"
	case Test:
		return "test"
	default:
		return ""
	}
}

func (p Partition) String() string {
	if p == Unsplit {
		return "unsplit"
	}
	return p.Dir()
}

// MarshalText lets partitions appear by name in JSON output
func (p Partition) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a partition name written by MarshalText
func (p *Partition) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unsplit", "":
		*p = Unsplit
	case "train":
		*p = Train
	case "test":
		*p = Test
	default:
		return fmt.Errorf("unknown partition %q", text)
	}
	return nil
}
