package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/menta2k/pairset/internal/utils"
	"github.com/menta2k/pairset/pkg/transform"
	"github.com/menta2k/pairset/pkg/types"
)

// Environment variables consulted by Load. They apply to whichever caption
// backend is selected.
const (
	EnvCaptionBackend = "PAIRSET_CAPTION_BACKEND"
	EnvCaptionURL     = "PAIRSET_CAPTION_URL"
	EnvCaptionModel   = "PAIRSET_CAPTION_MODEL"
)

// Config holds every option of a run. It is built once at startup and
// passed by value afterwards.
type Config struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	Action    string `json:"action"`

	Augment bool    `json:"augment"`
	Num     int     `json:"num"`
	Frac    float64 `json:"frac"`
	W       int     `json:"w"`
	H       int     `json:"h"`
	MaxAng  float64 `json:"max_ang"`

	Split    bool    `json:"split"`
	PctTrain float64 `json:"pct_train"`
	Combine  bool    `json:"combine"`

	Limit        int        `json:"limit"`
	Workers      int        `json:"workers"`
	Seed         uint64     `json:"seed"`
	Ext          string     `json:"ext"`
	Manifest     bool       `json:"manifest"`
	DebugOverlay bool       `json:"debug_overlay"`
	Palette      [][3]uint8 `json:"palette,omitempty"`

	Caption CaptionConfig `json:"caption"`
}

// CaptionConfig holds configuration for optional image captioning
type CaptionConfig struct {
	Enabled bool   `json:"enabled"`
	Backend string `json:"backend"`
	URL     string `json:"url"`
	Model   string `json:"model"`
	MaxSide int    `json:"max_side"`
	Quality int    `json:"quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Num:      64,
		Frac:     0.6667,
		W:        64,
		H:        64,
		PctTrain: 0.9,
		Workers:  runtime.NumCPU(),
		Ext:      "png",
		Manifest: true,
		Caption: CaptionConfig{
			Backend: "ollama",
			URL:     "http://localhost:11434",
			Model:   "llava",
			MaxSide: 768,
			Quality: 85,
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load builds the base configuration: defaults, then the JSON file at path
// (if any), then a .env file and environment variables.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvCaptionBackend); v != "" {
		cfg.Caption.Backend = v
	}
	if v := os.Getenv(EnvCaptionURL); v != "" {
		cfg.Caption.URL = v
	}
	if v := os.Getenv(EnvCaptionModel); v != "" {
		cfg.Caption.Model = v
	}
	return cfg, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AugmentationSpec returns the augmentation settings as a spec value
func (c *Config) AugmentationSpec() types.AugmentationSpec {
	return types.AugmentationSpec{
		Count:    c.Num,
		Fraction: c.Frac,
		Width:    c.W,
		Height:   c.H,
		MaxAngle: c.MaxAng,
	}
}

// Validate checks if the configuration is valid. Every failure wraps types.ErrConfiguration.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", types.ErrConfiguration, fmt.Sprintf(format, args...))
	}

	if c.InputDir == "" {
		return fail("input_dir is required")
	}
	if !utils.DirExists(c.InputDir) {
		return fail("input_dir %q is not a readable directory", c.InputDir)
	}
	if c.OutputDir == "" {
		return fail("output_dir is required")
	}
	if c.Action == "" {
		return fail("action is required (one of %v)", transform.Actions())
	}
	if !slices.Contains(transform.Actions(), c.Action) {
		return fail("unknown action %q (one of %v)", c.Action, transform.Actions())
	}

	if c.Num < 0 {
		return fail("num must not be negative")
	}
	if !(c.Frac > 0 && c.Frac <= 1) {
		return fail("frac must be in (0, 1]")
	}
	if c.W <= 0 || c.H <= 0 {
		return fail("w and h must be positive")
	}
	if c.MaxAng < 0 {
		return fail("max_ang must not be negative")
	}
	if c.PctTrain < 0 || c.PctTrain > 1 {
		return fail("pct_train must be between 0 and 1")
	}
	if c.Limit < 0 {
		return fail("limit must not be negative")
	}
	if c.Workers < 0 {
		return fail("workers must not be negative")
	}
	if c.Ext != "png" && c.Ext != "webp" {
		return fail("ext must be png or webp")
	}

	if c.Caption.Enabled {
		if c.Caption.Backend != "ollama" && c.Caption.Backend != "llamacpp" {
			return fail("caption.backend must be ollama or llamacpp")
		}
		if c.Caption.URL == "" || c.Caption.Model == "" {
			return fail("caption.url and caption.model are required when captioning")
		}
		if c.Caption.Quality < 1 || c.Caption.Quality > 100 {
			return fail("caption.quality must be between 1 and 100")
		}
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./pairset.json"
	}
	return filepath.Join(home, ".config", "pairset", "config.json")
}

// RegisterFlags defines a flag for every option on fs and returns the config
// the parsed values land in. Use Overlay to merge them onto a loaded base.
func RegisterFlags(fs *pflag.FlagSet) *Config {
	d := Default()
	f := &Config{}

	fs.StringVar(&f.InputDir, "input_dir", "", "where to get input images")
	fs.StringVar(&f.OutputDir, "output_dir", "", "where to put output images")
	fs.StringVar(&f.Action, "action", "", "which content transform to apply {colorize,trace}")

	fs.BoolVar(&f.Augment, "augment", false, "generate random crops per image")
	fs.IntVar(&f.Num, "num", d.Num, "number of crops per image when augmenting")
	fs.Float64Var(&f.Frac, "frac", d.Frac, "cropping ratio before resizing")
	fs.IntVar(&f.W, "w", d.W, "output image width")
	fs.IntVar(&f.H, "h", d.H, "output image height")
	fs.Float64Var(&f.MaxAng, "max_ang", d.MaxAng, "max rotation angle in radians (sampled and recorded, not applied)")

	fs.BoolVar(&f.Split, "split", false, "split into train/test folders")
	fs.Float64Var(&f.PctTrain, "pct_train", d.PctTrain, "fraction of images that go to the training set")
	fs.BoolVar(&f.Combine, "combine", false, "concatenate source and target side by side")

	fs.IntVar(&f.Limit, "limit", d.Limit, "process at most this many images (0 = all)")
	fs.IntVar(&f.Workers, "workers", d.Workers, "images processed in parallel")
	fs.Uint64Var(&f.Seed, "seed", d.Seed, "random seed (0 = time based)")
	fs.StringVar(&f.Ext, "ext", d.Ext, "output format: png|webp (both lossless)")
	fs.BoolVar(&f.Manifest, "manifest", d.Manifest, "write manifest.json to the output dir")
	fs.BoolVar(&f.DebugOverlay, "debug_overlay", false, "write crop-region overlays to <output_dir>/debug")

	fs.BoolVar(&f.Caption.Enabled, "caption", false, "caption each input image with a vision model")
	fs.StringVar(&f.Caption.Backend, "caption_backend", d.Caption.Backend, "caption backend: ollama|llamacpp")
	fs.StringVar(&f.Caption.URL, "caption_url", d.Caption.URL, "caption server URL")
	fs.StringVar(&f.Caption.Model, "caption_model", d.Caption.Model, "vision model name")

	return f
}

// Overlay copies onto base every option whose flag was set explicitly on fs
func Overlay(fs *pflag.FlagSet, base, flagged *Config) *Config {
	out := *base
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("input_dir", func() { out.InputDir = flagged.InputDir })
	set("output_dir", func() { out.OutputDir = flagged.OutputDir })
	set("action", func() { out.Action = flagged.Action })
	set("augment", func() { out.Augment = flagged.Augment })
	set("num", func() { out.Num = flagged.Num })
	set("frac", func() { out.Frac = flagged.Frac })
	set("w", func() { out.W = flagged.W })
	set("h", func() { out.H = flagged.H })
	set("max_ang", func() { out.MaxAng = flagged.MaxAng })
	set("split", func() { out.Split = flagged.Split })
	set("pct_train", func() { out.PctTrain = flagged.PctTrain })
	set("combine", func() { out.Combine = flagged.Combine })
	set("limit", func() { out.Limit = flagged.Limit })
	set("workers", func() { out.Workers = flagged.Workers })
	set("seed", func() { out.Seed = flagged.Seed })
	set("ext", func() { out.Ext = flagged.Ext })
	set("manifest", func() { out.Manifest = flagged.Manifest })
	set("debug_overlay", func() { out.DebugOverlay = flagged.DebugOverlay })
	set("caption", func() { out.Caption.Enabled = flagged.Caption.Enabled })
	set("caption_backend", func() { out.Caption.Backend = flagged.Caption.Backend })
	set("caption_url", func() { out.Caption.URL = flagged.Caption.URL })
	set("caption_model", func() { out.Caption.Model = flagged.Caption.Model })

	return &out
}
