package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/menta2k/pairset/pkg/types"
)

// ManifestFile is the name of the manifest written to the output root
const ManifestFile = "manifest.json"

// Caption is the optional model description attached to an input image
type Caption struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Entry records everything written for one input image
type Entry struct {
	Source    string             `json:"source"`
	BaseName  string             `json:"base_name"`
	Partition types.Partition    `json:"partition"`
	Angle     float64            `json:"angle"`
	Regions   []types.CropRegion `json:"regions"`
	Files     []string           `json:"files"`
	Caption   *Caption           `json:"caption,omitempty"`
}

// Manifest collects entries from concurrent workers
type Manifest struct {
	Created time.Time              `json:"created"`
	Action  string                 `json:"action"`
	Augment types.AugmentationSpec `json:"augment"`
	Seed    uint64                 `json:"seed"`
	Entries []Entry                `json:"entries"`

	mu sync.Mutex
}

// NewManifest creates an empty manifest for a run
func NewManifest(action string, spec types.AugmentationSpec, seed uint64) *Manifest {
	return &Manifest{
		Created: time.Now().UTC(),
		Action:  action,
		Augment: spec,
		Seed:    seed,
	}
}

// Add records an entry; safe for concurrent use
func (m *Manifest) Add(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
}

// Len returns the number of recorded entries
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

// Save writes the manifest as indented JSON to <root>/manifest.json,
// with entries ordered by source file.
func (m *Manifest) Save(root string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Source < m.Entries[j].Source })

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(root, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write manifest: %v", types.ErrIO, err)
	}
	return path, nil
}
