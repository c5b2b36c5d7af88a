package dataset

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Namer assigns every input file a basename that is unique within the batch.
// It is built once up-front and only read afterwards.
type Namer struct {
	names map[string]string
}

// NewNamer derives basenames for files by stripping their extension. Files whose
// stems collide (photo.jpg / photo.png) get a short hash of their full name appended.
func NewNamer(files []string) *Namer {
	stems := lo.Map(files, func(f string, _ int) string { return Stem(f) })
	counts := lo.CountValues(stems)

	names := make(map[string]string, len(files))
	used := make(map[string]struct{}, len(files))
	for i, f := range files {
		name := stems[i]
		if counts[name] > 1 {
			name = fmt.Sprintf("%s-%s", name, shortHash(filepath.Base(f)))
		}
		// A disambiguated name may still clash with another literal stem
		for n := 2; ; n++ {
			if _, taken := used[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s-%d", stems[i], n)
		}
		used[name] = struct{}{}
		names[f] = name
	}
	return &Namer{names: names}
}

// BaseName returns the basename assigned to file, falling back to its stem
func (n *Namer) BaseName(file string) string {
	if name, ok := n.names[file]; ok {
		return name
	}
	return Stem(file)
}

// Stem returns the file name without directory or extension
func Stem(file string) string {
	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

func shortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// ItemName is the file name of a combined item: <base>_<index>.<ext>
func ItemName(base string, index int, ext string) string {
	return fmt.Sprintf("%s_%d.%s", base, index, ext)
}

// PairNames are the file names of a loose pair: <base>_<index>_x.<ext> (source)
// and <base>_<index>_y.<ext> (target)
func PairNames(base string, index int, ext string) (string, string) {
	return fmt.Sprintf("%s_%d_x.%s", base, index, ext), fmt.Sprintf("%s_%d_y.%s", base, index, ext)
}
