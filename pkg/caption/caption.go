// Package caption asks a vision model for a short description and tags of an
// input photograph. Captions are stored in the dataset manifest.
package caption

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/pairset/pkg/dataset"
)

// Prompt is sent alongside every image
const Prompt = `You describe photographs for a training dataset.

Return JSON only:
{
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

RULES
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Captioner describes a base64-encoded image
type Captioner interface {
	Caption(ctx context.Context, imgB64 string) (*dataset.Caption, error)
}

// Supported caption backends
const (
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// New creates the captioner for backend
func New(backend, serverURL, model string) (Captioner, error) {
	switch backend {
	case BackendOllama, "":
		c, err := NewOllamaClient(serverURL, model)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendLlamaCpp:
		c, err := NewLlamaCppClient(serverURL, model)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown caption backend: %s (use %q or %q)", backend, BackendOllama, BackendLlamaCpp)
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
