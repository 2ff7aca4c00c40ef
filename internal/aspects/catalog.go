// Package aspects holds the immutable aspect catalog: aspects, sub-topic
// keyword clusters and the classifier prompts selected from them.
package aspects

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spacesedan/aspectflow/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrInvalidCatalog = errors.New("invalid aspect catalog")

type catalogFile struct {
	Aspects []aspectSpec `yaml:"aspects"`
}

type aspectSpec struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	DefaultPrompt string         `yaml:"default_prompt"`
	Subtopics     []subtopicSpec `yaml:"subtopics"`
}

type subtopicSpec struct {
	Name     string   `yaml:"name"`
	Prompt   string   `yaml:"prompt"`
	Keywords []string `yaml:"keywords"`
}

var (
	defaultIndex    *Index
	defaultIndexErr error
	defaultOnce     sync.Once
)

// Default returns the index built from the embedded catalog. It is parsed
// once and shared; the index is read-only.
func Default() (*Index, error) {
	defaultOnce.Do(func() {
		defaultIndex, defaultIndexErr = Load(bytes.NewReader(defaultCatalog))
	})
	return defaultIndex, defaultIndexErr
}

// LoadFile builds an index from a catalog file, or from the embedded
// catalog when path is empty.
func LoadFile(path string) (*Index, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[Aspects] failed to open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses a YAML catalog and builds an index from it.
func Load(r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("[Aspects] failed to read catalog: %w", err)
	}

	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("[Aspects] failed to decode catalog: %w", err)
	}

	if len(file.Aspects) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 aspects, got %d", ErrInvalidCatalog, len(file.Aspects))
	}

	sum := sha256.Sum256(raw)
	idx := &Index{
		entries:     make(map[models.Aspect]*aspectEntry, len(file.Aspects)),
		fingerprint: hex.EncodeToString(sum[:]),
	}
	for _, spec := range file.Aspects {
		entry, err := buildEntry(spec)
		if err != nil {
			return nil, err
		}
		if _, dup := idx.entries[entry.id]; dup {
			return nil, fmt.Errorf("%w: duplicate aspect %q", ErrInvalidCatalog, entry.id)
		}
		idx.entries[entry.id] = entry
		idx.order = append(idx.order, entry.id)
	}

	return idx, nil
}

func buildEntry(spec aspectSpec) (*aspectEntry, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("%w: aspect without id", ErrInvalidCatalog)
	}
	if spec.DefaultPrompt == "" {
		return nil, fmt.Errorf("%w: aspect %q has no default prompt", ErrInvalidCatalog, spec.ID)
	}

	entry := &aspectEntry{
		id:            models.Aspect(spec.ID),
		name:          spec.Name,
		defaultPrompt: spec.DefaultPrompt,
	}

	seen := make(map[string]bool, len(spec.Subtopics))
	for _, sub := range spec.Subtopics {
		if sub.Name == "" {
			return nil, fmt.Errorf("%w: aspect %q has an unnamed sub-topic", ErrInvalidCatalog, spec.ID)
		}
		if seen[sub.Name] {
			return nil, fmt.Errorf("%w: aspect %q repeats sub-topic %q", ErrInvalidCatalog, spec.ID, sub.Name)
		}
		seen[sub.Name] = true

		prompt := sub.Prompt
		if prompt == "" {
			prompt = spec.DefaultPrompt
		}
		keywords := buildKeywords(sub.Keywords)
		entry.subtopics = append(entry.subtopics, subtopic{
			name:     sub.Name,
			prompt:   prompt,
			keywords: keywords,
			anchors:  anchorKeywords(keywords),
		})
	}

	return entry, nil
}
