package components

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when a component id has no config on disk.
var ErrNotFound = errors.New("component not found")

// Component describes one reusable part from the shared library. Line is the
// output-line offset lit while the part is being placed; nil means the
// component has no indicator.
type Component struct {
	ID    string `json:"-"`
	Name  string `json:"name"`
	Line  *int   `json:"line,omitempty"`
	Image string `json:"image,omitempty"`
}

// Library is a directory-backed component store. Each component occupies
// <dir>/<id>/ with a config.json and an images/ subfolder.
type Library struct {
	dir string
}

// NewLibrary returns a Library rooted at dir, creating it if needed.
func NewLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create components dir: %w", err)
	}
	return &Library{dir: dir}, nil
}

// Dir returns the library root.
func (l *Library) Dir() string {
	return l.dir
}

// List returns every component sorted by id, case-insensitively.
func (l *Library) List() ([]Component, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read components dir: %w", err)
	}

	var items []Component
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		comp, err := l.Load(entry.Name())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, *comp)
	}

	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.Slice(items, func(i, j int) bool {
		return coll.CompareString(items[i].ID, items[j].ID) < 0
	})
	return items, nil
}

// Load reads one component's config. ErrNotFound when the id has no config.
func (l *Library) Load(id string) (*Component, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, id, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("component %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read component %q: %w", id, err)
	}

	comp := Component{ID: id}
	if err := json.Unmarshal(data, &comp); err != nil {
		return nil, fmt.Errorf("parse component %q: %w", id, err)
	}
	return &comp, nil
}

// Save writes the component's config and ensures its images folder exists.
// A mapped line must be one of the permitted offsets.
func (l *Library) Save(comp *Component) error {
	if comp.ID == "" {
		return errors.New("component id is required")
	}
	if comp.Line != nil && !LineAllowed(*comp.Line) {
		return fmt.Errorf("line %d not permitted, choose one of %v", *comp.Line, AllowedLines)
	}

	root := filepath.Join(l.dir, comp.ID)
	if err := os.MkdirAll(filepath.Join(root, "images"), 0o755); err != nil {
		return fmt.Errorf("create component dirs: %w", err)
	}

	data, err := json.MarshalIndent(comp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode component %q: %w", comp.ID, err)
	}
	if err := os.WriteFile(filepath.Join(root, "config.json"), data, 0o644); err != nil {
		return fmt.Errorf("write component %q: %w", comp.ID, err)
	}
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a display name into a filesystem-friendly id. Empty results
// fall back to a short random id.
func Slug(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
	return slug
}
