package projects

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when a project id has no config on disk.
var ErrNotFound = errors.New("project not found")

// Step is one instruction in a project's assembly sequence.
type Step struct {
	Label     string `json:"label"`
	Component string `json:"component,omitempty"`
	Image     string `json:"img,omitempty"`
}

// Project is a build recipe: an ordered sequence of steps under a display
// name. The id doubles as the directory name.
type Project struct {
	ID       string `json:"-"`
	Name     string `json:"name"`
	Sequence []Step `json:"sequence"`
}

// Store is a directory-backed project catalog. Each project occupies
// <dir>/<id>/ with a config.json and an images/ subfolder.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create projects dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the catalog root.
func (s *Store) Dir() string {
	return s.dir
}

// List returns every project sorted by id, case-insensitively.
func (s *Store) List() ([]Project, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	var items []Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		proj, err := s.Load(entry.Name())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, *proj)
	}

	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.Slice(items, func(i, j int) bool {
		return coll.CompareString(items[i].ID, items[j].ID) < 0
	})
	return items, nil
}

// Load reads one project's config. ErrNotFound when the id has no config.
func (s *Store) Load(id string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read project %q: %w", id, err)
	}

	proj := Project{ID: id}
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project %q: %w", id, err)
	}
	return &proj, nil
}

// Sequence returns the project's step sequence, or an empty slice when the
// project is unknown. Runs must stay servable even if their recipe was
// removed after they were queued.
func (s *Store) Sequence(id string) []Step {
	proj, err := s.Load(id)
	if err != nil {
		return nil
	}
	return proj.Sequence
}

// Save writes the project's config and ensures its images folder exists.
func (s *Store) Save(proj *Project) error {
	if proj.ID == "" {
		return errors.New("project id is required")
	}

	root := filepath.Join(s.dir, proj.ID)
	if err := os.MkdirAll(filepath.Join(root, "images"), 0o755); err != nil {
		return fmt.Errorf("create project dirs: %w", err)
	}

	data, err := json.MarshalIndent(proj, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project %q: %w", proj.ID, err)
	}
	if err := os.WriteFile(filepath.Join(root, "config.json"), data, 0o644); err != nil {
		return fmt.Errorf("write project %q: %w", proj.ID, err)
	}
	return nil
}

// Slug converts a display name into a directory-friendly id. Empty results
// fall back to a short random id.
func Slug(name string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
	return slug
}
