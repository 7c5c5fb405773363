// Package agentstore keeps agent profiles on disk, one directory per agent.
//
// Each directory holds agent.json (the manifest) and soul.md (the free-text
// body). Directories that fail to parse or validate are skipped on list and
// reported as absent on get.
package agentstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/zulandar/cockpit/internal/dates"
)

const (
	manifestFile = "agent.json"
	soulFile     = "soul.md"
)

// ErrInvalidID is returned when an id normalizes to nothing.
var ErrInvalidID = errors.New("agentstore: invalid agent id")

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// NormalizeID lowercases id, replaces runs of disallowed characters with a
// dash, collapses dashes and trims separators from both ends.
func NormalizeID(id string) string {
	s := strings.ToLower(strings.TrimSpace(id))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// manifest is the on-disk shape of agent.json.
type manifest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Description  string   `json:"description"`
	RoutingHints []string `json:"routingHints"`
	AllowedTools []string `json:"allowedTools"`
	Enabled      *bool    `json:"enabled"`
}

// Store reads and writes profiles under a root directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir. The directory is created on first write
// or list.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("agentstore: create %s: %w", s.dir, err)
	}
	return nil
}

// List returns every valid profile ordered by directory name.
func (s *Store) List() ([]Profile, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("agentstore: list %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		if p := readProfile(filepath.Join(s.dir, name)); p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

// Get returns the profile for id, or nil when it is missing or invalid.
func (s *Store) Get(id string) (*Profile, error) {
	slug := NormalizeID(id)
	if slug == "" {
		return nil, ErrInvalidID
	}
	return readProfile(filepath.Join(s.dir, slug)), nil
}

// Save writes p under its normalized id and returns the stored form as read
// back from disk.
func (s *Store) Save(p Profile) (*Profile, error) {
	slug := NormalizeID(p.ID)
	if slug == "" {
		return nil, ErrInvalidID
	}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("agentstore: create %s: %w", dir, err)
	}

	enabled := p.Enabled
	m := manifest{
		ID:           slug,
		Name:         p.Name,
		Kind:         p.Kind,
		Description:  p.Description,
		RoutingHints: nonNil(p.RoutingHints),
		AllowedTools: nonNil(p.AllowedTools),
		Enabled:      &enabled,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("agentstore: encode %s: %w", slug, err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("agentstore: write manifest %s: %w", slug, err)
	}
	if err := os.WriteFile(filepath.Join(dir, soulFile), []byte(p.Soul), 0o644); err != nil {
		return nil, fmt.Errorf("agentstore: write soul %s: %w", slug, err)
	}

	saved := readProfile(dir)
	if saved == nil {
		return nil, fmt.Errorf("%w: %s did not read back", ErrInvalidProfile, slug)
	}
	return saved, nil
}

// Delete removes the agent's directory. Deleting a missing agent succeeds.
func (s *Store) Delete(id string) error {
	slug := NormalizeID(id)
	if slug == "" {
		return ErrInvalidID
	}
	if err := os.RemoveAll(filepath.Join(s.dir, slug)); err != nil {
		return fmt.Errorf("agentstore: delete %s: %w", slug, err)
	}
	return nil
}

// readProfile parses and validates one agent directory. Any failure yields nil.
func readProfile(dir string) *Profile {
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil
	}
	soulPath := filepath.Join(dir, soulFile)
	soul, err := os.ReadFile(soulPath)
	if err != nil {
		return nil
	}
	info, err := os.Stat(soulPath)
	if err != nil {
		return nil
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	base := filepath.Base(dir)
	p := Profile{
		ID:           m.ID,
		Name:         m.Name,
		Kind:         m.Kind,
		Description:  m.Description,
		RoutingHints: nonNil(m.RoutingHints),
		AllowedTools: nonNil(m.AllowedTools),
		Enabled:      m.Enabled == nil || *m.Enabled,
		Soul:         string(soul),
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = base
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = base
	}
	if err := p.Validate(); err != nil {
		return nil
	}
	p.UpdatedAt = dates.Stamp(info.ModTime())
	return &p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
