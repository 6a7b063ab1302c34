// Package config persists camcorder settings as grouped TOML key/value
// tables and loads CLI option defaults with file and environment
// precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Store is the persisted settings file. Every Set flushes the whole file,
// so a crash never loses more than the write in flight. Values are kept as
// TOML scalars; accessors coerce them on read.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	groups map[string]map[string]any
}

// Open reads the settings file at path, creating an empty store when the
// file does not exist yet. A file that exists but cannot be parsed is an
// error; silently discarding settings would lose user configuration.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
		groups: make(map[string]map[string]any),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Reload replaces the in-memory state with the file contents. A missing
// file resets the store to empty.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.groups = make(map[string]map[string]any)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}

	groups := make(map[string]map[string]any, len(raw))
	for name, v := range raw {
		if table, ok := v.(map[string]any); ok {
			groups[name] = table
		}
	}
	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()
	return nil
}

// Group returns an accessor for one settings table. The table is created
// lazily on the first Set.
func (s *Store) Group(name string) *Group {
	return &Group{store: s, name: name}
}

// GroupNames returns the existing table names, sorted.
func (s *Store) GroupNames() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// flush writes the whole store to disk through a temp file and rename, so
// readers never observe a partially written settings file.
func (s *Store) flush() {
	s.mu.RLock()
	data, err := toml.Marshal(s.groups)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn("Failed to encode settings", "error", err)
		return
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Warn("Failed to create settings directory", "path", dir, "error", err)
		return
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		s.logger.Warn("Failed to create settings temp file", "error", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.logger.Warn("Failed to write settings", "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		s.logger.Warn("Failed to close settings temp file", "error", err)
		return
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		s.logger.Warn("Failed to replace settings file", "error", err)
	}
}

// Group reads and writes keys inside one settings table.
type Group struct {
	store *Store
	name  string
}

func (g *Group) value(key string) (any, bool) {
	g.store.mu.RLock()
	defer g.store.mu.RUnlock()
	table, ok := g.store.groups[g.name]
	if !ok {
		return nil, false
	}
	v, ok := table[key]
	return v, ok
}

// Value returns the stored TOML scalar uncoerced.
func (g *Group) Value(key string) (any, bool) {
	return g.value(key)
}

// Contains reports whether the key has a stored value.
func (g *Group) Contains(key string) bool {
	_, ok := g.value(key)
	return ok
}

// String returns the stored value coerced to a string, or def.
func (g *Group) String(key, def string) string {
	v, ok := g.value(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return def
	}
}

// Int returns the stored value coerced to an int, or def.
func (g *Group) Int(key string, def int) int {
	v, ok := g.value(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the stored value coerced to a bool, or def.
func (g *Group) Bool(key string, def bool) bool {
	v, ok := g.value(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	case int64:
		return t != 0
	}
	return def
}

// Set stores a value and flushes the file.
func (g *Group) Set(key string, value any) {
	g.store.mu.Lock()
	table, ok := g.store.groups[g.name]
	if !ok {
		table = make(map[string]any)
		g.store.groups[g.name] = table
	}
	table[key] = value
	g.store.mu.Unlock()
	g.store.flush()
}

// NormalizeID maps an identifier onto the characters valid in a TOML bare
// key, replacing everything outside [0-9A-Za-z_] with an underscore.
// Composite plugin keys stay distinguishable enough for settings tables.
func NormalizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
