package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"gridpreview/pkg/grid"
	"gridpreview/pkg/logger"
)

const (
	// DefaultName is used when a layout is saved without a name
	DefaultName = "default"

	fileSuffix     = ".layout.json"
	currentVersion = 1
)

// ErrInvalidName is returned for layout names that are not plain file names
var ErrInvalidName = errors.New("invalid layout name")

// Layout is a saved grid
type Layout struct {
	Name      string      `json:"name"`
	Username  string      `json:"username,omitempty"`
	Capacity  int         `json:"capacity"`
	Cells     []grid.Cell `json:"cells"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int         `json:"version"`
}

// Manager reads and writes layouts in one directory
type Manager struct {
	dir    string
	logger logger.Logger
}

// NewManager creates the layout directory. An empty dir selects the
// per-user data directory.
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "layouts")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create layout directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Manager{dir: dir, logger: log}, nil
}

// Save writes the cells of state under name, replacing any earlier layout
// with that name atomically
func (m *Manager) Save(name, username string, state grid.State) (*Layout, error) {
	path, err := m.path(name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	layout := &Layout{
		Name:      nameOrDefault(name),
		Username:  username,
		Capacity:  state.Capacity,
		Cells:     append([]grid.Cell{}, state.Cells...),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   currentVersion,
	}
	if prev, err := m.Load(name); err == nil && prev != nil {
		layout.CreatedAt = prev.CreatedAt
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary layout file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(layout); err != nil {
		file.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to encode layout: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to sync layout file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close layout file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to replace layout file: %w", err)
	}

	m.logger.DebugWithFields("Layout saved", map[string]interface{}{
		"name":  layout.Name,
		"cells": len(layout.Cells),
		"path":  path,
	})
	return layout, nil
}

// Load reads the layout saved under name. A missing layout returns nil, nil.
func (m *Manager) Load(name string) (*Layout, error) {
	path, err := m.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open layout file: %w", err)
	}
	defer file.Close()

	var layout Layout
	if err := json.NewDecoder(file).Decode(&layout); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	if layout.Version > currentVersion {
		return nil, fmt.Errorf("layout version %d is newer than supported version %d", layout.Version, currentVersion)
	}

	m.logger.DebugWithFields("Layout loaded", map[string]interface{}{
		"name":       layout.Name,
		"cells":      len(layout.Cells),
		"updated_at": layout.UpdatedAt,
	})
	return &layout, nil
}

// Restore loads name into engine. It reports false when no such layout exists.
func (m *Manager) Restore(name string, engine *grid.Engine) (bool, error) {
	layout, err := m.Load(name)
	if err != nil || layout == nil {
		return false, err
	}
	engine.Restore(layout.Cells)
	return true, nil
}

// Delete removes the layout saved under name
func (m *Manager) Delete(name string) error {
	path, err := m.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	return nil
}

// Exists reports whether a layout is saved under name
func (m *Manager) Exists(name string) bool {
	path, err := m.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// List returns the saved layout names, sorted
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fileSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// UploadRefs returns the image references of every uploaded cell in every
// saved layout. Unreadable layouts are skipped with a warning.
func (m *Manager) UploadRefs() ([]string, error) {
	names, err := m.List()
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, name := range names {
		layout, err := m.Load(name)
		if err != nil {
			m.logger.WithError(err).WarnWithFields("Skipping unreadable layout", map[string]interface{}{
				"name": name,
			})
			continue
		}
		if layout == nil {
			continue
		}
		for _, c := range layout.Cells {
			if c.Origin == grid.Uploaded {
				refs = append(refs, c.ImageURL)
			}
		}
	}
	return refs, nil
}

// Dir returns the layout directory
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) path(name string) (string, error) {
	name = nameOrDefault(name)
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(m.dir, name+fileSuffix), nil
}

func nameOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return name
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "gridpreview")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "gridpreview")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "gridpreview")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "gridpreview")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return dataDir, nil
}
