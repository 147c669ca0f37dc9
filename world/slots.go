package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// slotExt is the file suffix for save slots.
const slotExt = ".json"

// SaveManager stores save records as named slot files in one directory.
type SaveManager struct {
	dir string
	log *slog.Logger
}

// SlotInfo summarizes one stored slot without loading the full record.
type SlotInfo struct {
	Name     string
	SavedAt  time.Time
	Tick     int64
	Entities int
}

// NewSaveManager opens (creating if needed) a slot directory.
func NewSaveManager(dir string, log *slog.Logger) (*SaveManager, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save directory: %w", err)
	}
	return &SaveManager{dir: dir, log: log}, nil
}

// validateName rejects slot names that would escape the directory.
func validateName(name string) error {
	if name == "" || name != filepath.Base(name) ||
		strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid slot name %q", name)
	}
	return nil
}

func (m *SaveManager) path(name string) string {
	return filepath.Join(m.dir, name+slotExt)
}

// Save serializes the world into the named slot. An existing slot is
// replaced atomically.
func (m *SaveManager) Save(name string, w *World) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := w.Serialize()
	if err != nil {
		return err
	}

	tmp := m.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing slot %q: %w", name, err)
	}
	if err := os.Rename(tmp, m.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing slot %q: %w", name, err)
	}

	m.log.Info("saved slot", "name", name, "tick", w.TickCount(), "bytes", len(data))
	return nil
}

// Load restores the named slot into the world. A corrupt slot leaves the
// world untouched.
func (m *SaveManager) Load(name string, w *World) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := os.ReadFile(m.path(name))
	if err != nil {
		return fmt.Errorf("reading slot %q: %w", name, err)
	}
	if err := w.Deserialize(data); err != nil {
		return fmt.Errorf("slot %q: %w", name, err)
	}
	m.log.Info("loaded slot", "name", name, "tick", w.TickCount())
	return nil
}

// Delete removes the named slot.
func (m *SaveManager) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(m.path(name)); err != nil {
		return fmt.Errorf("deleting slot %q: %w", name, err)
	}
	return nil
}

// Rename changes a slot's name. Fails if the target already exists.
func (m *SaveManager) Rename(oldName, newName string) error {
	if err := validateName(oldName); err != nil {
		return err
	}
	if err := validateName(newName); err != nil {
		return err
	}
	if _, err := os.Stat(m.path(newName)); err == nil {
		return fmt.Errorf("slot %q already exists: %w", newName, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Rename(m.path(oldName), m.path(newName)); err != nil {
		return fmt.Errorf("renaming slot %q: %w", oldName, err)
	}
	return nil
}

// List returns the stored slots, newest first. Unreadable files are
// skipped with a warning rather than failing the whole listing.
func (m *SaveManager) List() ([]SlotInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("listing save directory: %w", err)
	}

	var slots []SlotInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), slotExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), slotExt)

		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			m.log.Warn("skipping unreadable slot", "name", name, "error", err)
			continue
		}
		var rec SaveRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			m.log.Warn("skipping malformed slot", "name", name, "error", err)
			continue
		}
		slots = append(slots, SlotInfo{
			Name:     name,
			SavedAt:  rec.SavedAt,
			Tick:     rec.Tick,
			Entities: len(rec.Entities),
		})
	}

	slices.SortFunc(slots, func(a, b SlotInfo) int {
		return b.SavedAt.Compare(a.SavedAt)
	})
	return slots, nil
}
