package catalog

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"home_dispatch/internal/logger"
	"home_dispatch/internal/models"
)

// Store owns the active catalog. Readers take a snapshot with Current and
// never block; reloads and edits are serialized and swap the snapshot only
// after the new document validated.
type Store struct {
	path     string
	iconsDir string
	log      *logger.Logger

	mu  sync.Mutex // serializes writers
	cur atomic.Pointer[Catalog]
}

// NewStore creates a store for the document at path. Nothing is read until Load.
func NewStore(path, iconsDir string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{path: path, iconsDir: iconsDir, log: log}
	s.cur.Store(Empty())
	return s
}

// Path returns the catalog document path.
func (s *Store) Path() string { return s.path }

// IconsDir returns the configured icons directory.
func (s *Store) IconsDir() string { return s.iconsDir }

// Current returns the active snapshot. It is never nil.
func (s *Store) Current() *Catalog { return s.cur.Load() }

// Load reads the document and makes it active. It is Reload under a name that
// reads better at startup.
func (s *Store) Load() error {
	_, err := s.Reload()
	return err
}

// Reload re-reads the document. On failure the previous catalog stays active.
func (s *Store) Reload() (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.read()
	if err != nil {
		s.log.Errorw("catalog_reload_failed", "path", s.path, "error", err)
		return s.cur.Load(), err
	}
	s.cur.Store(cat)
	s.log.Infow("catalog_loaded", "path", s.path, "devices", cat.Len())
	return cat, nil
}

// Check parses and validates the document without activating it.
func (s *Store) Check() (*Catalog, error) {
	return s.read()
}

func (s *Store) read() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	devices, err := decodeDocument(data)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	if problems := validate(devices, s.iconsDir); len(problems) > 0 {
		return nil, &LoadError{Path: s.path, Problems: problems}
	}
	return newCatalog(devices), nil
}

// CreateDevice appends a device and persists the document.
func (s *Store) CreateDevice(d models.Device) (models.Device, error) {
	err := s.edit(func(devices []models.Device) ([]models.Device, error) {
		for _, existing := range devices {
			if existing.ID == d.ID {
				return nil, fmt.Errorf("%w: %s", ErrDeviceExists, d.ID)
			}
		}
		return append(devices, d), nil
	})
	if err != nil {
		return models.Device{}, err
	}
	return d.Clone(), nil
}

// UpdateDevice replaces the device with the given id, keeping its position.
// The replacement may carry a new id as long as it stays unique.
func (s *Store) UpdateDevice(id string, d models.Device) (models.Device, error) {
	err := s.edit(func(devices []models.Device) ([]models.Device, error) {
		for i := range devices {
			if devices[i].ID == id {
				devices[i] = d
				return devices, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	})
	if err != nil {
		return models.Device{}, err
	}
	return d.Clone(), nil
}

// DeleteDevice removes a device and persists the document.
func (s *Store) DeleteDevice(id string) error {
	return s.edit(func(devices []models.Device) ([]models.Device, error) {
		for i := range devices {
			if devices[i].ID == id {
				return append(devices[:i], devices[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	})
}

// edit applies fn to a copy of the active device list, validates the result,
// writes it to disk and only then swaps it in.
func (s *Store) edit(fn func([]models.Device) ([]models.Device, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cur.Load().ListDevices())
	if err != nil {
		return err
	}
	if problems := validate(next, s.iconsDir); len(problems) > 0 {
		return &LoadError{Path: s.path, Problems: problems}
	}
	data, err := encodeDocument(s.path, next)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	cat := newCatalog(next)
	s.cur.Store(cat)
	s.log.Infow("catalog_updated", "path", s.path, "devices", cat.Len())
	return nil
}
