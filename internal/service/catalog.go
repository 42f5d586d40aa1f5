package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/models"
)

// CatalogService exposes the device catalog to the API.
type CatalogService struct {
	store *catalog.Store
	log   *logger.Logger
}

func NewCatalogService(store *catalog.Store, log *logger.Logger) *CatalogService {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogService{store: store, log: log}
}

func (s *CatalogService) ListDevices(_ context.Context) []models.Device {
	return s.store.Current().ListDevices()
}

func (s *CatalogService) GetDevice(_ context.Context, id string) (models.Device, error) {
	d, err := s.store.Current().Device(id)
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return d, nil
}

func (s *CatalogService) CreateDevice(_ context.Context, d models.Device) (models.Device, error) {
	d = trimDevice(d)
	if d.ID == "" {
		return models.Device{}, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}
	out, err := s.store.CreateDevice(d)
	if err != nil {
		return models.Device{}, err
	}
	s.log.Infow("device_created", "device_id", out.ID)
	return out, nil
}

// UpdateDevice replaces a device. An empty id in the body keeps the path id.
func (s *CatalogService) UpdateDevice(_ context.Context, id string, d models.Device) (models.Device, error) {
	d = trimDevice(d)
	if d.ID == "" {
		d.ID = id
	}
	out, err := s.store.UpdateDevice(id, d)
	if err != nil {
		return models.Device{}, notFound(err)
	}
	s.log.Infow("device_updated", "device_id", id)
	return out, nil
}

func (s *CatalogService) DeleteDevice(_ context.Context, id string) error {
	if err := s.store.DeleteDevice(id); err != nil {
		return notFound(err)
	}
	s.log.Infow("device_deleted", "device_id", id)
	return nil
}

// Reload re-reads the catalog document and returns the active device count.
// On failure the previous catalog stays active.
func (s *CatalogService) Reload(_ context.Context) (int, error) {
	cat, err := s.store.Reload()
	if err != nil {
		return cat.Len(), err
	}
	return cat.Len(), nil
}

func (s *CatalogService) ListIcons(_ context.Context) ([]string, error) {
	if s.store.IconsDir() == "" {
		return []string{}, nil
	}
	names, err := catalog.ListIcons(s.store.IconsDir())
	if err != nil {
		return nil, fmt.Errorf("list icons: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *CatalogService) IconPath(name string) (string, error) {
	if s.store.IconsDir() == "" {
		return "", fmt.Errorf("%w: icons directory not configured", ErrNotFound)
	}
	p, err := catalog.IconPath(s.store.IconsDir(), name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return p, nil
}

func notFound(err error) error {
	if errors.Is(err, catalog.ErrDeviceNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func trimDevice(d models.Device) models.Device {
	d = d.Clone()
	d.ID = strings.TrimSpace(d.ID)
	d.Name = strings.TrimSpace(d.Name)
	d.App = strings.TrimSpace(d.App)
	d.Icon = strings.TrimSpace(d.Icon)
	for i := range d.Actions {
		d.Actions[i].ID = strings.TrimSpace(d.Actions[i].ID)
		d.Actions[i].Name = strings.TrimSpace(d.Actions[i].Name)
	}
	return d
}
