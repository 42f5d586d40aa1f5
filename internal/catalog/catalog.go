// Package catalog owns the device catalog: the immutable snapshot that
// resolution reads, the store that swaps snapshots on reload or edit, and the
// file watcher that triggers reloads.
package catalog

import (
	"fmt"
	"sort"

	"home_dispatch/internal/models"
)

// Catalog is an immutable, validated snapshot of devices in declaration order.
type Catalog struct {
	devices []models.Device
	index   map[string]int
}

// LabelKind tells which label form a candidate matched.
type LabelKind int

const (
	LabelAction       LabelKind = iota // action name alone
	LabelDeviceAction                  // device name combined with action name
	LabelAppAction                     // device app combined with action name
)

func (k LabelKind) String() string {
	switch k {
	case LabelAction:
		return "action_name"
	case LabelDeviceAction:
		return "device_action_name"
	case LabelAppAction:
		return "app_action_name"
	}
	return fmt.Sprintf("label(%d)", int(k))
}

// Candidate is a (device, action) pair whose label matched some text.
type Candidate struct {
	Device models.Device
	Action models.Action
	Kind   LabelKind
}

func newCatalog(devices []models.Device) *Catalog {
	c := &Catalog{
		devices: make([]models.Device, 0, len(devices)),
		index:   make(map[string]int, len(devices)),
	}
	for _, d := range devices {
		c.index[d.ID] = len(c.devices)
		c.devices = append(c.devices, d.Clone())
	}
	return c
}

// New validates devices and builds a snapshot from them. Icons are not
// checked; use a Store for documents on disk.
func New(devices []models.Device) (*Catalog, error) {
	if problems := validate(devices, ""); len(problems) > 0 {
		return nil, &LoadError{Path: "<memory>", Problems: problems}
	}
	return newCatalog(devices), nil
}

// Empty returns a catalog with no devices.
func Empty() *Catalog { return newCatalog(nil) }

// Len is the number of devices.
func (c *Catalog) Len() int { return len(c.devices) }

// ListDevices returns copies of all devices in declaration order.
func (c *Catalog) ListDevices() []models.Device {
	out := make([]models.Device, len(c.devices))
	for i, d := range c.devices {
		out[i] = d.Clone()
	}
	return out
}

// Device returns the device with the given id.
func (c *Catalog) Device(id string) (models.Device, error) {
	i, ok := c.index[id]
	if !ok {
		return models.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return c.devices[i].Clone(), nil
}

// FindAction looks up a (device, action) pair.
func (c *Catalog) FindAction(deviceID, actionID string) (models.Device, models.Action, error) {
	d, err := c.Device(deviceID)
	if err != nil {
		return models.Device{}, models.Action{}, err
	}
	a, ok := d.Action(actionID)
	if !ok {
		return models.Device{}, models.Action{}, fmt.Errorf("%w: %s/%s", ErrActionNotFound, deviceID, actionID)
	}
	return d, a, nil
}

// FindByLabel returns every pair whose label equals text after normalization.
// Action-name matches come first, then device-name and app combinations; within
// a kind the order is declaration order.
func (c *Catalog) FindByLabel(text string) []Candidate {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	compact := Compact(text)

	var out []Candidate
	for _, d := range c.devices {
		for _, a := range d.Actions {
			switch {
			case Normalize(a.Name) == n:
				out = append(out, Candidate{Device: d, Action: a, Kind: LabelAction})
			case combines(d.Name, a.Name, compact):
				out = append(out, Candidate{Device: d, Action: a, Kind: LabelDeviceAction})
			case combines(d.App, a.Name, compact):
				out = append(out, Candidate{Device: d, Action: a, Kind: LabelAppAction})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// combines reports whether compact equals prefix+name or name+prefix.
func combines(prefix, name, compact string) bool {
	p, a := Compact(prefix), Compact(name)
	if p == "" || a == "" {
		return false
	}
	return compact == p+a || compact == a+p
}
