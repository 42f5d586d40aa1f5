package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"home_dispatch/internal/models"
)

// document is the wrapped form of the catalog file. A bare device list is
// accepted as well.
type document struct {
	Devices []models.Device `json:"devices" yaml:"devices"`
}

// decodeDocument parses YAML or JSON (JSON is valid YAML) into devices.
func decodeDocument(data []byte) ([]models.Device, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("parse: no document")
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var devices []models.Device
		if err := node.Decode(&devices); err != nil {
			return nil, fmt.Errorf("decode devices: %w", err)
		}
		return devices, nil
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode devices: %w", err)
		}
		return doc.Devices, nil
	default:
		return nil, fmt.Errorf("parse: expected a device list or a devices mapping")
	}
}

// encodeDocument serializes devices in the format implied by the file extension.
func encodeDocument(path string, devices []models.Device) ([]byte, error) {
	if devices == nil {
		devices = []models.Device{}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		out, err := json.MarshalIndent(document{Devices: devices}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(document{Devices: devices}); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// writeFileAtomic writes through a temp file in the same directory and renames it.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
