package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"home_dispatch/internal/models"
)

func TestStoreLoad(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	require.Equal(t, 0, s.Current().Len())

	require.NoError(t, s.Load())
	assert.Equal(t, 2, s.Current().Len())
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.yml"), "", nil)
	err := s.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogLoad))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestStoreRejectsMissingIcon(t *testing.T) {
	content := strings.Replace(sampleYAML, "ac.png", "fan.png", 1)
	path, icons := writeCatalog(t, "devices.yml", content)
	err := NewStore(path, icons, nil).Load()

	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Len(t, le.Problems, 1)
	assert.Contains(t, le.Problems[0], "fan.png")
}

func TestStoreRejectsMissingApp(t *testing.T) {
	content := strings.Replace(sampleYAML, "app: 美的美居", "app: \"\"", 1)
	path, icons := writeCatalog(t, "devices.yml", content)
	err := NewStore(path, icons, nil).Load()
	assert.True(t, errors.Is(err, ErrCatalogLoad))
}

func TestStoreReloadKeepsLastGood(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	require.NoError(t, s.Load())
	before := s.Current()

	require.NoError(t, os.WriteFile(path, []byte("devices: [: broken"), 0o644))
	cat, err := s.Reload()
	require.Error(t, err)
	assert.Same(t, before, cat)
	assert.Same(t, before, s.Current())
}

func TestStoreIdenticalReloadKeepsLookups(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	require.NoError(t, s.Load())

	type pair struct{ d, a string }
	pairs := []pair{{"living_room_ac", "turn_on"}, {"living_room_ac", "turn_off"}, {"bedroom_light", "turn_on"}}
	before := map[pair]models.Action{}
	for _, p := range pairs {
		_, a, err := s.Current().FindAction(p.d, p.a)
		require.NoError(t, err)
		before[p] = a
	}

	_, err := s.Reload()
	require.NoError(t, err)
	for _, p := range pairs {
		_, a, err := s.Current().FindAction(p.d, p.a)
		require.NoError(t, err)
		assert.Equal(t, before[p], a)
	}
}

func TestStoreDeviceCRUD(t *testing.T) {
	for _, name := range []string{"devices.yml", "devices.json"} {
		t.Run(name, func(t *testing.T) {
			path, icons := writeCatalog(t, "devices.yml", sampleYAML)
			if name == "devices.json" {
				jsonPath := filepath.Join(filepath.Dir(path), name)
				data, err := encodeDocument(jsonPath, mustDecode(t, sampleYAML))
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(jsonPath, data, 0o644))
				path = jsonPath
			}
			s := NewStore(path, icons, nil)
			require.NoError(t, s.Load())

			fan := models.Device{ID: "fan", Name: "风扇", App: "米家", Actions: []models.Action{
				{ID: "on", Name: "打开风扇", Command: "打开{app}，打开{name}"},
			}}
			_, err := s.CreateDevice(fan)
			require.NoError(t, err)
			_, err = s.CreateDevice(fan)
			assert.True(t, errors.Is(err, ErrDeviceExists))

			fan.Name = "落地扇"
			_, err = s.UpdateDevice("fan", fan)
			require.NoError(t, err)
			_, err = s.UpdateDevice("ghost", fan)
			assert.True(t, errors.Is(err, ErrDeviceNotFound))

			// the written document round-trips through a fresh store
			fresh := NewStore(path, icons, nil)
			require.NoError(t, fresh.Load())
			d, err := fresh.Current().Device("fan")
			require.NoError(t, err)
			assert.Equal(t, "落地扇", d.Name)
			assert.Equal(t, 3, fresh.Current().Len())

			require.NoError(t, s.DeleteDevice("fan"))
			assert.True(t, errors.Is(s.DeleteDevice("fan"), ErrDeviceNotFound))
			assert.Equal(t, 2, s.Current().Len())
		})
	}
}

func TestStoreEditRejectsInvalidDevice(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	require.NoError(t, s.Load())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = s.CreateDevice(models.Device{ID: "bad", Name: "坏", Actions: []models.Action{
		{ID: "on", Name: "开", Command: "打开{app}"},
	}})
	assert.True(t, errors.Is(err, ErrCatalogLoad))
	assert.Equal(t, 2, s.Current().Len())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStoreCheckDoesNotActivate(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	cat, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, 0, s.Current().Len())
}

func TestIcons(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.svg", "a.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	names, err := ListIcons(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.svg"}, names)

	_, err = IconPath(dir, "../secret.png")
	assert.True(t, errors.Is(err, ErrInvalidIconName))
	p, err := IconPath(dir, "a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.png"), p)
}

func mustDecode(t *testing.T, s string) []models.Device {
	t.Helper()
	d, err := decodeDocument([]byte(s))
	require.NoError(t, err)
	return d
}
