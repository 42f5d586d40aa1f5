package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/matcher"
	"home_dispatch/internal/models"
)

const swapYAML = `
- id: living_room_ac
  name: 客厅空调
  app: 美的美居
  actions:
    - id: turn_on
      name: 打开空调
      command: 打开{app}应用，打开{name}
- id: bedroom_light
  name: 卧室灯
  app: 米家
  actions:
    - id: turn_on
      name: 开灯
      command: 打开{app}，打开{name}
`

var fan = models.Device{ID: "fan", Name: "风扇", App: "米家", Actions: []models.Action{
	{ID: "on", Name: "打开风扇", Command: "打开{app}，打开{name}"},
}}

// checkSnapshot fails when cat is neither the base catalog nor base plus fan.
func checkSnapshot(t *testing.T, cat *catalog.Catalog) {
	devices := cat.ListDevices()
	if !assert.Equal(t, cat.Len(), len(devices)) {
		return
	}
	_, _, fanErr := cat.FindAction("fan", "on")
	labels := cat.FindByLabel("打开风扇")
	m, matched := matcher.RuleMatcher{}.Match(cat, "打开风扇")

	switch cat.Len() {
	case 2:
		assert.True(t, errors.Is(fanErr, catalog.ErrDeviceNotFound), "base snapshot resolved fan: %v", fanErr)
		assert.Empty(t, labels)
		assert.False(t, matched)
	case 3:
		assert.NoError(t, fanErr)
		assert.Len(t, labels, 1)
		assert.True(t, matched)
		assert.Equal(t, "fan", m.Device.ID)
		assert.Equal(t, "fan", devices[2].ID)
	default:
		t.Errorf("snapshot has %d devices", cat.Len())
		return
	}
	_, _, err := cat.FindAction("living_room_ac", "turn_on")
	assert.NoError(t, err)
	_, _, err = cat.FindAction("bedroom_light", "turn_on")
	assert.NoError(t, err)
}

func TestStoreReadersNeverSeePartialCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yml")
	require.NoError(t, os.WriteFile(path, []byte(swapYAML), 0o644))
	s := catalog.NewStore(path, "", nil)
	require.NoError(t, s.Load())

	const (
		rounds  = 50
		readers = 4
	)
	done := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					checkSnapshot(t, s.Current())
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := s.Reload()
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < rounds; i++ {
		_, err := s.CreateDevice(fan)
		if !assert.NoError(t, err) {
			break
		}
		if !assert.NoError(t, s.DeleteDevice("fan")) {
			break
		}
	}
	close(done)
	wg.Wait()

	checkSnapshot(t, s.Current())
	assert.Equal(t, 2, s.Current().Len())
}
