package catalog

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	require.NoError(t, s.Load())

	reloaded := make(chan struct{}, 1)
	w := NewWatcher(s, 20*time.Millisecond, nil)
	w.OnReload = func(*Catalog, error) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	extra := sampleYAML + `
  - id: fan
    name: 风扇
    app: 米家
    actions:
      - id: on
        name: 打开风扇
        command: 打开{app}
`
	require.NoError(t, os.WriteFile(path, []byte(extra), 0o644))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	require.Eventually(t, func() bool { return s.Current().Len() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	path, icons := writeCatalog(t, "devices.yml", sampleYAML)
	s := NewStore(path, icons, nil)
	require.NoError(t, s.Load())

	reloaded := make(chan struct{}, 1)
	w := NewWatcher(s, 10*time.Millisecond, nil)
	w.OnReload = func(*Catalog, error) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	other := strings.TrimSuffix(path, "devices.yml") + "notes.txt"
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("unexpected reload")
	case <-time.After(200 * time.Millisecond):
	}
	cancel()
	require.NoError(t, <-done)
}
