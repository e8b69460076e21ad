package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/netomi/che-server/pkg/logging"
)

// debounceInterval is the time to wait after the last file change before
// re-reading a secret. Prevents double reloads when the platform swaps
// the mounted file in several steps.
const debounceInterval = 500 * time.Millisecond

// SecretUpdater receives rotated client secrets. Both authenticator
// implementations satisfy it.
type SecretUpdater interface {
	SetClientSecret(secret string)
}

// SecretWatcher monitors mounted client-secret files and pushes new values
// to the owning authenticator when the platform rotates them.
type SecretWatcher struct {
	mu sync.Mutex

	fsWatcher *fsnotify.Watcher

	// targets maps the watched file path to its updater.
	targets map[string]SecretUpdater

	stopCh  chan struct{}
	running bool

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
}

// NewSecretWatcher creates a watcher with no targets.
func NewSecretWatcher() *SecretWatcher {
	return &SecretWatcher{
		targets:        make(map[string]SecretUpdater),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Add registers a secret file and its updater. The current file content is
// pushed immediately so the authenticator starts with a valid secret.
func (w *SecretWatcher) Add(path string, updater SecretUpdater) error {
	secret, err := readSecretFile(path)
	if err != nil {
		return err
	}
	updater.SetClientSecret(secret)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.targets[filepath.Clean(path)] = updater
	return nil
}

// Start begins watching the registered files. Watching the parent
// directories rather than the files themselves survives the
// rename-and-replace updates Kubernetes uses for mounted secrets.
func (w *SecretWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if len(w.targets) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for path := range w.targets {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	// Capture channels before releasing the lock to avoid racing Stop().
	eventsCh := watcher.Events
	errorsCh := watcher.Errors
	go w.processEvents(eventsCh, errorsCh)

	logging.Info("SecretWatcher", "Watching %d client secret files", len(w.targets))
	return nil
}

// Stop stops the watcher.
func (w *SecretWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
}

// processEvents handles fsnotify events until the watcher is stopped.
func (w *SecretWatcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("SecretWatcher", err, "fsnotify error")
		}
	}
}

// handleEvent reloads the secret behind a write/create event, debounced
// per file.
func (w *SecretWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := filepath.Clean(event.Name)
	w.mu.Lock()
	updater, watched := w.targets[path]
	w.mu.Unlock()
	if !watched {
		return
	}

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer := w.debounceTimers[path]; timer != nil {
		timer.Stop()
	}
	w.debounceTimers[path] = time.AfterFunc(debounceInterval, func() {
		secret, err := readSecretFile(path)
		if err != nil {
			logging.Error("SecretWatcher", err, "Failed to reload client secret from %s", path)
			return
		}
		updater.SetClientSecret(secret)
		logging.Info("SecretWatcher", "Reloaded client secret from %s", path)
	})
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read client secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("client secret file %s is empty", path)
	}
	return secret, nil
}
