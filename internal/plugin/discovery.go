package plugin

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// Manifest is the on-disk contract of a plugin bundle: a TOML file in the
// plugin directory naming a registered factory.
type Manifest struct {
	ID      string `toml:"id"`      // registered factory id, also the plugin id
	Enabled bool   `toml:"enabled"` // activate after load
}

// Discover scans dir for *.toml manifests and loads/activates each one.
// Every bundle is attempted independently - one broken manifest is logged
// and never aborts discovery of the rest. A missing directory is not an
// error; there is simply nothing to discover.
func (r *Registry) Discover(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("plugin: read plugin directory %s: %v", dir, err)
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.loadManifest(path); err != nil {
			log.Printf("plugin: skipping %s: %v", entry.Name(), err)
		}
	}
}

func (r *Registry) loadManifest(path string) error {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return err
	}
	if m.ID == "" {
		log.Printf("plugin: manifest %s missing id", path)
		return nil
	}

	if err := r.Load(m.ID); err != nil {
		return err
	}
	if m.Enabled {
		if err := r.Activate(m.ID); err != nil {
			return err
		}
	}
	return nil
}

// Watch re-runs discovery whenever a manifest appears or changes in dir.
// Blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				log.Printf("plugin: manifest change detected: %s", event.Name)
				if err := r.loadManifest(event.Name); err != nil {
					log.Printf("plugin: reload %s: %v", event.Name, err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("plugin: watcher error: %v", err)
		}
	}
}
