package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// WatchScoring reloads the scoring section of the config file into the
// weight source whenever the file changes. It returns a stop function.
// A file that fails to parse or validate leaves the current table in
// place.
func WatchScoring(path string, source *WeightSource) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which drops
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := reloadScoring(path, source); err != nil {
					log.Printf("[Config] Scoring reload failed, keeping current weights: %v", err)
					continue
				}
				log.Printf("[Config] Scoring weights reloaded from %s", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Config] Watcher error: %v", err)
			}
		}
	}()

	return watcher.Close, nil
}

func reloadScoring(path string, source *WeightSource) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg struct {
		Scoring ScoringConfig `yaml:"scoring"`
	}
	cfg.Scoring = DefaultScoringConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return source.Replace(cfg.Scoring)
}
