package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/subpipe/backend/internal/config"
	"github.com/subpipe/backend/internal/pipeline"
	"github.com/subpipe/backend/internal/subtitle"
)

// Watcher monitors a drop directory and enqueues a translation run for every
// subtitle file that lands in it, using the configured pipeline defaults.
type Watcher struct {
	dir      string
	defaults config.PipelineConfig
	manager  *pipeline.Manager
}

func New(dir string, defaults config.PipelineConfig, manager *pipeline.Manager) *Watcher {
	return &Watcher{dir: dir, defaults: defaults, manager: manager}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	log.Printf("[watcher] watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSubtitleFile(event.Name) {
				continue
			}
			// Writers may still be flushing when the event fires
			time.Sleep(500 * time.Millisecond)
			w.enqueue(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}

func (w *Watcher) enqueue(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[watcher] failed to read %s: %v", path, err)
		return
	}

	repaired, _ := subtitle.AutoRepair(string(data))
	cues, err := subtitle.Parse(repaired)
	if err != nil {
		log.Printf("[watcher] skipping %s: %v", path, err)
		return
	}

	overlap := 2
	if w.defaults.OverlapCount != nil {
		overlap = *w.defaults.OverlapCount
	}
	cfg := pipeline.Config{
		Cues:          cues,
		TargetSeconds: w.defaults.TargetSeconds,
		OverlapCount:  overlap,
		Concurrency:   w.defaults.Concurrency,
		SourceLang:    w.defaults.SourceLang,
		TargetLang:    w.defaults.TargetLang,
		Preset:        w.defaults.Preset,
	}
	runID, err := w.manager.StartRun(w.defaults.Provider, cfg)
	if err != nil {
		log.Printf("[watcher] failed to start run for %s: %v", path, err)
		return
	}
	log.Printf("[watcher] started run %s for %s (%d cues)", runID, filepath.Base(path), len(cues))
}

func isSubtitleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt", ".srt":
		return true
	}
	return false
}
