// Package watcher implements the Filesystem Watcher producer (§4.5): a
// debounced, filtered, rewritten stream of filesystem events from N
// configured paths, fed into a single central consumer.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dan-online/autopulse-sub000/internal/clock"
	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/logger"
	"github.com/dan-online/autopulse-sub000/internal/rewrite"
)

// defaultDebounce matches notify_debouncer_full's default window.
const defaultDebounce = 2 * time.Second

// Notification is one path ready to become a scan event: trigger_name,
// the rewritten path, and when it becomes eligible to process.
type Notification struct {
	TriggerName string
	Path        string
	ScheduleAt  time.Time
}

// Watcher wraps one configured Notify trigger's filesystem subscription.
type Watcher struct {
	name     string
	paths    []string
	filters  []*regexp.Regexp
	rules    []rewrite.Rule
	debounce  time.Duration
	wait      time.Duration
	clock     clock.Clock
	recursive bool
}

// New builds a Watcher for one Notify trigger entry.
func New(name string, cfg config.Trigger, defaultTimerWait time.Duration, c clock.Clock) (*Watcher, error) {
	paths, _ := cfg.Extra["paths"].([]string)
	if len(paths) == 0 {
		return nil, fmt.Errorf("notify trigger %s: at least one path is required", name)
	}

	filterStrs, _ := cfg.Extra["filters"].([]string)
	filters := make([]*regexp.Regexp, 0, len(filterStrs))
	for _, f := range filterStrs {
		re, err := regexp.Compile(f)
		if err != nil {
			return nil, fmt.Errorf("notify trigger %s: compiling filter %q: %w", name, f, err)
		}
		filters = append(filters, re)
	}

	rules, err := rewrite.Compile(cfg.Rewrite)
	if err != nil {
		return nil, fmt.Errorf("notify trigger %s: %w", name, err)
	}

	debounce := defaultDebounce
	if secs, ok := cfg.Extra["debounce_seconds"].(int); ok && secs > 0 {
		debounce = time.Duration(secs) * time.Second
	}

	wait := defaultTimerWait
	if cfg.Timer != nil {
		wait = time.Duration(cfg.Timer.WaitSeconds) * time.Second
	}

	if c == nil {
		c = clock.NewRealClock()
	}

	recursive := true
	if r, ok := cfg.Extra["recursive"].(bool); ok {
		recursive = r
	}

	return &Watcher{
		name:      name,
		paths:     paths,
		filters:   filters,
		rules:     rules,
		debounce:  debounce,
		wait:      wait,
		clock:     c,
		recursive: recursive,
	}, nil
}

func (w *Watcher) allowed(path string) bool {
	if len(w.filters) == 0 {
		return true
	}
	for _, f := range w.filters {
		if f.MatchString(path) {
			return true
		}
	}
	return false
}

// Run watches every configured path (recursively registering
// subdirectories at startup) and forwards debounced, filtered, rewritten
// events to out until stop is closed. One goroutine per Watcher, per the
// §5 concurrency contract.
func (w *Watcher) Run(stop <-chan struct{}, out chan<- Notification) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher %s: creating fsnotify watcher: %w", w.name, err)
	}
	defer fsw.Close()

	for _, p := range w.paths {
		if err := w.addPath(fsw, p); err != nil {
			return fmt.Errorf("watcher %s: watching %s: %w", w.name, p, err)
		}
	}

	debounced := make(chan Event, 64)
	deb := newDebouncer(w.debounce, w.clock, debounced)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				w.handleRaw(deb, ev)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Errorf("watcher %s: %v", w.name, err)
			}
		}
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return nil
		case ev := <-debounced:
			if !w.allowed(ev.Path) {
				continue
			}
			path := rewrite.Apply(w.rules, ev.Path)
			out <- Notification{
				TriggerName: w.name,
				Path:        path,
				ScheduleAt:  w.clock.Now().Add(w.wait),
			}
		}
	}
}

func (w *Watcher) handleRaw(deb *debouncer, ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create != 0:
		deb.record(ev.Name, RawCreate)
	case ev.Op&fsnotify.Remove != 0:
		deb.record(ev.Name, RawRemove)
	case ev.Op&fsnotify.Rename != 0:
		deb.record(ev.Name, RawRename)
	case ev.Op&fsnotify.Chmod != 0:
		deb.record(ev.Name, RawMetadataModify)
	case ev.Op&fsnotify.Write != 0:
		// fsnotify has no IN_CLOSE_WRITE equivalent; a Write op is the
		// closest available signal for access-close-write (§4.5).
		deb.record(ev.Name, RawCloseWrite)
	}
}

// addPath registers root with fsw, and every subdirectory beneath it when
// the watcher is configured recursive — fsnotify only watches the
// directory it's given, not its descendants.
func (w *Watcher) addPath(fsw *fsnotify.Watcher, root string) error {
	if !w.recursive {
		return fsw.Add(root)
	}
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
}
