// Package watch re-runs metadata extraction for image files as they appear
// or change in a directory, e.g. a capture dump directory.
package watch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/image"
)

// Event is one extraction result. Exactly one of Metadata and Err is set.
type Event struct {
	Path     string
	Data     []byte
	Metadata *core.Metadata
	Err      error
}

// Watcher watches one directory.
type Watcher struct {
	dir  string
	opts core.Options
	// last content digest per path, so repeated write events for the same
	// bytes are reported once
	seen map[string]uint64
}

// New returns a watcher for dir.
func New(dir string, opts core.Options) *Watcher {
	return &Watcher{dir: dir, opts: opts, seen: map[string]uint64{}}
}

// Run blocks until ctx is done, calling fn for every created or rewritten
// image file. Files that are not images by magic or extension are ignored.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify")
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return errors.Wrapf(err, "watch %s", w.dir)
	}
	log.Debug().Str("dir", w.dir).Msg("watching")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if e, ok := w.extract(ev.Name); ok {
				fn(e)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", w.dir).Msg("watch error")
		}
	}
}

func (w *Watcher) extract(path string) (Event, bool) {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() || st.Size() == 0 {
		return Event{}, false
	}
	format, err := core.DetectFile(path)
	if err != nil || format == core.FmtUnknown {
		return Event{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{Path: path, Err: errors.Wrapf(err, "read %s", filepath.Base(path))}, true
	}
	sum := xxhash.Sum64(data)
	if prev, ok := w.seen[path]; ok && prev == sum {
		return Event{}, false
	}
	w.seen[path] = sum
	m, err := image.Extract(data, format, w.opts)
	if err != nil {
		return Event{Path: path, Data: data, Err: err}, true
	}
	return Event{Path: path, Data: data, Metadata: m}, true
}
