package bindfile

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	qbinding "github.com/CrimsonAS/qbind/binding"
	qobject "github.com/CrimsonAS/qbind/object"
)

// Reloader keeps the bindings of a file applied to a registry, and replaces
// them whenever the file changes on disk.
//
// Reloads run on the loop. A file that fails to load or apply leaves the
// previous bindings in place.
type Reloader struct {
	loop     *qobject.Loop
	path     string
	reg      *qbinding.Bindings
	resolver Resolver
	opts     []Option
	logger   *slog.Logger
	onReload func(error)

	watcher *fsnotify.Watcher
	done    chan struct{}
	current []qbinding.Binding
}

// WatchOption configures a Reloader.
type WatchOption func(*Reloader)

// WithApplyOptions passes opts to every Apply.
func WithApplyOptions(opts ...Option) WatchOption {
	return func(r *Reloader) {
		r.opts = append(r.opts, opts...)
	}
}

// WithWatchLogger sets the logger used to report reloads.
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// OnReload sets a function called on the loop after each reload attempt
// triggered by a change, with its error or nil.
func OnReload(fn func(error)) WatchOption {
	return func(r *Reloader) {
		r.onReload = fn
	}
}

// Watch loads and applies the binding file at path, then watches it for
// changes. It must be called on the loop goroutine. An error loading or
// applying the file the first time is returned.
func Watch(loop *qobject.Loop, path string, reg *qbinding.Bindings, resolver Resolver, opts ...WatchOption) (*Reloader, error) {
	r := &Reloader{
		loop:     loop,
		path:     filepath.Clean(path),
		reg:      reg,
		resolver: resolver,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.load(); err != nil {
		return nil, err
	}

	var err error
	r.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		r.remove(r.current)
		return nil, err
	}
	// Editors often replace files rather than write them, so the directory
	// is watched instead of the file.
	if err := r.watcher.Add(filepath.Dir(r.path)); err != nil {
		r.watcher.Close()
		r.remove(r.current)
		return nil, err
	}
	go r.watch(r.watcher, r.done)
	return r, nil
}

func (r *Reloader) watch(watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				r.loop.Invoke(r.reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("bindfile: watch error", "path", r.path, "error", err)
		}
	}
}

func (r *Reloader) load() error {
	f, err := LoadFile(r.path)
	if err != nil {
		return err
	}
	created, err := f.Apply(r.reg, r.resolver, r.opts...)
	if err != nil {
		return err
	}
	old := r.current
	r.current = created
	r.remove(old)
	return nil
}

func (r *Reloader) reload() {
	if r.watcher == nil {
		return
	}
	err := r.load()
	if err != nil {
		r.logger.Warn("bindfile: reload failed, keeping previous bindings", "path", r.path, "error", err)
	} else {
		r.logger.Info("bindfile: reloaded", "path", r.path, "bindings", len(r.current))
	}
	if r.onReload != nil {
		r.onReload(err)
	}
}

func (r *Reloader) remove(bindings []qbinding.Binding) {
	for _, b := range bindings {
		r.reg.Remove(b)
	}
}

// Bindings returns the bindings created from the current contents of the
// file.
func (r *Reloader) Bindings() []qbinding.Binding {
	return r.current
}

// Close stops watching the file. It must be called on the loop goroutine.
// The bindings stay in the registry.
func (r *Reloader) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.watcher = nil
	return err
}
