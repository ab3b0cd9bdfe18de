// Package assets watches shader source files on disk and loads the images
// and shader text the renderer's materials reference.
package assets

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prisma/engine/core"
)

// shaderExtensions are the file types the watcher reports changes for.
var shaderExtensions = map[string]struct{}{
	".frag":   {},
	".vert":   {},
	".glsl":   {},
	".shader": {},
}

// Watcher re-emits filesystem changes of shader sources as engine events so
// the application can recompile custom shaders while running.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	closed   bool
}

func NewWatcher() (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Watch starts watching a file or directory (non-recursively).
func (w *Watcher) Watch(name string) error {
	if w.closed {
		return errors.New("watcher already closed")
	}
	return w.fsnotify.Add(name)
}

// WatchRecursive watches the directory and every subdirectory under it.
func (w *Watcher) WatchRecursive(dir string) error {
	if w.closed {
		return errors.New("watcher already closed")
	}
	return filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.fsnotify.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			// New directories join the watch so files created inside them
			// keep reporting.
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					_ = w.fsnotify.Add(e.Name)
					continue
				}
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, ok := shaderExtensions[filepath.Ext(e.Name)]; !ok {
				continue
			}
			context := core.EventContext{}
			context.Data.Str = e.Name
			core.EventFire(core.EVENT_CODE_SHADER_FILE_CHANGED, w, context)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// Close stops the watcher. Watch calls after Close fail.
func (w *Watcher) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return nil
}
