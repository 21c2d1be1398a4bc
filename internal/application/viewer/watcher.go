package viewer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/util"
)

// FileWatcher reports changes to a single trace file. Editors and tracers
// often replace files by rename, so the parent directory is watched and
// events are filtered by name.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   util.LoggerInterface
	events   chan model.FileEvent
}

// NewFileWatcher watches path. Bursts of events closer than debounce are
// coalesced into one.
func NewFileWatcher(path string, debounce time.Duration, logger util.LoggerInterface) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		path:     abs,
		debounce: debounce,
		logger:   util.OrNop(logger),
		events:   make(chan model.FileEvent, 1),
	}, nil
}

// Run processes file system events until ctx is done or the watcher is
// closed.
func (fw *FileWatcher) Run(ctx context.Context) error {
	timer := time.NewTimer(fw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending *model.FileEvent
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			fw.logger.Debug("trace file event", util.F("op", event.Op.String()))
			pending = &model.FileEvent{Path: fw.path, Operation: event.Op.String()}
			timer.Reset(fw.debounce)

		case <-timer.C:
			if pending == nil {
				continue
			}
			select {
			case fw.events <- *pending:
			default:
				// a change is already queued
			}
			pending = nil

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("file watcher error", util.F("error", err))
		}
	}
}

// Events delivers debounced changes of the watched file.
func (fw *FileWatcher) Events() <-chan model.FileEvent {
	return fw.events
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
