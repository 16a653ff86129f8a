/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kernel

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	wfs "github.com/rulego/weaver/utils/fs"
	"go.uber.org/zap"
)

// watcher reports changed source files under a directory tree.
type watcher struct {
	fsw      *fsnotify.Watcher
	filter   *wfs.PathFilter
	logger   *zap.Logger
	onChange func(path string)
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func newWatcher(root string, filter *wfs.PathFilter, logger *zap.Logger, onChange func(path string)) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &watcher{
		fsw:      fsw,
		filter:   filter,
		logger:   logger,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("source watcher error", zap.Error(err))
		case <-w.stop:
			return
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) && wfs.IsDir(event.Name) {
		if err := w.fsw.Add(event.Name); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("path", event.Name), zap.Error(err))
		}
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.filter.Match(event.Name) {
		w.logger.Debug("source changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
		w.onChange(event.Name)
	}
}

// Close stops the watcher and waits for its goroutine.
func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		w.wg.Wait()
		err = w.fsw.Close()
	})
	return err
}
