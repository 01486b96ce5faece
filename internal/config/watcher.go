package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadQuietPeriod coalesces the event bursts editors produce when
// saving a file (write + chmod, or create + rename)
const reloadQuietPeriod = 100 * time.Millisecond

// fileWatcher watches the config file and invokes reload once events
// settle. The parent directory is watched rather than the file itself:
// editors and provisioning tools replace config files via rename, which
// silently drops a direct file watch.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	base    string
	reload  func()

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
}

func watchConfigFile(path string, reload func()) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	fw := &fileWatcher{
		watcher: watcher,
		base:    filepath.Base(path),
		reload:  reload,
		done:    make(chan struct{}),
	}
	go fw.loop()
	return fw, nil
}

func (fw *fileWatcher) stop() {
	close(fw.done)
	fw.watcher.Close()

	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
}

func (fw *fileWatcher) loop() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != fw.base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			fw.schedule()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[Config] Watcher error: %v", err)
		}
	}
}

// schedule arms the reload timer; each new event restarts the quiet
// period
func (fw *fileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(reloadQuietPeriod, func() {
		log.Printf("[Config] File changed, reloading...")
		fw.reload()
	})
}
