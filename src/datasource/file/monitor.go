// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监听输入文件所在目录，文件更新后回调
type FileMonitor struct {
	watchDir string
	target   string // 为空时目录下任意文件都会触发
	watcher  *fsnotify.Watcher
	lastFile string
	lastMod  time.Time
	mu       sync.Mutex
}

// NewFileMonitor 监听 filePath 所在的目录
func NewFileMonitor(filePath string) (*FileMonitor, error) {
	dir := filepath.Dir(filePath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		target:   filepath.Clean(filePath),
		watcher:  watcher,
	}, nil
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

// Watch 阻塞直到ctx取消或watcher出错，handler同步执行
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if m.target != "" && filepath.Clean(event.Name) != m.target {
				continue
			}
			if m.isNewVersion(event.Name) {
				handler(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// isNewVersion 同一次保存会产生多个写事件，按修改时间去重
func (m *FileMonitor) isNewVersion(name string) bool {
	info, err := os.Stat(name)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if info.ModTime().After(m.lastMod) || name != m.lastFile {
		m.lastMod = info.ModTime()
		m.lastFile = name
		return true
	}
	return false
}
