// Package file provides a tailing source adapter: it follows a set of glob
// patterns, reading newly appended lines from matching regular files and
// feeding them to the assembler pipeline.
package file

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"logcore/internal/source"
)

// tailedFile tracks the state of a single file being tailed.
type tailedFile struct {
	path    string
	inode   uint64
	offset  int64
	lineBuf []byte // partial line from last read
	file    *os.File
}

// Config holds file tail adapter configuration.
type Config struct {
	ID           string
	Patterns     []string
	PollInterval time.Duration
	StateFile    string
	Logger       *slog.Logger
}

// Adapter tails a set of glob-matched files.
type Adapter struct {
	id           string
	patterns     []string
	pollInterval time.Duration
	stateFile    string
	logger       *slog.Logger

	mu    sync.Mutex
	files map[string]*tailedFile
}

// New creates a file tail source adapter from cfg.
func New(cfg Config) *Adapter {
	return &Adapter{
		id:           cfg.ID,
		patterns:     cfg.Patterns,
		pollInterval: cfg.PollInterval,
		stateFile:    cfg.StateFile,
		logger:       cfg.Logger,
		files:        make(map[string]*tailedFile),
	}
}

// Run discovers matching files, tails appended content, and watches for new
// matching files until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, out chan<- source.RawRecord) error {
	bm, err := loadBookmarks(a.stateFile)
	if err != nil {
		a.logger.Warn("failed to load bookmarks, starting fresh", "error", err)
		bm = bookmarks{Files: make(map[string]fileBookmark)}
	}

	paths, err := discoverFiles(a.patterns)
	if err != nil {
		return err
	}
	for _, path := range paths {
		a.openFile(path, bm)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range watchDirsForPatterns(a.patterns) {
		if err := watcher.Add(dir); err != nil {
			a.logger.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}

	a.mu.Lock()
	for _, tf := range a.files {
		a.readNewLines(tf, out)
	}
	a.mu.Unlock()

	var ticker *time.Ticker
	var tickCh <-chan time.Time
	if a.pollInterval > 0 {
		ticker = time.NewTicker(a.pollInterval)
		tickCh = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			a.saveAndCleanup(bm)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			a.handleFSEvent(event, bm, out)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("fsnotify error", "error", err)

		case <-tickCh:
			a.poll(bm, out)
		}
	}
}

func (a *Adapter) openFile(path string, bm bookmarks) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.files[path]; exists {
		return
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		a.logger.Warn("failed to open file", "path", path, "error", err)
		return
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		a.logger.Warn("failed to stat file", "path", path, "error", err)
		return
	}

	inode, _ := getInode(info)

	tf := &tailedFile{path: path, inode: inode, file: f}

	if fb, ok := bm.Files[path]; ok && fb.Inode == inode && fb.Offset <= info.Size() {
		tf.offset = fb.Offset
	} else {
		tf.offset = info.Size()
	}

	if _, err := f.Seek(tf.offset, io.SeekStart); err != nil {
		_ = f.Close()
		a.logger.Warn("failed to seek", "path", path, "error", err)
		return
	}

	a.files[path] = tf
	a.logger.Debug("tailing file", "path", path, "offset", tf.offset)
}

// readNewLines reads complete lines from a tailed file and emits them.
// Caller must hold a.mu.
func (a *Adapter) readNewLines(tf *tailedFile, out chan<- source.RawRecord) {
	info, err := os.Stat(tf.path)
	if err != nil {
		a.logger.Warn("failed to stat file during read", "path", tf.path, "error", err)
		return
	}

	if newInode, ok := getInode(info); ok && tf.inode != 0 && newInode != tf.inode {
		a.logger.Info("inode change detected, reopening", "path", tf.path)
		_ = tf.file.Close()
		f, err := os.Open(tf.path)
		if err != nil {
			a.logger.Warn("failed to reopen after rotation", "path", tf.path, "error", err)
			return
		}
		newInfo, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return
		}
		tf.file = f
		tf.inode, _ = getInode(newInfo)
		tf.offset = 0
		tf.lineBuf = nil
	}

	if info.Size() < tf.offset {
		a.logger.Info("truncation detected, resetting", "path", tf.path)
		tf.offset = 0
		tf.lineBuf = nil
		if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
			return
		}
	}

	if info.Size() == tf.offset {
		return
	}

	if _, err := tf.file.Seek(tf.offset, io.SeekStart); err != nil {
		return
	}

	now := time.Now()
	scanner := bufio.NewScanner(tf.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()

		if len(tf.lineBuf) > 0 {
			line = append(tf.lineBuf, line...)
			tf.lineBuf = nil
		}

		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}

		raw := make([]byte, len(line))
		copy(raw, line)

		rr := source.RawRecord{
			SourceID: a.id,
			Attrs:    map[string]string{"file": tf.path},
			Raw:      raw,
			IngestTS: now,
		}

		out <- rr
	}

	a.updateOffset(tf, info, scanner.Err())
}

func (a *Adapter) updateOffset(tf *tailedFile, info os.FileInfo, scanErr error) {
	newOffset, err := tf.file.Seek(0, io.SeekCurrent)
	if err != nil || scanErr != nil {
		return
	}
	a.bufferPartialLine(tf, info, newOffset)
	tf.offset = newOffset
}

func (a *Adapter) bufferPartialLine(tf *tailedFile, info os.FileInfo, newOffset int64) {
	if newOffset >= info.Size() {
		return
	}
	remaining := make([]byte, info.Size()-newOffset)
	n, _ := tf.file.ReadAt(remaining, newOffset)
	if n > 0 {
		tf.lineBuf = append(tf.lineBuf, remaining[:n]...)
	}
}

func (a *Adapter) handleFSEvent(event fsnotify.Event, bm bookmarks, out chan<- source.RawRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case event.Has(fsnotify.Write):
		if tf, ok := a.files[event.Name]; ok {
			a.readNewLines(tf, out)
		}

	case event.Has(fsnotify.Create):
		if matchesAnyPattern(event.Name, a.patterns) {
			a.mu.Unlock()
			a.openFile(event.Name, bm)
			a.mu.Lock()
			if tf, ok := a.files[event.Name]; ok {
				tf.offset = 0
				if _, err := tf.file.Seek(0, io.SeekStart); err == nil {
					a.readNewLines(tf, out)
				}
			}
		}

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if tf, ok := a.files[event.Name]; ok {
			_ = tf.file.Close()
			delete(a.files, event.Name)
			a.logger.Debug("file removed/renamed", "path", event.Name)
		}
	}
}

func (a *Adapter) poll(bm bookmarks, out chan<- source.RawRecord) {
	paths, err := discoverFiles(a.patterns)
	if err != nil {
		a.logger.Warn("poll discovery failed", "error", err)
	} else {
		for _, path := range paths {
			a.openFile(path, bm)
		}
	}

	a.mu.Lock()
	for _, tf := range a.files {
		a.readNewLines(tf, out)
	}
	for path, tf := range a.files {
		bm.Files[path] = fileBookmark{Inode: tf.inode, Offset: tf.offset}
	}
	a.mu.Unlock()

	if err := saveBookmarks(a.stateFile, bm); err != nil {
		a.logger.Warn("failed to save bookmarks", "error", err)
	}
}

func (a *Adapter) saveAndCleanup(bm bookmarks) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for path, tf := range a.files {
		bm.Files[path] = fileBookmark{Inode: tf.inode, Offset: tf.offset}
		_ = tf.file.Close()
	}

	if err := saveBookmarks(a.stateFile, bm); err != nil {
		a.logger.Warn("failed to save bookmarks on shutdown", "error", err)
	}
}

func getInode(info os.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Ino, true
}
