package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

const (
	defaultFileRefresh  = 2 * time.Second
	defaultMaxFileBytes = 16 << 20
	fileEventDebounce   = 100 * time.Millisecond
)

type FileErrorKind int

const (
	FileNotFound FileErrorKind = iota
	FileUnreadable
	FileNotText
)

func (k FileErrorKind) String() string {
	switch k {
	case FileNotFound:
		return "not found"
	case FileNotText:
		return "not valid UTF-8 text"
	default:
		return "unreadable"
	}
}

// FileError reports why an output file could not be shown.
type FileError struct {
	Kind FileErrorKind
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// outputMsg carries the content of the watched file, or why it could not be read.
type outputMsg struct {
	path    string
	content string
	err     error
}

// FileWatcher re-reads one target file on a fixed cadence and whenever
// fsnotify reports a write to it.
type FileWatcher struct {
	out      chan<- tea.Msg
	interval time.Duration
	maxBytes int64
	debounce time.Duration
	logger   *slog.Logger

	paths chan string
	done  chan struct{}
}

func NewFileWatcher(out chan<- tea.Msg, interval time.Duration) *FileWatcher {
	if interval <= 0 {
		interval = defaultFileRefresh
	}
	return &FileWatcher{
		out:      out,
		interval: interval,
		maxBytes: defaultMaxFileBytes,
		debounce: fileEventDebounce,
		logger:   slog.New(slog.DiscardHandler),
		paths:    make(chan string, 1),
		done:     make(chan struct{}),
	}
}

// WithLogger sets the logger used for read and notification failures.
func (w *FileWatcher) WithLogger(logger *slog.Logger) *FileWatcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithMaxBytes bounds how much of a file is read; larger files are read
// from the end. Zero or less reads whole files.
func (w *FileWatcher) WithMaxBytes(n int64) *FileWatcher {
	w.maxBytes = n
	return w
}

// Start launches the watch goroutine. It exits when ctx is cancelled.
func (w *FileWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Wait blocks until the watch goroutine has exited.
func (w *FileWatcher) Wait() {
	<-w.done
}

// SetPath retargets the watcher. An empty path stops delivery.
func (w *FileWatcher) SetPath(path string) {
	for {
		select {
		case w.paths <- path:
			return
		default:
		}
		select {
		case <-w.paths:
		default:
		}
	}
}

func (w *FileWatcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("file notifications unavailable, polling only", slog.Any("error", err))
	}
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if notify != nil {
		defer notify.Close()
		events, errs = notify.Events, notify.Errors
	}

	changed := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	var path, dir string
	for {
		select {
		case <-ctx.Done():
			return

		case path = <-w.paths:
			dir = w.rewatch(notify, dir, path)
			if path != "" && !w.deliver(ctx, path) {
				return
			}

		case <-ticker.C:
			if path != "" && !w.deliver(ctx, path) {
				return
			}

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if path == "" || filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case <-changed:
			if path != "" && !w.deliver(ctx, path) {
				return
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("file notification error", slog.Any("error", err))
		}
	}
}

// rewatch moves the fsnotify watch to the directory of path and returns the
// directory now being watched. The parent is watched so that files created
// after the job starts are still seen.
func (w *FileWatcher) rewatch(notify *fsnotify.Watcher, current, path string) string {
	if notify == nil {
		return ""
	}
	next := ""
	if path != "" {
		next = filepath.Dir(path)
	}
	if next == current {
		return current
	}
	if current != "" {
		_ = notify.Remove(current)
	}
	if next == "" {
		return ""
	}
	if err := notify.Add(next); err != nil {
		w.logger.Debug("cannot watch output directory", slog.String("dir", next), slog.Any("error", err))
		return ""
	}
	return next
}

func (w *FileWatcher) deliver(ctx context.Context, path string) bool {
	content, err := readOutputFile(path, w.maxBytes)
	if err != nil {
		w.logger.Debug("output file read failed", slog.String("path", path), slog.Any("error", err))
	}
	return send(ctx, w.out, outputMsg{path: path, content: content, err: err})
}

// readOutputFile returns the file as text. When the file is larger than
// maxBytes only its tail is read, starting at the first line break in the
// window so no partial line is shown.
func readOutputFile(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &FileError{Kind: FileNotFound, Path: path, Err: err}
		}
		return "", &FileError{Kind: FileUnreadable, Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &FileError{Kind: FileUnreadable, Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &FileError{Kind: FileUnreadable, Path: path, Err: errors.New("is a directory")}
	}

	var data []byte
	if size := info.Size(); maxBytes > 0 && size > maxBytes {
		buf := make([]byte, maxBytes)
		n, err := f.ReadAt(buf, size-maxBytes)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", &FileError{Kind: FileUnreadable, Path: path, Err: err}
		}
		data = buf[:n]
		if i := bytes.IndexAny(data, "\r\n"); i != -1 {
			if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			data = data[i+1:]
		}
	} else {
		data, err = io.ReadAll(f)
		if err != nil {
			return "", &FileError{Kind: FileUnreadable, Path: path, Err: err}
		}
	}

	if !utf8.Valid(data) {
		return "", &FileError{Kind: FileNotText, Path: path}
	}
	return string(data), nil
}
