package main

import (
	"context"
	"log/slog"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultSlurmRefresh = 2 * time.Second

// FetchFunc loads the job set for a squeue query.
type FetchFunc func(ctx context.Context, args []string) ([]Job, error)

// jobsMsg carries one queue poll. On failure jobs is nil and err is set.
type jobsMsg struct {
	jobs []Job
	err  error
	at   time.Time
}

// QueueWatcher polls the queue in the background and posts a jobsMsg per poll.
type QueueWatcher struct {
	out      chan<- tea.Msg
	interval time.Duration
	fetch    FetchFunc
	logger   *slog.Logger

	initial []string
	args    chan []string
	refresh chan struct{}
	done    chan struct{}
}

func NewQueueWatcher(out chan<- tea.Msg, interval time.Duration, args []string, fetch FetchFunc) *QueueWatcher {
	if interval <= 0 {
		interval = defaultSlurmRefresh
	}
	if fetch == nil {
		fetch = FetchJobsSqueue
	}
	return &QueueWatcher{
		out:      out,
		interval: interval,
		fetch:    fetch,
		logger:   slog.New(slog.DiscardHandler),
		initial:  slices.Clone(args),
		args:     make(chan []string, 1),
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// WithLogger sets the logger used for poll failures.
func (w *QueueWatcher) WithLogger(logger *slog.Logger) *QueueWatcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Start launches the polling goroutine. It returns immediately and the
// goroutine exits when ctx is cancelled.
func (w *QueueWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Wait blocks until the polling goroutine has exited.
func (w *QueueWatcher) Wait() {
	<-w.done
}

// SetArgs replaces the squeue query. The watcher polls again with the new
// args as soon as it picks them up; only the latest pending args are kept.
func (w *QueueWatcher) SetArgs(args []string) {
	args = slices.Clone(args)
	for {
		select {
		case w.args <- args:
			return
		default:
		}
		select {
		case <-w.args:
		default:
		}
	}
}

// Refresh requests a poll ahead of the next tick.
func (w *QueueWatcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

func (w *QueueWatcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	args := w.initial
	for {
		if !w.poll(ctx, args) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case args = <-w.args:
			ticker.Reset(w.interval)
		case <-w.refresh:
			ticker.Reset(w.interval)
		}
	}
}

func (w *QueueWatcher) poll(ctx context.Context, args []string) bool {
	jobs, err := w.fetch(ctx, args)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		w.logger.Warn("queue poll failed", slog.Any("args", args), slog.Any("error", err))
		jobs = nil
	} else {
		w.logger.Debug("queue polled", slog.Int("jobs", len(jobs)))
	}
	return send(ctx, w.out, jobsMsg{jobs: jobs, err: err, at: time.Now()})
}

// send delivers msg unless ctx is cancelled first.
func send(ctx context.Context, out chan<- tea.Msg, msg tea.Msg) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// listen returns a command that blocks until the next watcher message.
func listen(in <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-in
		if !ok {
			return nil
		}
		return msg
	}
}
