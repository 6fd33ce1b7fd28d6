package systems

import (
	"context"
	"fmt"
	"sync"

	"github.com/spaghettifunk/mapviewer/engine/assets"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

// FetchTask is one in-flight download. Its progress never decreases and it
// settles exactly once, with either the downloaded bytes or an error.
type FetchTask struct {
	Path string

	system   *FetchSystem
	progress float64 // guarded by system.mu
	done     chan struct{}
	data     []byte
	err      error
}

func (t *FetchTask) Progress() float64 {
	t.system.mu.Lock()
	defer t.system.mu.Unlock()
	return t.progress
}

// Done is closed once the task settled.
func (t *FetchTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles or ctx is done.
func (t *FetchTask) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-t.done:
		return t.data, t.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", t.Path, ctx.Err())
	}
}

type fetchOptions struct {
	rng *assets.Range
}

type FetchOption func(*fetchOptions)

// WithRange restricts the download to size bytes starting at offset.
func WithRange(offset, size int64) FetchOption {
	return func(o *fetchOptions) {
		o.rng = &assets.Range{Offset: offset, Size: size}
	}
}

// FetchSystem issues downloads on the job system and reports the mean
// progress of every task it ever registered to a sink.
type FetchSystem struct {
	ctx       context.Context
	transport assets.Transport
	jobSystem *JobSystem
	sink      ProgressSink

	mu    sync.Mutex
	tasks []*FetchTask
}

// NewFetchSystem creates a fetcher whose downloads are all cancelled by ctx.
// sink may be nil.
func NewFetchSystem(ctx context.Context, transport assets.Transport, js *JobSystem, sink ProgressSink) (*FetchSystem, error) {
	if transport == nil {
		err := fmt.Errorf("func NewFetchSystem - transport must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	if js == nil {
		err := fmt.Errorf("func NewFetchSystem - job system must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	return &FetchSystem{
		ctx:       ctx,
		transport: transport,
		jobSystem: js,
		sink:      sink,
		tasks:     make([]*FetchTask, 0),
	}, nil
}

// Fetch registers a task for path and starts downloading it without waiting
// for other fetches.
func (fs *FetchSystem) Fetch(path string, opts ...FetchOption) *FetchTask {
	o := &fetchOptions{}
	for _, opt := range opts {
		opt(o)
	}

	task := &FetchTask{
		Path:   path,
		system: fs,
		done:   make(chan struct{}),
	}

	fs.mu.Lock()
	fs.tasks = append(fs.tasks, task)
	fs.report()
	fs.mu.Unlock()

	fs.jobSystem.AddWorkNonBlocking(metadata.JobTask{
		JobType:  metadata.JOB_TYPE_RESOURCE_LOAD,
		Priority: metadata.JOB_PRIORITY_NORMAL,
		OnStart: func() error {
			if err := fs.ctx.Err(); err != nil {
				return err
			}
			data, err := fs.transport.Fetch(fs.ctx, path, o.rng, func(f float64) {
				fs.setProgress(task, f)
			})
			if err != nil {
				return err
			}
			task.data = data
			return nil
		},
		OnComplete: func() {
			fs.setProgress(task, 1)
			core.LogDebug("fetched %s (%d bytes)", path, len(task.data))
		},
		OnFailure: func(err error) {
			if ctxErr := fs.ctx.Err(); ctxErr != nil {
				task.err = fmt.Errorf("fetch %s: %w", path, ctxErr)
			} else {
				task.err = fmt.Errorf("fetch %s: %w: %w", path, core.ErrFetchFailed, err)
			}
			task.data = nil
			core.LogWarn("%s", task.err)
		},
		OnCompletionCallback: func() {
			close(task.done)
		},
	})

	return task
}

// Progress returns the current aggregate, zero when nothing was fetched.
func (fs *FetchSystem) Progress() float64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.aggregate()
}

// Tasks returns the number of registered tasks.
func (fs *FetchSystem) Tasks() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.tasks)
}

func (fs *FetchSystem) setProgress(task *FetchTask, fraction float64) {
	fraction = math.Clamp(fraction, 0, 1)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fraction < task.progress {
		return
	}
	task.progress = fraction
	fs.report()
}

// aggregate must be called with fs.mu held.
func (fs *FetchSystem) aggregate() float64 {
	values := make([]float64, len(fs.tasks))
	for i, t := range fs.tasks {
		values[i] = t.progress
	}
	return math.Mean(values)
}

// report must be called with fs.mu held, so reports reach the sink in order.
func (fs *FetchSystem) report() {
	if fs.sink != nil {
		fs.sink.SetProgress(fs.aggregate())
	}
}
