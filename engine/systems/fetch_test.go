package systems

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/mapviewer/engine/assets"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedTransport lets a test drive every transfer: values sent on a path's
// gate are reported as progress, closing the gate completes the transfer.
type gatedTransport struct {
	mu     sync.Mutex
	gates  map[string]chan float64
	errs   map[string]error
	ranges map[string]*assets.Range
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{
		gates:  make(map[string]chan float64),
		errs:   make(map[string]error),
		ranges: make(map[string]*assets.Range),
	}
}

func (g *gatedTransport) gate(path string) chan float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[path]
	if !ok {
		ch = make(chan float64)
		g.gates[path] = ch
	}
	return ch
}

func (g *gatedTransport) Fetch(ctx context.Context, path string, rng *assets.Range, onProgress assets.OnProgress) ([]byte, error) {
	g.mu.Lock()
	err := g.errs[path]
	g.ranges[path] = rng
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ch := g.gate(path)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return []byte(path), nil
			}
			onProgress(f)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type recordingSink struct {
	mu     sync.Mutex
	values []float64
}

func (s *recordingSink) SetProgress(f float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, f)
}

func (s *recordingSink) last() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return -1
	}
	return s.values[len(s.values)-1]
}

func newTestFetchSystem(t *testing.T, ctx context.Context, tr assets.Transport, sink ProgressSink) *FetchSystem {
	t.Helper()
	js, err := NewJobSystem(&JobSystemConfig{MaxJobThreadCount: 4, QueueSize: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Shutdown() })

	fs, err := NewFetchSystem(ctx, tr, js, sink)
	require.NoError(t, err)
	return fs
}

func TestFetchAggregateIsMean(t *testing.T) {
	tr := newGatedTransport()
	sink := &recordingSink{}
	fs := newTestFetchSystem(t, context.Background(), tr, sink)

	assert.Equal(t, 0.0, fs.Progress())

	a := fs.Fetch("a")
	assert.Equal(t, 0.0, sink.last())

	tr.gate("a") <- 0.5
	require.Eventually(t, func() bool { return fs.Progress() == 0.5 }, time.Second, time.Millisecond)
	assert.Equal(t, 0.5, sink.last())

	// A new task at zero can only pull the aggregate down.
	b := fs.Fetch("b")
	assert.Equal(t, 0.25, sink.last())
	assert.Equal(t, 2, fs.Tasks())

	tr.gate("b") <- 0.5
	require.Eventually(t, func() bool { return fs.Progress() == 0.5 }, time.Second, time.Millisecond)

	close(tr.gate("a"))
	data, err := a.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	assert.Equal(t, 1.0, a.Progress())
	assert.Equal(t, 0.75, fs.Progress())

	close(tr.gate("b"))
	_, err = b.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, fs.Progress())
	assert.Equal(t, 1.0, sink.last())
}

func TestFetchProgressIsMonotonicAndClamped(t *testing.T) {
	tr := newGatedTransport()
	sink := &recordingSink{}
	fs := newTestFetchSystem(t, context.Background(), tr, sink)

	task := fs.Fetch("a")
	tr.gate("a") <- 0.6
	require.Eventually(t, func() bool { return task.Progress() == 0.6 }, time.Second, time.Millisecond)

	tr.gate("a") <- 0.2
	tr.gate("a") <- 7
	require.Eventually(t, func() bool { return task.Progress() == 1 }, time.Second, time.Millisecond)

	sink.mu.Lock()
	for i := 1; i < len(sink.values); i++ {
		assert.GreaterOrEqual(t, sink.values[i], sink.values[i-1])
	}
	sink.mu.Unlock()

	close(tr.gate("a"))
	_, err := task.Wait(context.Background())
	require.NoError(t, err)
}

func TestFetchCancelKeepsLastProgress(t *testing.T) {
	tr := newGatedTransport()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	fs := newTestFetchSystem(t, ctx, tr, sink)

	a := fs.Fetch("a")
	b := fs.Fetch("b")
	tr.gate("a") <- 0.5
	require.Eventually(t, func() bool { return fs.Progress() == 0.25 }, time.Second, time.Millisecond)

	cancel()
	_, err := a.Wait(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, core.ErrFetchFailed))
	_, err = b.Wait(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0.5, a.Progress())
	assert.Equal(t, 0.25, fs.Progress())

	// A fetch issued after cancellation is rejected as well.
	c := fs.Fetch("c")
	_, err = c.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchFailure(t *testing.T) {
	tr := newGatedTransport()
	tr.errs["broken"] = errors.New("connection reset")
	fs := newTestFetchSystem(t, context.Background(), tr, nil)

	_, err := fs.Fetch("broken").Wait(context.Background())
	require.ErrorIs(t, err, core.ErrFetchFailed)
	assert.ErrorContains(t, err, "connection reset")
	assert.ErrorContains(t, err, "broken")
}

func TestFetchWithRange(t *testing.T) {
	tr := newGatedTransport()
	fs := newTestFetchSystem(t, context.Background(), tr, nil)

	task := fs.Fetch("a", WithRange(16, 32))
	close(tr.gate("a"))
	_, err := task.Wait(context.Background())
	require.NoError(t, err)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.NotNil(t, tr.ranges["a"])
	assert.Equal(t, assets.Range{Offset: 16, Size: 32}, *tr.ranges["a"])
}

func TestFetchWaitHonoursCallerContext(t *testing.T) {
	tr := newGatedTransport()
	fs := newTestFetchSystem(t, context.Background(), tr, nil)

	task := fs.Fetch("slow")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(tr.gate("slow"))
	<-task.Done()
}

func TestNewFetchSystemValidates(t *testing.T) {
	_, err := NewFetchSystem(context.Background(), nil, &JobSystem{}, nil)
	assert.Error(t, err)
	_, err = NewFetchSystem(context.Background(), newGatedTransport(), nil, nil)
	assert.Error(t, err)
}
