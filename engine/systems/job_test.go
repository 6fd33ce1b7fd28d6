package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidatesConfig(t *testing.T) {
	_, err := NewJobSystem(&JobSystemConfig{MaxJobThreadCount: 0})
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(&JobSystemConfig{MaxJobThreadCount: 1, QueueSize: -1})
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobCallbacks(t *testing.T) {
	js, err := NewJobSystem(&JobSystemConfig{MaxJobThreadCount: 2, QueueSize: 4})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
		failed    atomic.Int32
		finished  atomic.Int32
		failure   error
		mu        sync.Mutex
	)
	boom := errors.New("boom")
	wg.Add(2)
	require.NoError(t, js.Submit(metadata.JobTask{
		OnStart:              func() error { return nil },
		OnComplete:           func() { completed.Add(1) },
		OnFailure:            func(error) { failed.Add(1) },
		OnCompletionCallback: func() { finished.Add(1); wg.Done() },
	}))
	require.NoError(t, js.Submit(metadata.JobTask{
		OnStart:    func() error { return boom },
		OnComplete: func() { completed.Add(1) },
		OnFailure: func(err error) {
			mu.Lock()
			failure = err
			mu.Unlock()
			failed.Add(1)
		},
		OnCompletionCallback: func() { finished.Add(1); wg.Done() },
	}))
	wg.Wait()

	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, int32(1), failed.Load())
	assert.Equal(t, int32(2), finished.Load())
	mu.Lock()
	assert.ErrorIs(t, failure, boom)
	mu.Unlock()

	require.NoError(t, js.Shutdown())
}

func TestJobWithoutEntryPointFails(t *testing.T) {
	js, err := NewJobSystem(&JobSystemConfig{MaxJobThreadCount: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	js.AddWorkNonBlocking(metadata.JobTask{
		OnFailure: func(err error) { done <- err },
	})
	assert.Error(t, <-done)
	require.NoError(t, js.Shutdown())
}

func TestSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(&JobSystemConfig{MaxJobThreadCount: 1})
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	// Shutting down twice is harmless.
	require.NoError(t, js.Shutdown())

	err = js.Submit(metadata.JobTask{OnStart: func() error { return nil }})
	assert.ErrorIs(t, err, ErrJobSystemClosed)

	rejected := make(chan error, 1)
	js.AddWorkNonBlocking(metadata.JobTask{
		OnStart:   func() error { return nil },
		OnFailure: func(err error) { rejected <- err },
	})
	assert.ErrorIs(t, <-rejected, ErrJobSystemClosed)
}
