package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

type JobSystemConfig struct {
	/** @brief The number of worker goroutines. */
	MaxJobThreadCount int
	/** @brief The capacity of the job queue. Zero makes Submit block until a worker is free. */
	QueueSize int
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup
	// Guards closed and sends on jobQueue.
	mu     sync.RWMutex
	closed bool
}

var (
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
	ErrJobSystemClosed     = errors.New("job system is shut down")
)

func NewJobSystem(config *JobSystemConfig) (*JobSystem, error) {
	if config.MaxJobThreadCount <= 0 {
		core.LogError("%s", ErrNoWorkers)
		return nil, ErrNoWorkers
	}
	if config.QueueSize < 0 {
		core.LogError("%s", ErrNegativeChannelSize)
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: config.MaxJobThreadCount,
		jobQueue:   make(chan metadata.JobTask, config.QueueSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	var err error
	if job.OnStart == nil {
		err = fmt.Errorf("job has no entry point")
	} else {
		err = job.OnStart()
	}
	if err != nil {
		core.LogDebug("job failed: %s", err.Error())
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
	} else if job.OnComplete != nil {
		job.OnComplete()
	}

	// Call the completion callback if set
	if job.OnCompletionCallback != nil {
		job.OnCompletionCallback()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs are drained before returning.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

// AddWorkNonBlocking queues the job from a new goroutine and returns immediately.
// A job rejected because the system shut down is reported through OnFailure.
func (js *JobSystem) AddWorkNonBlocking(jt metadata.JobTask) {
	go func() {
		if err := js.Submit(jt); err != nil {
			if jt.OnFailure != nil {
				jt.OnFailure(err)
			}
			if jt.OnCompletionCallback != nil {
				jt.OnCompletionCallback()
			}
		}
	}()
}

/**
 * @brief Submits the provided job to be queued for execution.
 * @param jt The description of the job to be executed.
 * @returns ErrJobSystemClosed after Shutdown.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return ErrJobSystemClosed
	}
	js.jobQueue <- jt
	return nil
}
