package jobs

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
)

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")

// JobTask is one unit of work. OnFailure or OnComplete runs on the worker
// after Run, then OnCompletionCallback.
type JobTask struct {
	Run                  func() error
	OnComplete           func()
	OnFailure            func(err error)
	OnCompletionCallback func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	once       sync.Once
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
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
				js.execute(job)
			}
		}()
	}
}

func (js *JobSystem) execute(job JobTask) {
	if err := job.Run(); err != nil {
		core.LogError(err.Error())
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
	} else if job.OnComplete != nil {
		job.OnComplete()
	}

	if job.OnCompletionCallback != nil {
		job.OnCompletionCallback()
	}
}

/**
 * @brief Shuts the job system down once queued jobs have run. Submitting
 * afterwards panics.
 */
func (js *JobSystem) Shutdown() error {
	js.once.Do(func() {
		close(js.jobQueue)
	})
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

// RunAll runs every task on a pool of at most numWorkers workers and waits
// for them. The returned error is the first failure, with the others
// attached as secondary errors.
func RunAll(numWorkers int, tasks []func() error) error {
	if len(tasks) == 0 {
		return nil
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}
	js, err := NewJobSystem(numWorkers, len(tasks))
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs error
	)
	for _, task := range tasks {
		js.Submit(JobTask{
			Run: task,
			OnFailure: func(err error) {
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
			},
		})
	}
	_ = js.Shutdown()
	return errs
}
