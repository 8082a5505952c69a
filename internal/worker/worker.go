package worker

import (
	"context"

	"go.uber.org/zap"
)

// Job is one unit of work handed to a worker.
type Job struct {
	ctx    context.Context
	run    func(context.Context) (string, error)
	result chan jobResult
}

type jobResult struct {
	out string
	err error
}

func (job Job) reply(out string, err error) {
	// result is buffered; an abandoned caller never blocks the worker
	job.result <- jobResult{out: out, err: err}
}

type Worker struct {
	id         int
	workerPool chan chan Job
	jobChannel chan Job
	quit       <-chan struct{}
	log        *zap.Logger
}

func NewWorker(id int, pool chan chan Job, quit <-chan struct{}, log *zap.Logger) *Worker {
	return &Worker{
		id:         id,
		workerPool: pool,
		jobChannel: make(chan Job),
		quit:       quit,
		log:        log,
	}
}

// Start registers the worker as idle, runs each job it receives, then
// registers again. It returns when quit is closed.
func (w *Worker) Start(done func()) {
	go func() {
		defer done()
		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-w.quit:
				return
			}
			select {
			case job := <-w.jobChannel:
				w.handle(job)
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *Worker) handle(job Job) {
	if err := job.ctx.Err(); err != nil {
		w.log.Debug("skip cancelled job", zap.Int("worker", w.id))
		job.reply("", err)
		return
	}
	w.log.Debug("run job", zap.Int("worker", w.id))
	out, err := job.run(job.ctx)
	job.reply(out, err)
}
