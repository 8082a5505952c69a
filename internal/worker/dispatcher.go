package worker

// run hands queued jobs to idle workers in arrival order until the pool stops.
func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.JobQueue:
			p.dispatch(job)
		case <-p.quit:
			p.drain()
			return
		}
	}
}

func (p *Pool) dispatch(job Job) {
	var workerChan chan Job
	select {
	case workerChan = <-p.workerPool:
	case <-p.quit:
		job.reply("", ErrPoolStopped)
		return
	}
	select {
	case workerChan <- job:
	case <-p.quit:
		job.reply("", ErrPoolStopped)
	}
}

// drain fails every job still waiting in the queue.
func (p *Pool) drain() {
	for {
		select {
		case job := <-p.JobQueue:
			job.reply("", ErrPoolStopped)
		default:
			return
		}
	}
}
