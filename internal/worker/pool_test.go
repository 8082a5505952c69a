package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolReturnsJobResult(t *testing.T) {
	p := NewPool(1, 4)
	defer p.Stop()

	out, err := p.Do(context.Background(), func(ctx context.Context) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	boom := errors.New("boom")
	_, err = p.Do(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSingleWorkerRunsJobsOneAtATime(t *testing.T) {
	p := NewPool(1, 16)
	defer p.Stop()

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := p.Do(context.Background(), func(ctx context.Context) (string, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return fmt.Sprint(i), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), out)
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&peak))
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := func(ctx context.Context) (string, error) {
		<-release
		return "ok", nil
	}

	go p.Do(context.Background(), func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "first", nil
	})
	<-started

	// one job can wait in the dispatcher and one in the queue
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := p.Do(context.Background(), blocking)
			errs <- err
		}()
	}

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrDispatcherBusy)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a busy rejection")
	}
	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-errs:
		case <-time.After(2 * time.Second):
			t.Fatal("queued jobs did not finish")
		}
	}
}

func TestDoHonoursContext(t *testing.T) {
	p := NewPool(1, 2)
	defer p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Do(ctx, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	var ran atomic.Bool
	_, err = p.Do(cancelled, func(ctx context.Context) (string, error) {
		ran.Store(true)
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestStopRejectsNewJobs(t *testing.T) {
	p := NewPool(2, 2)
	p.Stop()
	p.Stop()

	_, err := p.Do(context.Background(), func(ctx context.Context) (string, error) {
		return "late", nil
	})
	assert.ErrorIs(t, err, ErrPoolStopped)
}
