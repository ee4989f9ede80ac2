package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clean-dependency-project/gamesync/internal/events"
)

// Job is one file of a batch. Path is the full destination path.
type Job struct {
	URL  string
	Path string
	Size int64
	Type string
}

// JobError pairs a failed job with its cause.
type JobError struct {
	Job Job
	Err error
}

// BatchResult summarizes a FetchMany call.
type BatchResult struct {
	Completed []Job
	Failed    []JobError
	Bytes     int64
	Duration  time.Duration
}

// Err joins the per-file errors, or returns nil when every job succeeded.
func (r *BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Job.Path, f.Err))
	}
	return errors.Join(errs...)
}

// FetchMany downloads jobs with at most limit concurrent transfers.
// totalBytes is the expected size of the whole batch and drives the ETA.
// Per-file failures are published as events.Error and collected in the result;
// the batch keeps going. A cancelled ctx stops dispatch and the undispatched
// jobs are reported as failed with ctx.Err().
func (d *Downloader) FetchMany(ctx context.Context, jobs []Job, totalBytes int64, limit int, timeout time.Duration) *BatchResult {
	result := &BatchResult{}
	if len(jobs) == 0 {
		d.stdout.Debug("no download tasks to process")
		return result
	}

	workers := min(limit, len(jobs))
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = d.timeout
	}
	client := d.clientFor(timeout)
	start := time.Now()

	d.stdout.Info("starting concurrent downloads",
		"task_count", len(jobs),
		"concurrency", workers,
		"total_bytes", totalBytes)

	var (
		downloaded atomic.Int64
		completed  atomic.Int64
		mu         sync.Mutex
		wg         sync.WaitGroup
		dispatched int
	)

	queue := make(chan Job)
	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
				dispatched++
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := make(chan struct{})
	var sampler sync.WaitGroup
	sampler.Add(1)
	go func() {
		defer sampler.Done()
		d.sampleSpeed(stop, &downloaded, totalBytes)
	}()

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				err := d.fetchJob(ctx, client, timeout, job, &downloaded, totalBytes)
				completed.Add(1)

				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, JobError{Job: job, Err: err})
				} else {
					result.Completed = append(result.Completed, job)
				}
				mu.Unlock()

				if err != nil {
					d.sink.Publish(events.Error{URL: job.URL, Path: job.Path, Err: err})
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	sampler.Wait()

	// The dispatcher has exited once the queue is closed and drained.
	for _, job := range jobs[dispatched:] {
		result.Failed = append(result.Failed, JobError{Job: job, Err: ctx.Err()})
	}

	result.Bytes = downloaded.Load()
	result.Duration = time.Since(start)

	d.stdout.Info("concurrent downloads completed",
		"total_tasks", len(jobs),
		"processed", completed.Load(),
		"successful", len(result.Completed),
		"failed", len(result.Failed),
		"total_size_bytes", result.Bytes,
		"total_duration_ms", result.Duration.Milliseconds())

	return result
}

func (d *Downloader) fetchJob(ctx context.Context, client *http.Client, timeout time.Duration, job Job, downloaded *atomic.Int64, totalBytes int64) error {
	dest := func(*http.Response) string { return job.Path }
	_, err := d.transfer(ctx, client, timeout, job.URL, dest, func(n, _ int64) {
		current := downloaded.Add(n)
		d.sink.Publish(events.Progress{Downloaded: current, Total: totalBytes, Type: job.Type})
	})
	return err
}

// sampleSpeed publishes smoothed speed and ETA on every tick until stop is closed.
func (d *Downloader) sampleSpeed(stop <-chan struct{}, downloaded *atomic.Int64, totalBytes int64) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	window := NewSpeedWindow(sampleWindow)
	last := time.Now()
	var before int64

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			current := downloaded.Load()
			elapsed := now.Sub(last).Seconds()
			last = now
			if elapsed <= 0 {
				continue
			}
			window.Add(float64(current-before) / elapsed)
			before = current

			speed := window.Speed()
			d.sink.Publish(events.Speed{BytesPerSecond: speed})
			d.sink.Publish(events.Estimated{Seconds: EstimateSeconds(totalBytes-current, speed)})
		}
	}
}
