// Package jobrunner executes queued codec jobs against pkg/fec and fans
// the result out to the job store, metrics collector, event publisher and
// websocket hub.
package jobrunner

import (
	"context"
	"fmt"

	"github.com/dbehnke/convcode/pkg/fec"
	"github.com/dbehnke/convcode/pkg/fecsvc/config"
	"github.com/dbehnke/convcode/pkg/fecsvc/events"
	"github.com/dbehnke/convcode/pkg/fecsvc/metrics"
	"github.com/dbehnke/convcode/pkg/fecsvc/store"
	"github.com/dbehnke/convcode/pkg/logger"
)

// StatusNotifier is implemented by anything that wants to hear about job
// status transitions as they happen (the web package's WebSocketHub in
// practice).
type StatusNotifier interface {
	NotifyJobStatus(id uint, status, kind string, numErrs uint64, errMsg string)
}

// Runner pulls jobs off a bounded channel and runs them one at a time per
// worker, matching the teacher's goroutine-plus-channel dispatch shape
// used for peer connection handling.
type Runner struct {
	repo      *store.JobRepository
	collector *metrics.Collector
	publisher *events.Publisher
	notifier  StatusNotifier
	log       *logger.Logger
	queue     chan uint
}

// NewRunner creates a Runner with the given worker queue depth.
func NewRunner(repo *store.JobRepository, collector *metrics.Collector, publisher *events.Publisher, notifier StatusNotifier, log *logger.Logger, queueDepth int) *Runner {
	return &Runner{
		repo:      repo,
		collector: collector,
		publisher: publisher,
		notifier:  notifier,
		log:       log.WithComponent("jobrunner"),
		queue:     make(chan uint, queueDepth),
	}
}

// Submit enqueues a job ID for execution. Submit is non-blocking except
// when the queue is completely full, matching how the teacher's
// WebSocketHub.Broadcast prefers dropping/blocking predictably over
// unbounded buffering.
func (r *Runner) Submit(id uint) {
	r.collector.JobSubmitted(id)
	if r.publisher != nil {
		_ = r.publisher.PublishJobSubmitted(events.JobSubmittedEvent{JobID: id})
	}
	r.queue <- id
}

// Run drains the queue until ctx is cancelled, executing one job at a
// time. Call Run in a goroutine per worker.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.execute(id)
		}
	}
}

func (r *Runner) execute(id uint) {
	jobLog := r.log.WithJob(id)

	job, err := r.repo.Get(id)
	if err != nil {
		jobLog.Error("job vanished before execution", logger.Error(err))
		return
	}

	if err := r.repo.MarkRunning(id); err != nil {
		jobLog.Error("failed to mark job running", logger.Error(err))
	}
	jobLog.Info("job running", logger.String("kind", string(job.Kind)))
	r.notify(job, "running", 0, "")

	out, numErrs, err := runJob(job)
	if err != nil {
		_ = r.repo.MarkFailed(id, err.Error())
		r.collector.JobFailed(id)
		jobLog.Error("job failed", logger.Error(err))
		r.notify(job, "failed", 0, err.Error())
		if r.publisher != nil {
			_ = r.publisher.PublishJobCompleted(events.JobCompletedEvent{
				JobID: id, Kind: string(job.Kind), Status: "failed", Error: err.Error(),
			})
		}
		return
	}

	_ = r.repo.MarkDone(id, out, numErrs)
	r.collector.JobSucceeded(id, numErrs)
	if job.Kind == store.JobEncode {
		r.collector.BitsEncoded(uint64(len(out)))
	} else {
		r.collector.BitsDecoded(uint64(len(out)))
	}
	jobLog.Info("job done", logger.Uint64("num_errs", numErrs))
	r.notify(job, "done", numErrs, "")
	if r.publisher != nil {
		_ = r.publisher.PublishJobCompleted(events.JobCompletedEvent{
			JobID: id, Kind: string(job.Kind), Status: "done", NumErrs: numErrs,
		})
	}
}

func (r *Runner) notify(job *store.Job, status string, numErrs uint64, errMsg string) {
	if r.notifier == nil {
		return
	}
	r.notifier.NotifyJobStatus(job.ID, status, string(job.Kind), numErrs, errMsg)
}

// runJob runs a single stored job through pkg/fec and returns its output
// bitstring and num_errs.
func runJob(job *store.Job) (string, uint64, error) {
	polys, err := config.ParsePolynomials(job.PolynomialList())
	if err != nil {
		return "", 0, err
	}

	in := make([]byte, (len(job.InputBits)+7)/8)
	for i, c := range job.InputBits {
		if c == '1' {
			in[i>>3] |= 1 << uint(i&7)
		}
	}
	nbits := len(job.InputBits)

	switch job.Kind {
	case store.JobEncode:
		var out []byte
		c, err := fec.NewCoder(job.K, polys, 0, job.Tail, job.Recursive, fec.ByteSliceSink(&out), nil)
		if err != nil {
			return "", 0, err
		}
		if err := c.EncodeStream(in, nbits); err != nil {
			return "", 0, err
		}
		total, err := c.EncodeFinish()
		if err != nil {
			return "", 0, err
		}
		return bitString(out, total), 0, nil

	case store.JobDecode:
		var out []byte
		c, err := fec.NewCoder(job.K, polys, nbits, job.Tail, job.Recursive, nil, fec.ByteSliceSink(&out))
		if err != nil {
			return "", 0, err
		}
		if err := c.ReinitDecoder(0, fec.DefaultInitOtherStates); err != nil {
			return "", 0, err
		}
		if err := c.DecodeStream(in, nbits, nil); err != nil {
			return "", 0, err
		}
		total, numErrs, err := c.DecodeFinish()
		if err != nil {
			return "", 0, err
		}
		return bitString(out, total), numErrs, nil

	default:
		return "", 0, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func bitString(buf []byte, n int) string {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if (buf[i>>3]>>uint(i&7))&1 != 0 {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}
