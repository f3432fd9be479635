package metrics

import "sync"

// Collector collects fecd job metrics.
type Collector struct {
	mu sync.RWMutex

	jobsSubmitted  uint64
	jobsSucceeded  uint64
	jobsFailed     uint64
	activeJobs     map[uint]bool
	bitsEncoded    uint64
	bitsDecoded    uint64
	totalNumErrs   uint64
	capacityEvents uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		activeJobs: make(map[uint]bool),
	}
}

// JobSubmitted records a new job entering the run queue.
func (c *Collector) JobSubmitted(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsSubmitted++
	c.activeJobs[id] = true
}

// JobSucceeded records a job completing without error.
func (c *Collector) JobSucceeded(id uint, numErrs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsSucceeded++
	c.totalNumErrs += numErrs
	delete(c.activeJobs, id)
}

// JobFailed records a job that could not complete.
func (c *Collector) JobFailed(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsFailed++
	delete(c.activeJobs, id)
}

// BitsEncoded records output bits produced by an encode job.
func (c *Collector) BitsEncoded(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bitsEncoded += n
}

// BitsDecoded records output bits produced by a decode job.
func (c *Collector) BitsDecoded(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bitsDecoded += n
}

// CapacityExceeded records a decode job that hit the trellis capacity
// guard.
func (c *Collector) CapacityExceeded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacityEvents++
}

// Reset clears the active-job set (useful for testing); cumulative
// counters are untouched.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeJobs = make(map[uint]bool)
}

// GetJobsSubmitted returns total jobs submitted.
func (c *Collector) GetJobsSubmitted() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jobsSubmitted
}

// GetJobsSucceeded returns total jobs that completed successfully.
func (c *Collector) GetJobsSucceeded() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jobsSucceeded
}

// GetJobsFailed returns total jobs that failed.
func (c *Collector) GetJobsFailed() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jobsFailed
}

// GetActiveJobs returns the number of jobs submitted and not yet finished
// (queued or running).
func (c *Collector) GetActiveJobs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeJobs)
}

// GetBitsEncoded returns total output bits produced by encode jobs.
func (c *Collector) GetBitsEncoded() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bitsEncoded
}

// GetBitsDecoded returns total output bits produced by decode jobs.
func (c *Collector) GetBitsDecoded() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bitsDecoded
}

// GetTotalNumErrs returns the cumulative num_errs reported across every
// successful decode job.
func (c *Collector) GetTotalNumErrs() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalNumErrs
}

// GetCapacityExceededEvents returns the count of decode jobs that hit the
// trellis capacity guard.
func (c *Collector) GetCapacityExceededEvents() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capacityEvents
}
