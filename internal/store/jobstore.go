// Package store provides the in-memory registry of extraction jobs.
//
// The store is constructed once at process start and injected into the
// extraction service. Jobs are process-local: on restart they are rebuilt
// from scratch, never recovered. Terminal jobs are evicted after a TTL and
// evicted IDs behave exactly like unknown IDs.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/declutter/internal/domain"
)

const janitorInterval = time.Minute

// Store is a concurrently accessible registry mapping job IDs to job state.
// The map is guarded by a read-write mutex; each job carries its own mutex
// so mutations of one job never serialize work on another.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*entry
	ttl     time.Duration
	maxJobs int

	stopOnce sync.Once
	stop     chan struct{}
}

type entry struct {
	mu  sync.Mutex
	job *domain.Job
}

// New creates a Store and starts its eviction janitor.
// Terminal jobs untouched for longer than ttl are removed; when the store
// holds more than maxJobs entries the oldest terminal jobs are removed
// first. A ttl or maxJobs of zero disables the respective policy.
func New(ttl time.Duration, maxJobs int) *Store {
	s := &Store{
		jobs:    make(map[string]*entry),
		ttl:     ttl,
		maxJobs: maxJobs,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the eviction janitor.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Create allocates a new job in the processing state with zero progress and
// returns a snapshot of it.
func (s *Store) Create(sourceName string) *domain.Job {
	now := time.Now()
	job := &domain.Job{
		ID:         uuid.New().String(),
		Status:     domain.JobStatusProcessing,
		Progress:   domain.ProgressCreated,
		SourceName: sourceName,
		Frames:     []domain.Frame{},
		Items:      []domain.Item{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = &entry{job: job}
	s.mu.Unlock()

	return cloneJob(job)
}

// Snapshot returns a deep copy of the job. Readers never observe a job
// mid-mutation: the copy is taken under the job's lock, so frame and item
// lists are always fully populated relative to the recorded progress.
func (s *Store) Snapshot(id string) (*domain.Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneJob(e.job), nil
}

// Update applies fn to the job under its lock. The store enforces two
// invariants regardless of what fn does: progress never decreases, and a
// terminal status is never overwritten.
func (s *Store) Update(id string, fn func(job *domain.Job) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prevStatus := e.job.Status
	prevProgress := e.job.Progress

	if err := fn(e.job); err != nil {
		return err
	}

	if e.job.Progress < prevProgress {
		e.job.Progress = prevProgress
	}
	if prevStatus.IsTerminal() {
		e.job.Status = prevStatus
	}
	e.job.UpdatedAt = time.Now()
	return nil
}

// Len returns the number of jobs currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return e, nil
}

func (s *Store) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evict(time.Now())
		}
	}
}

// evict applies the TTL and capacity policies. Only terminal jobs are ever
// evicted; a processing job must stay addressable by its background worker.
func (s *Store) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	var terminal []candidate

	for id, e := range s.jobs {
		e.mu.Lock()
		status := e.job.Status
		updatedAt := e.job.UpdatedAt
		e.mu.Unlock()

		if !status.IsTerminal() {
			continue
		}
		if s.ttl > 0 && now.Sub(updatedAt) > s.ttl {
			delete(s.jobs, id)
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: updatedAt})
	}

	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return
	}

	// Over capacity: drop the oldest terminal jobs first.
	for len(s.jobs) > s.maxJobs && len(terminal) > 0 {
		oldest := 0
		for i := range terminal {
			if terminal[i].updatedAt.Before(terminal[oldest].updatedAt) {
				oldest = i
			}
		}
		delete(s.jobs, terminal[oldest].id)
		terminal = append(terminal[:oldest], terminal[oldest+1:]...)
	}
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	c.Frames = make([]domain.Frame, len(job.Frames))
	copy(c.Frames, job.Frames)
	c.Items = make([]domain.Item, len(job.Items))
	copy(c.Items, job.Items)
	return &c
}
