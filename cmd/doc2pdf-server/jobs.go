package main

import "sync"

// Job statuses. A job is created as processing and transitions exactly once
// to completed or failed.
const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// job tracks one upload through its background conversion.
type job struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`

	// outputPath is where the finished PDF lives; not exposed to clients,
	// who go through the download endpoint.
	outputPath string
}

// jobStore is a concurrency-safe registry of jobs, written by background
// conversion goroutines and read by the polling endpoint. Jobs are never
// deleted individually; the periodic file sweep bounds disk usage and stale
// entries are harmless in memory for the lifetime of the process.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]job)}
}

// create registers a new processing job.
func (s *jobStore) create(id, filename, outputPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = job{
		ID:         id,
		Filename:   filename,
		Status:     statusProcessing,
		outputPath: outputPath,
	}
}

// get returns the job for id, if any.
func (s *jobStore) get(id string) (job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// complete marks the job finished with its final output path.
func (s *jobStore) complete(id, outputPath string) {
	s.setTerminal(id, statusCompleted, "", outputPath)
}

// fail marks the job failed with a user-facing message.
func (s *jobStore) fail(id, message string) {
	s.setTerminal(id, statusFailed, message, "")
}

func (s *jobStore) setTerminal(id, status, message, outputPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != statusProcessing {
		// Terminal transitions happen exactly once.
		return
	}
	j.Status = status
	j.Message = message
	if outputPath != "" {
		j.outputPath = outputPath
	}
	s.jobs[id] = j
}
