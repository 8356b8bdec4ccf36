package delivery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"splice/internal/fileutil"
	"splice/internal/logging"
)

// ErrJobNotFound is returned when no record exists for a job id.
var ErrJobNotFound = errors.New("job not found")

// Job is the persisted record of one delivery attempt.
type Job struct {
	ID            string     `json:"job_id"`
	CreatedAt     time.Time  `json:"created_at"`
	Instruction   string     `json:"instruction"`
	IntentPath    string     `json:"intent_path,omitempty"`
	FCPXMLPath    string     `json:"fcpxml_path,omitempty"`
	DeliveredPath string     `json:"delivered_path,omitempty"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// transition moves the job to next, refusing moves out of terminal states.
func (j *Job) transition(next Status) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("job %s: invalid transition %s -> %s", j.ID, j.Status, next)
	}
	j.Status = next
	return nil
}

// Descriptor is a pending queue entry written by Submit and consumed by the daemon.
type Descriptor struct {
	JobID       string    `json:"job_id"`
	FCPXMLPath  string    `json:"fcpxml_path"`
	Instruction string    `json:"instruction"`
	CreatedAt   time.Time `json:"created_at"`
	IntentPath  string    `json:"intent_path,omitempty"`
}

// ReadDescriptor loads a pending descriptor and checks it names a job.
func ReadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	if err := fileutil.ReadJSON(path, &d); err != nil {
		return Descriptor{}, err
	}
	if strings.TrimSpace(d.JobID) == "" {
		return Descriptor{}, fmt.Errorf("descriptor %s: missing job_id", filepath.Base(path))
	}
	return d, nil
}

// Job loads the record for id from disk.
func (m *Manager) Job(id string) (*Job, error) {
	path := m.layout.JobPath(id)
	var job Job
	if err := fileutil.ReadJSON(path, &job); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, err
	}
	return &job, nil
}

// ListJobs returns up to limit job records, most recently modified first.
// Intent sidecars are excluded and unreadable records are skipped. A limit of
// zero or less returns every record.
func (m *Manager) ListJobs(limit int) ([]*Job, error) {
	entries, err := os.ReadDir(m.layout.JobsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasSuffix(name, intentSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: filepath.Join(m.layout.JobsDir, name), modTime: info.ModTime()})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].path > candidates[j].path
		}
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	jobs := make([]*Job, 0, len(candidates))
	for _, c := range candidates {
		if limit > 0 && len(jobs) >= limit {
			break
		}
		var job Job
		if err := fileutil.ReadJSON(c.path, &job); err != nil {
			m.logger.Debug("skipping unreadable job record",
				logging.Path(c.path),
				logging.Error(err),
			)
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// Pending returns the queued descriptor paths in name order.
func (m *Manager) Pending() ([]string, error) {
	entries, err := os.ReadDir(m.layout.PendingDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list pending: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}
		paths = append(paths, filepath.Join(m.layout.PendingDir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
