package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"splice/internal/config"
	"splice/internal/fileutil"
	"splice/internal/ledger"
	"splice/internal/logging"
)

// ErrDelivery wraps every filesystem failure raised while writing, copying, or
// recording a job.
var ErrDelivery = errors.New("delivery failed")

// ReasonDocumentMissing is recorded when a queued job's document is gone by
// the time the daemon picks it up.
const ReasonDocumentMissing = "document missing"

// Event sources recorded in the ledger.
const (
	SourceOneShot = "oneshot"
	SourceSubmit  = "submit"
	SourceDaemon  = "daemon"
)

// Manager performs deliveries against one filesystem layout.
type Manager struct {
	layout Layout
	logger *slog.Logger
	ledger *ledger.Store
	retain bool
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLedger mirrors every status change into store.
func WithLedger(store *ledger.Store) Option {
	return func(m *Manager) {
		m.ledger = store
	}
}

// WithClock overrides the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a manager for cfg and creates the directory layout.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("delivery manager requires config")
	}
	m := &Manager{
		layout: LayoutFromConfig(cfg),
		logger: logging.NewComponentLogger(logger, "delivery"),
		retain: cfg.Delivery.RetainOutput,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.layout.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return m, nil
}

// Layout returns the paths the manager writes to.
func (m *Manager) Layout() Layout {
	return m.layout
}

// InjectOptions controls a one-shot injection.
type InjectOptions struct {
	Instruction  string
	IntentJSON   []byte
	RetainOutput bool
}

// Delivery reports the outcome of a one-shot injection.
type Delivery struct {
	JobID    string
	Path     string
	Messages []string
}

// InjectOneShot writes doc, delivers it into the watch-folder, and records an
// injected job. The returned path is the watch-folder copy.
func (m *Manager) InjectOneShot(ctx context.Context, doc string, opts InjectOptions) (Delivery, error) {
	job := &Job{
		ID:          uuid.NewString(),
		CreatedAt:   m.now(),
		Instruction: opts.Instruction,
		Status:      StatusPending,
	}
	ctx = logging.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, m.logger)
	result := Delivery{JobID: job.ID}

	fail := func(stage string, err error) (Delivery, error) {
		wrapped := fmt.Errorf("%w: %s: %w", ErrDelivery, stage, err)
		m.failJob(ctx, job, wrapped.Error(), SourceOneShot)
		return result, wrapped
	}

	if len(opts.IntentJSON) > 0 {
		path := m.layout.IntentPath(job.ID)
		if err := fileutil.WriteFileAtomic(path, opts.IntentJSON, 0o644); err != nil {
			return fail("write intent", err)
		}
		job.IntentPath = path
		result.Messages = append(result.Messages, "Intent saved: "+path)
	}

	outPath := m.layout.OutPath(job.ID)
	if err := fileutil.WriteFileAtomic(outPath, []byte(doc), 0o644); err != nil {
		return fail("write document", err)
	}
	job.FCPXMLPath = outPath
	result.Messages = append(result.Messages, "FCPXML written: "+outPath)

	watchPath := m.layout.WatchPath(job.ID)
	if err := fileutil.CopyFileAtomic(outPath, watchPath); err != nil {
		return fail("deliver to watch folder", err)
	}
	job.DeliveredPath = watchPath
	result.Path = watchPath
	result.Messages = append(result.Messages, "Delivered to watch folder: "+watchPath)

	if err := m.complete(job); err != nil {
		return fail("complete job", err)
	}
	if err := m.saveJob(job); err != nil {
		return result, fmt.Errorf("%w: record job: %w", ErrDelivery, err)
	}
	result.Messages = append(result.Messages, "Job logged: "+m.layout.JobPath(job.ID))
	m.mirror(ctx, job, SourceOneShot)

	if !opts.RetainOutput {
		if err := fileutil.RemoveIfExists(outPath); err != nil {
			logging.WarnWithContext(logger, "output cleanup failed", "output_cleanup_failed",
				logging.Path(outPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "rendered document remains in out/"),
			)
		} else {
			result.Messages = append(result.Messages, "Cleaned up: "+outPath)
		}
	}

	logger.Info("job injected",
		logging.String(logging.FieldEventType, "job_injected"),
		logging.Path(watchPath),
	)
	return result, nil
}

// SubmitOptions controls a queued submission.
type SubmitOptions struct {
	Instruction string
	IntentJSON  []byte
}

// Submit writes doc to out/ and queues a pending descriptor for the daemon.
// Nothing is delivered to the watch-folder until the daemon drains the queue.
func (m *Manager) Submit(ctx context.Context, doc string, opts SubmitOptions) (string, error) {
	job := &Job{
		ID:          uuid.NewString(),
		CreatedAt:   m.now(),
		Instruction: opts.Instruction,
		Status:      StatusPending,
	}
	ctx = logging.WithJobID(ctx, job.ID)

	outPath := m.layout.OutPath(job.ID)
	if err := fileutil.WriteFileAtomic(outPath, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("%w: write document: %w", ErrDelivery, err)
	}
	job.FCPXMLPath = outPath

	if len(opts.IntentJSON) > 0 {
		path := m.layout.IntentPath(job.ID)
		if err := fileutil.WriteFileAtomic(path, opts.IntentJSON, 0o644); err != nil {
			return "", fmt.Errorf("%w: write intent: %w", ErrDelivery, err)
		}
		job.IntentPath = path
	}

	if err := m.saveJob(job); err != nil {
		return "", fmt.Errorf("%w: record job: %w", ErrDelivery, err)
	}

	descriptor := Descriptor{
		JobID:       job.ID,
		FCPXMLPath:  job.FCPXMLPath,
		Instruction: job.Instruction,
		CreatedAt:   job.CreatedAt,
		IntentPath:  job.IntentPath,
	}
	if err := fileutil.WriteJSONAtomic(m.layout.DescriptorPath(job.ID), descriptor); err != nil {
		return "", fmt.Errorf("%w: queue descriptor: %w", ErrDelivery, err)
	}
	m.mirror(ctx, job, SourceSubmit)

	logging.WithContext(ctx, m.logger).Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.Path(outPath),
	)
	return job.ID, nil
}

// Deliver processes one pending descriptor: the job moves to processing, its
// document is copied into the watch-folder, and the final record is persisted.
// A missing document yields a failed job and a nil error. Filesystem failures
// mark the job failed and return an error wrapping ErrDelivery.
func (m *Manager) Deliver(ctx context.Context, d Descriptor) (*Job, error) {
	ctx = logging.WithJobID(ctx, d.JobID)
	logger := logging.WithContext(ctx, m.logger)

	job, err := m.Job(d.JobID)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) {
			logger.Debug("job record unreadable; rebuilding from descriptor", logging.Error(err))
		}
		job = &Job{
			ID:          d.JobID,
			CreatedAt:   d.CreatedAt,
			Instruction: d.Instruction,
			IntentPath:  d.IntentPath,
			FCPXMLPath:  d.FCPXMLPath,
			Status:      StatusPending,
		}
	}
	if job.Status.Terminal() {
		return job, nil
	}
	if d.FCPXMLPath != "" {
		job.FCPXMLPath = d.FCPXMLPath
	}

	// A processing record means an earlier daemon stopped mid-delivery; resume it.
	if job.Status == StatusProcessing {
		logger.Info("resuming interrupted delivery",
			logging.String(logging.FieldEventType, "job_resumed"),
		)
	} else {
		if err := job.transition(StatusProcessing); err != nil {
			return job, fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		if err := m.saveJob(job); err != nil {
			return job, fmt.Errorf("%w: record job: %w", ErrDelivery, err)
		}
		m.mirror(ctx, job, SourceDaemon)
	}

	if !documentExists(job.FCPXMLPath) {
		m.failJob(ctx, job, ReasonDocumentMissing, SourceDaemon)
		logging.WarnWithContext(logger, "queued document missing", "job_document_missing",
			logging.Path(job.FCPXMLPath),
			logging.String(logging.FieldErrorHint, "resubmit the job"),
			logging.String(logging.FieldImpact, "job marked failed"),
		)
		return job, nil
	}

	watchPath := m.layout.WatchPath(job.ID)
	if err := fileutil.CopyFileAtomic(job.FCPXMLPath, watchPath); err != nil {
		wrapped := fmt.Errorf("%w: deliver to watch folder: %w", ErrDelivery, err)
		m.failJob(ctx, job, wrapped.Error(), SourceDaemon)
		return job, wrapped
	}
	job.DeliveredPath = watchPath
	if err := m.complete(job); err != nil {
		return job, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if err := m.saveJob(job); err != nil {
		return job, fmt.Errorf("%w: record job: %w", ErrDelivery, err)
	}
	m.mirror(ctx, job, SourceDaemon)

	if !m.retain {
		if err := fileutil.RemoveIfExists(job.FCPXMLPath); err != nil {
			logger.Debug("output cleanup failed", logging.Error(err))
		}
	}

	logger.Info("job injected",
		logging.String(logging.FieldEventType, "job_injected"),
		logging.Path(watchPath),
	)
	return job, nil
}

func (m *Manager) complete(job *Job) error {
	if err := job.transition(StatusInjected); err != nil {
		return err
	}
	completed := m.now()
	job.CompletedAt = &completed
	job.Error = ""
	return nil
}

// failJob records a terminal failure. Persistence errors are logged because
// the caller is already reporting a failure.
func (m *Manager) failJob(ctx context.Context, job *Job, reason string, source string) {
	if job.Status.Terminal() {
		return
	}
	job.Status = StatusFailed
	job.Error = reason
	if err := m.saveJob(job); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, m.logger), "failed job record not written", "job_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+m.layout.JobsDir),
		)
	}
	m.mirror(ctx, job, source)
}

func (m *Manager) saveJob(job *Job) error {
	return fileutil.WriteJSONAtomic(m.layout.JobPath(job.ID), job)
}

// mirror records the job's current status in the ledger. Ledger failures only
// log; the JSON record stays authoritative.
func (m *Manager) mirror(ctx context.Context, job *Job, source string) {
	if m.ledger == nil {
		return
	}
	path := job.DeliveredPath
	if path == "" {
		path = job.FCPXMLPath
	}
	err := m.ledger.Record(ctx, ledger.Event{
		JobID:  job.ID,
		Status: job.Status.String(),
		Source: source,
		Error:  job.Error,
		Path:   path,
		At:     m.now(),
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "ledger write failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check "+m.ledger.Path()),
			logging.String(logging.FieldImpact, "job history incomplete; job record unaffected"),
		)
	}
}

func documentExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
