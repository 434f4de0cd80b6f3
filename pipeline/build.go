package pipeline

import (
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/storage"
)

// Config assembles the dependencies and knobs for a full five-stage
// pipeline. Zero-valued intervals and worker counts fall back to defaults.
type Config struct {
	Client  remote.JobClient
	Files   storage.FileRepository
	Jobs    storage.JobRepository
	Vectors storage.VectorRepository

	// FilePollInterval is seconds-scale; input file validation is quick.
	// Default 5s.
	FilePollInterval time.Duration

	// JobPollInterval is minutes-scale; batch jobs run within a
	// completion window of hours. Default 1m.
	JobPollInterval time.Duration

	// UploadWorkers bounds concurrent file submissions. Default 4.
	UploadWorkers int

	// PollWorkers bounds concurrent polling loops per polling stage.
	// Each in-flight file or job occupies one worker until terminal,
	// so this also bounds in-flight jobs per window. Default 16.
	PollWorkers int

	// IngestWorkers bounds concurrent result downloads. Default 4.
	IngestWorkers int

	// SubmitSemaphore, when set, additionally bounds concurrent file
	// submissions across every producer sharing it.
	SubmitSemaphore *semaphore.Weighted
}

func (c *Config) applyDefaults() {
	if c.FilePollInterval <= 0 {
		c.FilePollInterval = 5 * time.Second
	}
	if c.JobPollInterval <= 0 {
		c.JobPollInterval = time.Minute
	}
	if c.UploadWorkers <= 0 {
		c.UploadWorkers = 4
	}
	if c.PollWorkers <= 0 {
		c.PollWorkers = 16
	}
	if c.IngestWorkers <= 0 {
		c.IngestWorkers = 4
	}
}

// Build wires the five stages into a pipeline in flow order.
func Build(cfg Config) (*Pipeline, error) {
	cfg.applyDefaults()

	p := NewPipeline()
	shutdown := p.ShutdownFunc()

	upload, err := NewUploadStage(cfg.Client, cfg.Files, cfg.SubmitSemaphore, cfg.UploadWorkers)
	if err != nil {
		return nil, err
	}
	filePoll, err := NewFilePollStage(cfg.Client, cfg.Files, shutdown, cfg.FilePollInterval, cfg.PollWorkers)
	if err != nil {
		return nil, err
	}
	jobCreate, err := NewJobCreateStage(cfg.Client, cfg.Jobs, cfg.UploadWorkers)
	if err != nil {
		return nil, err
	}
	jobPoll, err := NewJobPollStage(cfg.Client, cfg.Jobs, shutdown, cfg.JobPollInterval, cfg.PollWorkers)
	if err != nil {
		return nil, err
	}
	ingest, err := NewIngestStage(cfg.Client, cfg.Jobs, cfg.Vectors, cfg.IngestWorkers)
	if err != nil {
		return nil, err
	}

	for _, stage := range []*Stage{upload, filePoll, jobCreate, jobPoll, ingest} {
		if err := p.AddStage(stage); err != nil {
			return nil, err
		}
	}
	return p, nil
}
