package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HuangJiaLian/Up2Git/internal/client/capture"
	"github.com/HuangJiaLian/Up2Git/internal/client/config"
	"github.com/HuangJiaLian/Up2Git/internal/client/history"
	"github.com/HuangJiaLian/Up2Git/internal/client/remote"
	"github.com/HuangJiaLian/Up2Git/internal/client/sink"
	"github.com/HuangJiaLian/Up2Git/internal/client/worker"
	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

// PublisherFactory builds a publisher for a settings snapshot.
type PublisherFactory func(cfg config.Remote) worker.Publisher

// Deps are the collaborators of a Pipeline. Worker and History are required;
// the rest have defaults.
type Deps struct {
	Worker       *worker.Worker
	History      *history.Cache
	Source       capture.Source
	Sink         sink.Sink
	Logger       logging.Logger
	NewPublisher PublisherFactory
}

// Pipeline is the upload orchestrator.
type Pipeline struct {
	mu        sync.RWMutex
	cfg       config.Config
	publisher worker.Publisher

	newPublisher PublisherFactory
	worker       *worker.Worker
	history      *history.Cache
	source       capture.Source
	sink         sink.Sink
	logger       logging.Logger
	now          func() time.Time

	// closed is guarded by mu; completions.Add happens under the same lock.
	closed      bool
	completions sync.WaitGroup
}

// New returns a pipeline for cfg.
func New(cfg config.Config, d Deps) *Pipeline {
	p := &Pipeline{
		newPublisher: d.NewPublisher,
		worker:       d.Worker,
		history:      d.History,
		source:       d.Source,
		sink:         d.Sink,
		logger:       logging.OrNop(d.Logger),
		now:          time.Now,
	}
	if p.newPublisher == nil {
		logger := p.logger
		p.newPublisher = func(r config.Remote) worker.Publisher {
			return remote.NewClient(r, nil, logger)
		}
	}
	if p.source == nil {
		p.source = capture.NewSystemClipboard()
	}
	if p.sink == nil {
		p.sink = sink.Nop{}
	}
	p.apply(cfg)
	return p
}

// UploadFromCapture uploads whatever the capture source currently holds.
// Failures before submission are returned and also reported to the sink.
func (p *Pipeline) UploadFromCapture(ctx context.Context) (<-chan worker.Result, error) {
	cfg, pub, err := p.snapshot()
	if err != nil {
		return p.fail(ctx, err)
	}

	snap, err := p.source.Read(ctx)
	if err != nil {
		return p.fail(ctx, err)
	}
	c, err := snap.Select()
	if err != nil {
		return p.fail(ctx, err)
	}
	return p.upload(ctx, cfg, pub, c)
}

// UploadFile uploads the file at path.
func (p *Pipeline) UploadFile(ctx context.Context, path string) (<-chan worker.Result, error) {
	cfg, pub, err := p.snapshot()
	if err != nil {
		return p.fail(ctx, err)
	}
	return p.upload(ctx, cfg, pub, capture.Files{Paths: []string{path}})
}

// History returns the recorded uploads, most recent first.
func (p *Pipeline) History() []history.Entry {
	return p.history.List()
}

// ClearHistory empties the history.
func (p *Pipeline) ClearHistory(ctx context.Context) error {
	return p.history.Clear(ctx)
}

// UpdateConfiguration replaces the settings snapshot and rebuilds the
// publisher from it. Uploads already submitted keep the previous publisher.
func (p *Pipeline) UpdateConfiguration(ctx context.Context, cfg config.Config) {
	p.apply(cfg)
	p.logger.Info(ctx, "configuration updated",
		"configured", cfg.Complete(), "repository", cfg.TargetRepository, "folder", cfg.DestinationFolder, "branch", cfg.BranchName)
}

// Configuration returns the current settings snapshot.
func (p *Pipeline) Configuration() config.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Configured reports whether uploads can be attempted.
func (p *Pipeline) Configured() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.publisher != nil
}

// Close stops accepting uploads and blocks until the submitted ones have
// completed, including their history and sink side effects. Uploads
// requested afterwards fail with common.ErrClosed.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.completions.Wait()
	p.worker.Wait()
}

func (p *Pipeline) apply(cfg config.Config) {
	var pub worker.Publisher
	if cfg.Complete() {
		pub = p.newPublisher(cfg.Remote())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.publisher = pub
}

func (p *Pipeline) snapshot() (config.Config, worker.Publisher, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.cfg, nil, common.ErrClosed
	}
	if p.publisher == nil {
		return p.cfg, nil, common.ErrNotConfigured
	}
	return p.cfg, p.publisher, nil
}

func (p *Pipeline) fail(ctx context.Context, err error) (<-chan worker.Result, error) {
	if errors.Is(err, common.ErrNothingToUpload) {
		p.logger.Info(ctx, "nothing to upload")
		p.sink.Info(ctx, "No image, file or text found in clipboard")
		return nil, err
	}
	p.logger.Warn(ctx, "upload not started", "kind", common.Kind(err), "error", err)
	p.sink.Failed(ctx, err)
	return nil, err
}

func (p *Pipeline) upload(ctx context.Context, cfg config.Config, pub worker.Publisher, c capture.Capture) (<-chan worker.Result, error) {
	item, err := capture.Classify(c, p.now())
	if err != nil {
		return p.fail(ctx, err)
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return p.fail(ctx, common.ErrClosed)
	}
	p.completions.Add(1)
	p.mu.RUnlock()

	r := cfg.Remote()
	req := worker.NewRequest(item.Filename, item.Content, r.Folder, r.Branch)
	p.sink.Uploading(ctx, item.Filename)
	p.logger.Debug(ctx, "upload submitted", "job_id", req.ID, "filename", item.Filename, "mime", item.MIME, "bytes", len(item.Content))

	results := p.worker.Submit(ctx, pub, req)

	out := make(chan worker.Result, 1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer p.completions.Done()
		res := <-results
		p.complete(ctx, item, res)
		out <- res
		close(out)
	}()
	return out, nil
}

func (p *Pipeline) complete(ctx context.Context, item capture.Item, res worker.Result) {
	if res.Failed() {
		p.sink.Failed(ctx, res.Err)
		return
	}

	var thumb string
	if item.IsImage {
		t, err := p.history.Thumbnail(item.Content)
		if err != nil {
			p.logger.Warn(ctx, "thumbnail not generated", "kind", common.Kind(err), "filename", item.Filename, "error", err)
		}
		thumb = t
	}

	p.history.Record(ctx, item.Filename, res.URL, item.IsImage, thumb)
	p.sink.Succeeded(ctx, item.Filename, res.URL)
}
