// Package worker runs uploads off the caller's goroutine.
//
// Each submission gets its own goroutine and a one-slot result channel that
// is resolved exactly once. There is no queue and no cancellation: the
// publisher's transport timeout is what bounds a job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/HuangJiaLian/Up2Git/internal/client/metrics"
	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

// Publisher stores content remotely and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, filename string, content []byte, folder, branch string) (string, error)
}

// UploadRequest is one unit of upload work.
type UploadRequest struct {
	ID       string
	Filename string
	Content  []byte
	Folder   string
	Branch   string
}

// NewRequest builds a request with a fresh job id.
func NewRequest(filename string, content []byte, folder, branch string) UploadRequest {
	return UploadRequest{
		ID:       uuid.NewString(),
		Filename: filename,
		Content:  content,
		Folder:   folder,
		Branch:   branch,
	}
}

// Result is the outcome of an upload. Exactly one of URL and Err is set.
type Result struct {
	RequestID string
	Filename  string
	URL       string
	Err       error
}

// Failed reports whether the upload did not succeed.
func (r Result) Failed() bool { return r.Err != nil }

// Kind classifies the failure; empty on success.
func (r Result) Kind() common.ErrorKind { return common.Kind(r.Err) }

// Detail is a human readable description of the failure.
func (r Result) Detail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// errPanic marks a job that crashed instead of returning.
var errPanic = errors.New("upload panicked")

// Worker starts uploads and tracks the ones still running.
type Worker struct {
	logger   logging.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// New returns a Worker. m may be nil.
func New(logger logging.Logger, m *metrics.Metrics) *Worker {
	return &Worker{logger: logging.OrNop(logger), metrics: m}
}

// Submit starts req on its own goroutine and returns the channel its Result
// will be delivered on. A nil publisher resolves immediately with
// ErrNotConfigured.
func (w *Worker) Submit(ctx context.Context, p Publisher, req UploadRequest) <-chan Result {
	out := make(chan Result, 1)

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if p == nil {
		out <- Result{RequestID: req.ID, Filename: req.Filename, Err: common.ErrNotConfigured}
		close(out)
		return out
	}

	ctx = context.WithoutCancel(ctx)
	log := w.logger.With("job_id", req.ID, "filename", req.Filename)

	w.wg.Add(1)
	w.inFlight.Add(1)
	w.metrics.UploadStarted()

	go func() {
		start := time.Now()
		res := Result{RequestID: req.ID, Filename: req.Filename}

		defer func() {
			if r := recover(); r != nil {
				log.Error(ctx, "upload goroutine panic", "panic", r, "stack", string(debug.Stack()))
				res.URL = ""
				res.Err = fmt.Errorf("%w: %v", errPanic, r)
			}
			w.finish(ctx, log, res, time.Since(start))
			out <- res
			close(out)
			w.inFlight.Add(-1)
			w.wg.Done()
		}()

		log.Debug(ctx, "upload started", "bytes", len(req.Content))
		url, err := p.Publish(ctx, req.Filename, req.Content, req.Folder, req.Branch)
		if err != nil {
			res.Err = err
			return
		}
		res.URL = url
	}()

	return out
}

func (w *Worker) finish(ctx context.Context, log logging.Logger, res Result, elapsed time.Duration) {
	if res.Failed() {
		w.metrics.UploadFinished(string(res.Kind()), elapsed)
		log.Warn(ctx, "upload failed", "kind", res.Kind(), "error", res.Err, "elapsed", elapsed)
		return
	}
	w.metrics.UploadFinished("success", elapsed)
	log.Info(ctx, "upload finished", "url", res.URL, "elapsed", elapsed)
}

// Wait blocks until every submitted upload has finished.
func (w *Worker) Wait() { w.wg.Wait() }

// InFlight returns the number of uploads still running.
func (w *Worker) InFlight() int { return int(w.inFlight.Load()) }
