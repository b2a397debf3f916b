package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/HuangJiaLian/Up2Git/internal/client/capture"
	"github.com/HuangJiaLian/Up2Git/internal/client/config"
	"github.com/HuangJiaLian/Up2Git/internal/client/history"
	"github.com/HuangJiaLian/Up2Git/internal/client/metrics"
	"github.com/HuangJiaLian/Up2Git/internal/client/pipeline"
	"github.com/HuangJiaLian/Up2Git/internal/client/sink"
	"github.com/HuangJiaLian/Up2Git/internal/client/trigger"
	"github.com/HuangJiaLian/Up2Git/internal/client/worker"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

// Options customise how an App is assembled. Zero values select the
// desktop defaults.
type Options struct {
	Logger logging.Logger
	In     io.Reader
	Out    io.Writer
	Err    io.Writer

	// Interactive forces the REPL on or off. When nil it runs only if In
	// is a terminal.
	Interactive *bool

	Sink         sink.Sink
	Source       capture.Source
	NewPublisher pipeline.PublisherFactory
	Metrics      *metrics.Metrics
}

// App is a running up2git host.
type App struct {
	logger   logging.Logger
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
	trigger  *trigger.Channel

	out         io.Writer
	reader      *bufio.Reader
	interactive bool
}

// NewApp builds the pipeline for cfg: history from cfg.HistoryPath, the
// worker, the trigger channel and the notification sink.
func NewApp(ctx context.Context, cfg config.Config, o Options) *App {
	logger := logging.OrNop(o.Logger)
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Sink == nil {
		o.Sink = sink.Multi{sink.NewDesktop(logger), sink.NewConsole(o.Out)}
	}

	a := &App{
		logger:  logger,
		metrics: o.Metrics,
		out:     o.Out,
		reader:  bufio.NewReader(o.In),
	}
	if o.Interactive != nil {
		a.interactive = *o.Interactive
	} else {
		a.interactive = stdinIsTerminal(o.In)
	}

	hist := history.NewCache(ctx, history.NewFileStore(cfg.HistoryPath), logger.With("component", "history"), o.Metrics)
	a.pipeline = pipeline.New(cfg, pipeline.Deps{
		Worker:       worker.New(logger.With("component", "worker"), o.Metrics),
		History:      hist,
		Source:       o.Source,
		Sink:         o.Sink,
		Logger:       logger.With("component", "pipeline"),
		NewPublisher: o.NewPublisher,
	})
	a.trigger = trigger.NewChannel(cfg.TriggerPath, cfg.PollInterval, a.onTrigger, logger.With("component", "trigger"), o.Metrics)

	return a
}

func (a *App) onTrigger(ctx context.Context) {
	// failures are reported through the sink
	_, _ = a.pipeline.UploadFromCapture(ctx)
}

// Run serves the trigger channel, the metrics endpoint and the REPL until
// ctx is cancelled or the user leaves the REPL, then waits for uploads still
// running.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := a.pipeline.Configuration()
	if !a.pipeline.Configured() {
		a.logger.Warn(ctx, "uploader not configured: set a token and a repository")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.trigger.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return a.metrics.Serve(gctx, cfg.MetricsAddr, a.logger) })
	}

	if a.interactive {
		// A blocked read cannot be interrupted, so the REPL stays outside the
		// group. It stops dispatching once gctx is done and the pipeline
		// refuses uploads after Close.
		go func() {
			printlnFn("Up2Git (type 'help' for commands)")
			runREPL(gctx, a, a.status, a.reader)
			cancel()
		}()
	}

	err := g.Wait()
	a.logger.Info(context.WithoutCancel(ctx), "shutting down, waiting for uploads")
	a.pipeline.Close()
	return err
}

// UploadOnce uploads the file at path and waits for the outcome.
func (a *App) UploadOnce(ctx context.Context, path string) error {
	defer a.pipeline.Close()

	ch, err := a.pipeline.UploadFile(ctx, path)
	if err != nil {
		return err
	}
	return (<-ch).Err
}

func (a *App) status() string {
	cfg := a.pipeline.Configuration()
	if !a.pipeline.Configured() {
		return "(not configured)"
	}
	return "(" + cfg.TargetRepository + ")"
}
