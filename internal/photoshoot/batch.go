package photoshoot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Invoker performs a single generation call.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Image, error)
}

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

type Options struct {
	Invoker Invoker
	Logger  *slog.Logger

	// MaxConcurrent <= 1 runs units one at a time.
	MaxConcurrent int
	// MinInterval spaces out backend calls; zero disables pacing.
	MinInterval time.Duration

	NewID func() string
	Now   func() time.Time
}

type Orchestrator struct {
	invoker       Invoker
	logger        *slog.Logger
	maxConcurrent int
	minInterval   time.Duration
	newID         func() string
	now           func() time.Time
}

// Progress is reported after every successful unit.
type Progress struct {
	BatchID string
	Done    int
	Total   int
	Shot    Shot
}

type GenerateOption func(*generateOptions)

type generateOptions struct {
	onProgress func(Progress)
}

func WithProgress(fn func(Progress)) GenerateOption {
	return func(o *generateOptions) {
		o.onProgress = fn
	}
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Invoker == nil {
		return nil, errors.New("invoker is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		invoker:       opts.Invoker,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		minInterval:   opts.MinInterval,
		newID:         newID,
		now:           now,
	}, nil
}

// Generate renders every (style, shot type) unit of the batch and returns the
// shots in work-list order. The first failing unit aborts the batch and no
// shots are returned.
func (o *Orchestrator) Generate(ctx context.Context, in Input, mode Mode, opts ...GenerateOption) ([]Shot, error) {
	var gopts generateOptions
	for _, opt := range opts {
		opt(&gopts)
	}

	work, err := WorkList(in, mode)
	if err != nil {
		return nil, err
	}

	batchID := o.newID()
	logger := o.logger.With("batch_id", batchID, "mode", mode.String(), "backend", string(in.Backend))
	logger.Info("photoshoot batch", "state", StateRunning, "units", len(work), "concurrency", o.maxConcurrent)

	var limiter *rate.Limiter
	if o.minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(o.minInterval), 1)
	}

	start := o.now()
	run := o.runSequential
	if o.maxConcurrent > 1 && len(work) > 1 {
		run = o.runConcurrent
	}

	shots, err := run(ctx, batchID, work, limiter, logger, gopts)
	if err != nil {
		logger.Error("photoshoot batch", "state", StateFailed, "kind", KindOf(err), "err", err)
		return nil, err
	}

	logger.Info("photoshoot batch", "state", StateCompleted, "shots", len(shots), "dur_ms", o.now().Sub(start).Milliseconds())
	return shots, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, batchID string, work []Request, limiter *rate.Limiter, logger *slog.Logger, gopts generateOptions) ([]Shot, error) {
	shots := make([]Shot, 0, len(work))
	for i, req := range work {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		shot, err := o.generateOne(ctx, batchID, i, req, limiter, logger)
		if err != nil {
			return nil, err
		}
		shots = append(shots, shot)
		if gopts.onProgress != nil {
			gopts.onProgress(Progress{BatchID: batchID, Done: len(shots), Total: len(work), Shot: shot})
		}
	}
	return shots, nil
}

func (o *Orchestrator) runConcurrent(ctx context.Context, batchID string, work []Request, limiter *rate.Limiter, logger *slog.Logger, gopts generateOptions) ([]Shot, error) {
	shots := make([]Shot, len(work))
	done := make(chan Shot, len(work))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.maxConcurrent)

	reported := make(chan struct{})
	go func() {
		defer close(reported)
		n := 0
		for shot := range done {
			n++
			if gopts.onProgress != nil {
				gopts.onProgress(Progress{BatchID: batchID, Done: n, Total: len(work), Shot: shot})
			}
		}
	}()

	for i, req := range work {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			shot, err := o.generateOne(egCtx, batchID, i, req, limiter, logger)
			if err != nil {
				return err
			}
			shots[i] = shot
			done <- shot
			return nil
		})
	}

	err := eg.Wait()
	close(done)
	<-reported
	if err != nil {
		return nil, err
	}
	return shots, nil
}

func (o *Orchestrator) generateOne(ctx context.Context, batchID string, idx int, req Request, limiter *rate.Limiter, logger *slog.Logger) (Shot, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Shot{}, err
		}
	}

	unitLogger := logger.With("unit", idx+1, "style", string(req.Style), "shot", string(req.ShotType))
	unitLogger.Debug("generating shot")

	prompt := req.Prompt()
	img, err := o.invoker.Invoke(ctx, req)
	if err != nil {
		unitLogger.Warn("shot failed", "kind", KindOf(err), "err", err)
		return Shot{}, err
	}

	return Shot{
		ID:        ShotID(batchID, req.Style, req.ShotType),
		URL:       img.DataURL(),
		Prompt:    prompt,
		Style:     req.Style,
		ShotType:  req.ShotType,
		Backend:   req.Backend,
		CreatedAt: o.now(),
	}, nil
}
