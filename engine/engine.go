// Package engine wires all reporter subsystems together: the message
// bus, the unit-of-work factory, the handler set, the platform factory,
// the extension registry, the read side, and the schedule loop.
//
// This package exists to break the import cycle: the root reporter
// package defines Entity and Config (imported by domain and every
// subsystem) and so cannot import those packages back. The engine
// package sits above all subsystem packages and below the application
// layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/bus"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/ext"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/handler"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	mw "github.com/yeonuk-hwang/viral-marketing-reporter-v2/middleware"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/observability"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/platform"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/platform/naverblog"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/query"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/schedule"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/uow"
)

// Engine is the composition root. Build one, submit batches, read
// results.
type Engine struct {
	store      store.Store
	bus        *bus.Bus
	uow        *uow.Factory
	platforms  *platform.Factory
	extensions *ext.Registry
	queries    *query.Service
	scheduler  *schedule.Scheduler
	cfg        reporter.Config
	logger     *slog.Logger

	mws []mw.Middleware

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg reporter.Config) Option {
	return func(eng *Engine) { eng.cfg = cfg }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = logger }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.extensions.Register(e) }
}

// WithMiddleware adds middleware to the engine's chain, after the
// default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithPlatform binds a searcher constructor to a platform tag,
// replacing any default binding.
func WithPlatform(p domain.Platform, c platform.Constructor) Option {
	return func(eng *Engine) { eng.platforms.Register(p, c) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

const otelScope = "github.com/yeonuk-hwang/viral-marketing-reporter-v2"

// Build creates an Engine on top of the given store.
func Build(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, reporter.ErrNoStore
	}

	eng := &Engine{
		store:     s,
		platforms: platform.NewFactory(),
		cfg:       reporter.DefaultConfig(),
		logger:    slog.Default(),
	}
	eng.extensions = ext.NewRegistry(eng.logger)

	for _, opt := range opts {
		opt(eng)
	}

	// Default platform binding, unless an option replaced it.
	if !eng.platforms.Has(domain.NaverBlog) {
		topN := eng.cfg.TopResults
		eng.platforms.Register(domain.NaverBlog, func() (platform.Searcher, error) {
			return naverblog.New(naverblog.WithTopResults(topN)), nil
		})
	}

	// Tracing and metrics middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(otelScope))
	} else {
		tracingMw = mw.Tracing()
	}
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(otelScope))
	} else {
		metricsMw = mw.Metrics()
	}

	// Observability extension on the same provider.
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(otelScope))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Default middleware stack: recover → tracing → metrics → logging.
	allMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
	}
	allMws = append(allMws, eng.mws...)

	eng.bus = bus.New(
		bus.WithMiddleware(allMws...),
		bus.WithLogger(eng.logger),
	)
	eng.uow = uow.NewFactory(s, eng.bus)
	eng.queries = query.NewService(s)

	h := handler.New(eng.uow, eng.bus, eng.platforms, eng.extensions, eng.cfg, eng.logger)
	if err := h.Register(eng.bus); err != nil {
		return nil, err
	}

	submit := func(ctx context.Context, tasks []domain.TaskSpec) (id.JobID, error) {
		jobID := id.NewJobID()
		if err := eng.Submit(ctx, jobID, tasks); err != nil {
			return id.JobID{}, err
		}
		return jobID, nil
	}
	eng.scheduler = schedule.NewScheduler(submit, eng.extensions, eng.logger)

	return eng, nil
}

// Submit runs one batch under the caller-chosen job ID. The bus is
// synchronous, so Submit returns only after every task has settled and
// the job has completed; the returned error is the first failure of the
// cascade, if any.
func (eng *Engine) Submit(ctx context.Context, jobID id.JobID, tasks []domain.TaskSpec) error {
	if len(tasks) == 0 {
		return fmt.Errorf("engine: submit: no tasks")
	}
	return eng.bus.Dispatch(ctx, domain.CreateJob{JobID: jobID, Tasks: tasks})
}

// Result projects a persisted job into its report form.
func (eng *Engine) Result(ctx context.Context, jobID id.JobID) (query.JobResult, error) {
	return eng.queries.JobResult(ctx, jobID)
}

// AddSchedule registers a recurring batch. It takes effect once Start
// has run.
func (eng *Engine) AddSchedule(name, expr string, tasks []domain.TaskSpec) error {
	return eng.scheduler.Add(name, expr, tasks)
}

// Start launches the schedule loop. Engines used only for direct
// Submit calls do not need it.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.scheduler.Start(ctx)
}

// Stop shuts the engine down: the schedule loop stops, extensions get
// their shutdown hook, and the store is closed.
func (eng *Engine) Stop(ctx context.Context) error {
	if eng.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := eng.scheduler.Stop(ctx); err != nil {
		eng.logger.Error("scheduler stop error", slog.String("error", err.Error()))
	}
	eng.extensions.EmitShutdown(ctx)
	return eng.store.Close()
}

// Bus returns the message bus.
func (eng *Engine) Bus() *bus.Bus { return eng.bus }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Scheduler returns the schedule loop.
func (eng *Engine) Scheduler() *schedule.Scheduler { return eng.scheduler }

// Queries returns the read-side service.
func (eng *Engine) Queries() *query.Service { return eng.queries }
